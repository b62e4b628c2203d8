package uwb

// Locator is the interface that all tag backends must implement.
// DWM1001 is the hardware implementation; DemoTag provides simulated
// data so the daemon can run without a tag attached.
type Locator interface {
	// Name returns the human-readable name of this tag backend.
	Name() string
	// Connect opens the serial link and verifies it is usable.
	Connect() error
	// Close cleanly shuts down the serial link.
	Close() error

	// GetLocation performs one request/response exchange with the tag
	// and returns whatever was parsed. An empty LocationData means the
	// exchange yielded nothing usable this cycle; callers are expected
	// to retry on their own schedule.
	GetLocation() LocationData
}

// Anchor describes one ranging anchor seen by the tag. The location
// exchange used here never reports anchors, so the slice in
// LocationData stays nil; the type is kept for the anchor-list TLVs
// the firmware can emit on other requests.
type Anchor struct {
	ID       uint16  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Distance float64 `json:"distance"`
	Quality  uint8   `json:"quality"`
}

// LocationData is the response envelope for one exchange: either
// nothing was parsed, or a position was.
type LocationData struct {
	Anchors  []Anchor
	Position *Position
}
