package uwb

// The DWM1001 UART API answers with TLV frames: a type byte, a length
// byte, then that many payload bytes.
const (
	// frameTypePosition carries <x:i32le><y:i32le><z:i32le><quality:u8>.
	frameTypePosition = 0x41
	// frameTypeStatus carries an error code in payload byte 0; nonzero
	// means the current exchange failed on the device side.
	frameTypeStatus = 0x40
)

// Frame is one decoded TLV unit. Frames are transient: produced and
// consumed within a single exchange, never stored.
type Frame struct {
	Type  byte
	Value []byte
}

// ReadFrame decodes one TLV frame from the transport. It reads exactly
// two header bytes, then exactly the declared payload length. Any short
// read invalidates the frame and returns false; no partial-frame state
// is kept, so the next call starts clean (a torn frame is silently
// dropped). A zero-length frame is valid and carries an empty payload.
func ReadFrame(tr *Transport) (Frame, bool) {
	var header [2]byte
	if !tr.ReadExact(header[:]) {
		return Frame{}, false
	}

	f := Frame{Type: header[0]}
	if l := int(header[1]); l > 0 {
		f.Value = make([]byte, l)
		if !tr.ReadExact(f.Value) {
			return Frame{}, false
		}
	}
	return f, true
}
