package uwb

import (
	"encoding/binary"
	"time"
)

// positionPayloadLen is the minimum payload for a position frame:
// three little-endian int32 coordinates plus one quality byte.
const positionPayloadLen = 13

// Position is one absolute position solution from the tag, in meters.
// Values are immutable once constructed.
type Position struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
	Quality   uint8     `json:"quality"`
	Timestamp time.Time `json:"timestamp"`
}

// SameCoords reports whether o carries bit-identical coordinates.
// Exact float comparison is intentional: if the tag has not refreshed
// its solution the bytes are identical, and if it has, ranging noise
// guarantees at least one coordinate differs. Quality and timestamp are
// excluded so an unchanged fix with fluctuating quality still counts as
// stale.
func (p Position) SameCoords(o Position) bool {
	return p.X == o.X && p.Y == o.Y && p.Z == o.Z
}

// DecodePosition interprets a position frame payload. The payload must
// hold at least 13 bytes: x, y, z as signed 32-bit little-endian
// millimeters, then one quality byte. Coordinates come out in meters.
//
// An all-zero position with zero quality is the firmware's encoding for
// "no fix yet", not a real solution at the origin, and is rejected.
// Zero quality with nonzero coordinates passes: quality is advisory,
// not a validity gate beyond that sentinel.
func DecodePosition(payload []byte) (Position, bool) {
	if len(payload) < positionPayloadLen {
		return Position{}, false
	}

	xmm := int32(binary.LittleEndian.Uint32(payload[0:4]))
	ymm := int32(binary.LittleEndian.Uint32(payload[4:8]))
	zmm := int32(binary.LittleEndian.Uint32(payload[8:12]))
	quality := payload[12]

	if quality == 0 && xmm == 0 && ymm == 0 && zmm == 0 {
		return Position{}, false
	}

	return Position{
		X:         float64(xmm) / 1000.0,
		Y:         float64(ymm) / 1000.0,
		Z:         float64(zmm) / 1000.0,
		Quality:   quality,
		Timestamp: time.Now(),
	}, true
}
