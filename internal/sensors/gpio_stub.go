//go:build !linux

package sensors

import (
	"errors"
	"io"
)

func requestEdgeLine(cfg FreqMeterConfig, onEdge func()) (io.Closer, error) {
	return nil, errors.New("gpio edge events require linux")
}
