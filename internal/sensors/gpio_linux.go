//go:build linux

package sensors

import (
	"io"

	"github.com/warthog618/go-gpiocdev"
)

// requestEdgeLine claims the configured line via the Linux GPIO
// character device and delivers edge events to onEdge.
func requestEdgeLine(cfg FreqMeterConfig, onEdge func()) (io.Closer, error) {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.WithConsumer("uwbtagd-freq"),
		gpiocdev.WithPullUp,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) { onEdge() }),
	}
	switch cfg.Edge {
	case "falling":
		opts = append(opts, gpiocdev.WithFallingEdge)
	case "both":
		opts = append(opts, gpiocdev.WithBothEdges)
	default:
		opts = append(opts, gpiocdev.WithRisingEdge)
	}
	return gpiocdev.RequestLine(cfg.Chip, cfg.Line, opts...)
}
