package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/uwbworks/uwbtagd/internal/sensors"
	"github.com/uwbworks/uwbtagd/internal/server"
	"github.com/uwbworks/uwbtagd/internal/uwb"
)

func main() {
	configPath := flag.String("config", "/etc/uwbtagd/config.yaml", "Path to config file")
	demo := flag.Bool("demo", false, "Run with a simulated tag")
	portPath := flag.String("port", "", "Override tag serial port (e.g. /dev/ttyACM0)")
	listenAddr := flag.String("listen", "", "Override listen address (e.g. :8080)")
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] uwbtagd starting")

	cfg := server.LoadConfig(*configPath)
	if *demo {
		cfg.Tag.Type = "demo"
	}
	if *portPath != "" {
		cfg.Tag.PortPath = *portPath
	}
	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("[main] received %v, shutting down", sig)
		cancel()
	}()

	var tag uwb.Locator
	switch cfg.Tag.Type {
	case "dwm1001":
		tag = uwb.NewDWM1001(uwb.DWM1001Config{
			PortPath: cfg.Tag.PortPath,
			BaudRate: cfg.Tag.BaudRate,
			WindowMs: cfg.Tag.WindowMs,
			Debug:    cfg.Tag.Debug,
		})
	default:
		tag = uwb.NewDemoTag()
	}

	svc := uwb.NewService(tag, time.Duration(cfg.Tag.IdleYieldUs)*time.Microsecond, cfg.Tag.Debug)

	// Release the serial handle on every exit path, including signal
	// driven ones: reading must stop before the port closes.
	defer svc.Disconnect()

	// Connect with exponential backoff, non-blocking: the feed starts
	// serving "none yet" while the tag is still coming up.
	go connectWithRetry(ctx, svc)

	var freq *sensors.FreqMeter
	if cfg.Freq.Enabled {
		freq = sensors.NewFreqMeter(cfg.Freq.FreqMeterConfig)
		if err := freq.Start(); err != nil {
			log.Printf("[main] frequency meter disabled: %v", err)
			freq = nil
		} else {
			defer freq.Stop()
		}
	}

	var freqSrc server.FreqSource
	if freq != nil {
		freqSrc = freq
	}

	srv := server.New(cfg, svc, freqSrc)
	if err := srv.Run(ctx); err != nil {
		log.Printf("[main] server exited: %v", err)
	}
}

// connectWithRetry attempts to connect with exponential backoff,
// starting at 1s and doubling up to 60s, then starts continuous
// reading.
func connectWithRetry(ctx context.Context, svc *uwb.Service) {
	delay := 1 * time.Second
	maxDelay := 60 * time.Second
	attempt := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := svc.Connect(); err != nil {
			attempt++
			log.Printf("[main] connect attempt %d failed: %v (retry in %v)", attempt, err, delay)

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}

			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
			}
			continue
		}

		log.Printf("[main] tag connected (attempt %d)", attempt+1)
		svc.StartContinuousReading()
		return
	}
}
