// ABOUTME: Entry point for the network tone listener
// ABOUTME: Finds a tone server and plays its stream on a local output
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/Resonate-Protocol/resonate-synth/internal/client"
	"github.com/Resonate-Protocol/resonate-synth/internal/config"
	"github.com/Resonate-Protocol/resonate-synth/internal/discovery"
	"github.com/Resonate-Protocol/resonate-synth/internal/protocol"
	"github.com/Resonate-Protocol/resonate-synth/internal/version"
	"github.com/Resonate-Protocol/resonate-synth/pkg/audio/output"
)

func main() {
	cfg, err := config.Load(config.ToneListen, os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "resonate-tone-listen: %v\n", err)
		os.Exit(2)
	}

	f, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()
	log.SetOutput(io.MultiWriter(os.Stdout, f))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr, path := cfg.Server, client.DefaultPath
	if addr == "" {
		log.Printf("Starting server discovery...")
		disc := discovery.NewManager(discovery.Config{ServiceName: cfg.Name})
		disc.Browse()

		select {
		case server := <-disc.Servers():
			addr, path = server.Addr(), server.Path
			log.Printf("Discovered server %s at %s", server.Name, addr)
		case <-time.After(10 * time.Second):
			log.Fatalf("No server found after 10 seconds")
		case <-ctx.Done():
			return
		}
		disc.Stop()
	}

	sink, err := output.New(cfg.Backend)
	if err != nil {
		log.Fatalf("Failed to create output: %v", err)
	}

	c := client.NewClient(client.Config{
		ServerAddr: addr,
		Path:       path,
		Name:       cfg.Name,
		DeviceInfo: protocol.DeviceInfo{
			ProductName:     version.Product,
			Manufacturer:    version.Manufacturer,
			SoftwareVersion: version.Version,
		},
	})
	if err := c.Connect(); err != nil {
		log.Fatalf("Connection failed: %v", err)
	}
	defer c.Close()

	log.Printf("Connected to server: %s", addr)

	player := client.NewPlayer(c, sink, cfg.Stream.Blocks)
	err = player.Run(ctx)

	stats := player.Stats()
	log.Printf("Played %d chunks in %d blocks (%d gaps)", stats.Chunks, stats.Blocks, stats.Gaps)

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Playback stopped: %v", err)
	}
	log.Printf("Listener stopped")
}
