// ABOUTME: Entry point for the network tone server
// ABOUTME: Streams a synthesized tone to WebSocket listeners
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Resonate-Protocol/resonate-synth/internal/config"
	"github.com/Resonate-Protocol/resonate-synth/internal/server"
	"github.com/Resonate-Protocol/resonate-synth/internal/synth"
	"github.com/Resonate-Protocol/resonate-synth/pkg/engine"
)

func main() {
	cfg, err := config.Load(config.ToneServer, os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "resonate-tone-server: %v\n", err)
		os.Exit(2)
	}

	f, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	if cfg.TUI {
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	log.Printf("Starting Resonate Tone Server: %s on %s", cfg.Name, cfg.Listen)
	log.Printf("Logging to: %s", cfg.LogFile)

	srv := server.New(server.Config{
		Addr:       cfg.Listen,
		Name:       cfg.Name,
		EnableMDNS: cfg.MDNS,
		UseTUI:     cfg.TUI,
		Debug:      cfg.Debug,
		Waveform:   cfg.Waveform.String(),
		Frequency:  cfg.Frequency,
	})

	// A failed stream takes the server down with it
	eng := engine.New(server.NewSink(srv, server.DefaultChunkDuration), func(err error) {
		log.Printf("Stream failed: %v", err)
		srv.Stop()
	})

	tone := synth.Tone(cfg.Waveform, cfg.Frequency, cfg.Amplitude)
	if err := eng.Start(cfg.Stream, tone); err != nil {
		log.Fatalf("Failed to start engine: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Printf("Received %v signal, shutting down gracefully...", sig)
			srv.Stop()
		case <-srv.Done():
		}
	}()

	serverErr := srv.Start()

	if err := eng.Stop(); err != nil {
		log.Printf("Error stopping engine: %v", err)
	}
	if err := eng.Err(); err != nil {
		log.Printf("Stream error: %v", err)
	}

	if serverErr != nil {
		log.Fatalf("Server error: %v", serverErr)
	}
	log.Printf("Server stopped")
}
