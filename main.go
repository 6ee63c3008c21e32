// ABOUTME: Entry point for the keyboard synthesizer
// ABOUTME: Loads configuration, starts the audio engine and runs the TUI
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/Resonate-Protocol/resonate-synth/internal/config"
	"github.com/Resonate-Protocol/resonate-synth/internal/synth"
	"github.com/Resonate-Protocol/resonate-synth/internal/ui"
	"github.com/Resonate-Protocol/resonate-synth/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-synth/pkg/engine"
)

func main() {
	cfg, err := config.Load(config.Synth, os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "resonate-synth: %v\n", err)
		os.Exit(2)
	}

	useTUI := !cfg.NoTUI

	// Set up logging
	f, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	log.Printf("Starting Resonate Synth: %s (%s output)", cfg.Name, cfg.Backend)

	sink, err := output.New(cfg.Backend)
	if err != nil {
		log.Fatalf("Failed to create output: %v", err)
	}

	// The TUI learns about stream failures through the program
	var prog *tea.Program
	onError := func(err error) {
		log.Printf("Stream failed: %v", err)
		if prog != nil {
			prog.Send(ui.ErrorMsg{Err: err})
		}
	}

	eng := engine.New(sink, onError)

	if useTUI {
		runTUI(cfg, eng, &prog)
	} else {
		runHeadless(cfg, eng)
	}

	if err := eng.Stop(); err != nil {
		log.Printf("Error stopping engine: %v", err)
	}
	log.Printf("Synth stopped")
}

// runTUI plays the keyboard until the user quits
func runTUI(cfg *config.Config, eng *engine.Engine, prog **tea.Program) {
	params := synth.NewParams(cfg.Amplitude, cfg.Waveform)
	voice := synth.NewVoice(params, uint64(time.Now().UnixNano()))

	keys := ui.NewKeyboard(cfg.HoldTimeout)
	m := ui.NewModel(eng, params, keys, ui.Options{
		BaseFrequency: cfg.BaseFrequency,
		AmplitudeStep: cfg.AmplitudeStep,
		Name:          cfg.Name,
	})
	*prog = ui.NewProgram(m)

	if err := eng.Start(cfg.Stream, voice.Source()); err != nil {
		log.Fatalf("Failed to start engine: %v", err)
	}
	if err := eng.SetVolume(1, 1); err != nil {
		log.Printf("Failed to set volume: %v", err)
	}

	if err := ui.Run(*prog); err != nil {
		log.Printf("Synth exited with error: %v", err)
		fmt.Fprintf(os.Stderr, "resonate-synth: %v\n", err)
	}
}

// runHeadless plays a fixed tone until interrupted
func runHeadless(cfg *config.Config, eng *engine.Engine) {
	tone := synth.Tone(cfg.Waveform, cfg.Frequency, cfg.Amplitude)
	if err := eng.Start(cfg.Stream, tone); err != nil {
		log.Fatalf("Failed to start engine: %v", err)
	}

	log.Printf("TUI disabled - playing %s at %.1fHz", cfg.Waveform, cfg.Frequency)
	log.Printf("Press Ctrl-C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case sig := <-sigChan:
			log.Printf("Received %v signal, shutting down...", sig)
			return
		case <-ticker.C:
			if eng.State() != engine.Running {
				log.Printf("Engine stopped: %v", eng.Err())
				return
			}
			stats := eng.Stats()
			log.Printf("Stats: blocks=%d free=%d time=%.1fs underruns=%d",
				stats.Blocks, stats.FreeBlocks, stats.Time, stats.Underruns)
		}
	}
}
