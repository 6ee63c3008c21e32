// ABOUTME: Streaming engine package
// ABOUTME: Multi-buffered block production for real-time synthesis
// Package engine streams a synthesized signal to an audio output.
//
// A fixed pool of sample blocks is shared between a producer goroutine
// and an output.Sink. The producer renders the signal source into the
// next free block, clips and quantizes it to 16-bit PCM, and submits it.
// The sink reports each block back once played, which frees it for reuse.
// The producer waits while every block is queued, so the sink sets the pace.
//
// Example:
//
//	sink, _ := output.New("oto")
//	e := engine.New(sink, nil)
//	err := e.Start(engine.DefaultConfig(), func(t float64, ch int) float64 {
//	    return 0.5 * math.Sin(2*math.Pi*440*t)
//	})
//	defer e.Stop()
package engine
