// ABOUTME: Version information for the synth and tone server
// ABOUTME: Shown in the TUI header and advertised over mDNS
package version

const (
	Version      = "0.1.0"
	Product      = "Resonate Synth"
	Manufacturer = "Resonate"
)
