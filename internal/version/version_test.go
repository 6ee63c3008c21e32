// ABOUTME: Tests for version constants
// ABOUTME: Checks the values shown in the TUI and sent in hellos and TXT records
package version

import (
	"regexp"
	"strings"
	"testing"
)

func TestConstantsDefined(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"Version", Version},
		{"Product", Product},
		{"Manufacturer", Manufacturer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if strings.TrimSpace(tt.value) == "" {
				t.Fatalf("%s should not be empty", tt.name)
			}
			if len(tt.value) > 100 {
				t.Errorf("%s is unreasonably long", tt.name)
			}
			for _, placeholder := range []string{"TODO", "FIXME", "XXX", "placeholder"} {
				if tt.value == placeholder {
					t.Errorf("%s should not be placeholder value: %s", tt.name, placeholder)
				}
			}
		})
	}
}

func TestVersionIsSemver(t *testing.T) {
	// Advertised in mDNS TXT records, so no spaces or "v" prefix
	if !regexp.MustCompile(`^\d+\.\d+\.\d+$`).MatchString(Version) {
		t.Errorf("Version %q is not MAJOR.MINOR.PATCH", Version)
	}
}

func TestTXTRecordFits(t *testing.T) {
	// A single TXT string is limited to 255 bytes
	if n := len("version=" + Version); n > 255 {
		t.Errorf("version TXT record is %d bytes", n)
	}
}
