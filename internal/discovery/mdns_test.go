// ABOUTME: Tests for mDNS discovery
// ABOUTME: Tests TXT records and browse result conversion
package discovery

import (
	"net"
	"slices"
	"testing"

	"github.com/hashicorp/mdns"
)

func TestNewManager(t *testing.T) {
	config := Config{
		ServiceName: "Test Synth",
		Port:        8928,
	}

	mgr := NewManager(config)
	if mgr == nil {
		t.Fatal("expected manager to be created")
	}
	mgr.Stop()
}

func TestTxtRecords(t *testing.T) {
	mgr := NewManager(Config{ServiceName: "synth", Port: 8928, Path: "/stream", Version: "0.1.0"})
	defer mgr.Stop()

	txt := mgr.txtRecords()
	for _, want := range []string{"codec=pcm", "path=/stream", "version=0.1.0"} {
		if !slices.Contains(txt, want) {
			t.Errorf("TXT records %v missing %q", txt, want)
		}
	}
}

func TestServerFromEntry(t *testing.T) {
	tests := []struct {
		name  string
		entry *mdns.ServiceEntry
		want  *ServerInfo
	}{
		{"nil", nil, nil},
		{"no ipv4", &mdns.ServiceEntry{Name: "a", Port: 1}, nil},
		{
			"with path",
			&mdns.ServiceEntry{
				Name:       "studio." + ServiceType + ".local.",
				AddrV4:     net.IPv4(192, 168, 1, 20),
				Port:       8928,
				InfoFields: []string{"codec=pcm", "path=/custom"},
			},
			&ServerInfo{Name: "studio", Host: "192.168.1.20", Port: 8928, Path: "/custom"},
		},
		{
			"default path",
			&mdns.ServiceEntry{Name: "lab", AddrV4: net.IPv4(10, 0, 0, 5), Port: 9000},
			&ServerInfo{Name: "lab", Host: "10.0.0.5", Port: 9000, Path: "/stream"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serverFromEntry(tt.entry)
			if tt.want == nil {
				if got != nil {
					t.Errorf("expected nil, got %+v", got)
				}
				return
			}
			if got == nil || *got != *tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestServerInfoAddr(t *testing.T) {
	info := &ServerInfo{Host: "10.0.0.5", Port: 8928}
	if got := info.Addr(); got != "10.0.0.5:8928" {
		t.Errorf("expected 10.0.0.5:8928, got %s", got)
	}
}
