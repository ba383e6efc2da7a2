package routeros

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCommandFor(t *testing.T) {
	tests := []struct {
		resource string
		want     string
	}{
		{resource: "secrets", want: "/ppp/secret/print"},
		{resource: "profiles", want: "/ppp/profile/print"},
		{resource: "pools", want: "/ip/pool/print"},
		{resource: "interfaces", want: "/interface/print"},
		{resource: "active_ppp", want: "/ppp/active/print"},
	}

	for _, tt := range tests {
		t.Run(tt.resource, func(t *testing.T) {
			got, err := CommandFor(tt.resource)
			if err != nil {
				t.Fatalf("CommandFor(%q) error = %v", tt.resource, err)
			}
			if got != tt.want {
				t.Errorf("CommandFor(%q) = %q, want %q", tt.resource, got, tt.want)
			}
		})
	}
}

func TestFetchUnknownResourceFailsBeforeDial(t *testing.T) {
	// 192.0.2.0/24 is TEST-NET; if the executor dialed, this would block
	// until the timeout instead of failing instantly.
	start := time.Now()
	_, err := Fetch(context.Background(), Credentials{Host: "192.0.2.1", Port: 8728}, "dhcp_leases", 10*time.Second)
	if !errors.Is(err, ErrInvalidResource) {
		t.Fatalf("Fetch() error = %v, want ErrInvalidResource", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Fetch() attempted network I/O for an unknown resource")
	}
}

func TestParseDisabled(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  bool
	}{
		{name: "bool true", value: true, want: true},
		{name: "bool false", value: false, want: false},
		{name: "string true", value: "true", want: true},
		{name: "string yes", value: "yes", want: true},
		{name: "string one", value: "1", want: true},
		{name: "mixed case", value: "TRUE", want: true},
		{name: "string false", value: "false", want: false},
		{name: "string no", value: "no", want: false},
		{name: "empty string", value: "", want: false},
		{name: "nil", value: nil, want: false},
		{name: "number", value: 1, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseDisabled(tt.value); got != tt.want {
				t.Errorf("ParseDisabled(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
