package serial

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyUSB0")
	if cfg.Baud != DefaultBaud || cfg.ReadTimeout != 100*time.Millisecond {
		t.Errorf("DefaultConfig = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no device", Config{Baud: 9600}},
		{"zero baud", Config{Device: "/dev/null"}},
		{"negative timeout", Config{Device: "/dev/null", Baud: 9600, ReadTimeout: -time.Second}},
	}
	for _, tt := range tests {
		if err := tt.cfg.Validate(); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(nil); err == nil {
		t.Error("Open(nil) succeeded")
	}
	if _, err := Open(DefaultConfig("/nonexistent/tty-intmux")); err == nil {
		t.Error("opened a device that does not exist")
	}
}
