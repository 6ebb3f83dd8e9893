package chip

import (
	"testing"

	"github.com/pkg/errors"

	"intmux/interrupt"
)

func TestLookup(t *testing.T) {
	v, err := Lookup("ESP32C3")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if v != ESP32C3 {
		t.Error("Lookup returned a different variant")
	}

	if _, err := Lookup("esp8266"); !errors.Is(err, ErrUnknownVariant) {
		t.Errorf("expected ErrUnknownVariant, got %v", err)
	}
}

func TestSourceTablesAreConsistent(t *testing.T) {
	for _, name := range Names() {
		v, _ := Lookup(name)
		seenID := map[interrupt.Source]string{}
		seenName := map[string]bool{}
		for _, s := range v.Sources {
			if other, dup := seenID[s.ID]; dup {
				t.Errorf("%s: source %d named both %s and %s", name, s.ID, other, s.Name)
			}
			if seenName[s.Name] {
				t.Errorf("%s: duplicate source name %s", name, s.Name)
			}
			seenID[s.ID] = s.Name
			seenName[s.Name] = true
		}
		if v.Lines.Has(0) {
			t.Errorf("%s: line 0 marked routable", name)
		}
		if !v.MaxPriority.Valid(interrupt.MaxPriorityLevels) {
			t.Errorf("%s: max priority %d out of range", name, v.MaxPriority)
		}
	}
}

func TestVariantConfig(t *testing.T) {
	cfg, err := ESP32C3.Config(0)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Sources != 62 {
		t.Errorf("Sources = %d, want 62", cfg.Sources)
	}
	if cfg.Lines.Count() != 31 || !cfg.Reserved.Has(1) {
		t.Errorf("Lines %b Reserved %b", cfg.Lines, cfg.Reserved)
	}
	dma, _ := ESP32C3.SourceByName("dma_ch0")
	if cfg.Acks[dma.ID] != interrupt.AckBeforeHandler {
		t.Error("DMA_CH0 should be acknowledged before its handler")
	}

	if _, err := ESP32C3.Config(1); err == nil {
		t.Error("ESP32C3 has a single core")
	}
	if _, err := Sim32.Config(1); err != nil {
		t.Errorf("Sim32 core 1: %v", err)
	}
}

func TestSourceName(t *testing.T) {
	if got := Sim32.SourceName(0); got != "TIMER0" {
		t.Errorf("SourceName(0) = %q", got)
	}
	if got := Sim32.SourceName(99); got != "SOURCE99" {
		t.Errorf("SourceName(99) = %q", got)
	}
}
