// Package chip holds the interrupt topology of supported chip variants:
// peripheral source numbering, routable CPU lines, priority range and the
// acknowledge policy of each source. The interrupt package consumes these
// values opaquely.
package chip

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"intmux/interrupt"
)

var ErrUnknownVariant = errors.New("unknown chip variant")

// SourceInfo describes one peripheral interrupt source.
type SourceInfo struct {
	Name string
	ID   interrupt.Source
	Ack  interrupt.AckPolicy
	Kind interrupt.Kind
}

// Variant is the interrupt topology of one chip.
type Variant struct {
	Name        string
	Arch        string
	Cores       int
	Lines       interrupt.LineMask
	Reserved    interrupt.LineMask
	MaxPriority interrupt.Priority
	Sources     []SourceInfo
}

var variants = map[string]*Variant{}

func register(v *Variant) *Variant {
	variants[v.Name] = v
	return v
}

// Lookup returns the variant with the given name (case-insensitive).
func Lookup(name string) (*Variant, error) {
	v, ok := variants[strings.ToLower(name)]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownVariant, "%q", name)
	}
	return v, nil
}

// Names returns the names of all built-in variants.
func Names() []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	return names
}

// SourceByName looks up a source by its register-definition name.
func (v *Variant) SourceByName(name string) (SourceInfo, bool) {
	name = strings.ToUpper(name)
	for _, s := range v.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return SourceInfo{}, false
}

// Source looks up a source by number.
func (v *Variant) Source(id interrupt.Source) (SourceInfo, bool) {
	for _, s := range v.Sources {
		if s.ID == id {
			return s, true
		}
	}
	return SourceInfo{}, false
}

// SourceName returns the name of id, or its number when unknown.
func (v *Variant) SourceName(id interrupt.Source) string {
	if s, ok := v.Source(id); ok {
		return s.Name
	}
	return "SOURCE" + strconv.Itoa(int(id))
}

// Config builds the controller configuration for one core.
func (v *Variant) Config(core int) (interrupt.Config, error) {
	if core < 0 || core >= v.Cores {
		return interrupt.Config{}, errors.Errorf("%s has no core %d", v.Name, core)
	}

	n := 0
	for _, s := range v.Sources {
		if int(s.ID)+1 > n {
			n = int(s.ID) + 1
		}
	}
	acks := make([]interrupt.AckPolicy, n)
	for _, s := range v.Sources {
		acks[s.ID] = s.Ack
	}

	return interrupt.Config{
		Core:        core,
		Lines:       v.Lines,
		Reserved:    v.Reserved,
		MaxPriority: v.MaxPriority,
		Sources:     n,
		Acks:        acks,
	}, nil
}

// lineRange returns a mask of lines lo..hi inclusive.
func lineRange(lo, hi interrupt.Line) interrupt.LineMask {
	var m interrupt.LineMask
	for l := lo; l <= hi; l++ {
		m = m.With(l)
	}
	return m
}
