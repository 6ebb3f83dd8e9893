package interrupt

import "testing"

// fakeHardware records register writes. Acknowledging a source clears the
// pending bit of the line it is mapped to. It never delivers traps on its
// own; tests call Trap directly.
type fakeHardware struct {
	routes     [MaxSources]Line
	prio       [MaxLines]Priority
	kind       [MaxLines]Kind
	enabled    LineMask
	threshold  Priority
	thresholds []Priority
	pending    LineMask
	sources    SourceSet
	acks       []Source
	cleared    []Line
}

func (f *fakeHardware) MapSource(src Source, line Line)       { f.routes[src] = line }
func (f *fakeHardware) SetLinePriority(line Line, p Priority) { f.prio[line] = p }
func (f *fakeHardware) SetLineKind(line Line, k Kind)         { f.kind[line] = k }
func (f *fakeHardware) EnableLines(mask LineMask)             { f.enabled = mask }
func (f *fakeHardware) PendingLines() LineMask                { return f.pending }
func (f *fakeHardware) PendingSources() SourceSet             { return f.sources }

func (f *fakeHardware) SetThreshold(p Priority) {
	f.threshold = p
	f.thresholds = append(f.thresholds, p)
}

func (f *fakeHardware) ClearLine(line Line) {
	f.cleared = append(f.cleared, line)
	f.pending = f.pending.Without(line)
}

func (f *fakeHardware) Acknowledge(src Source) {
	f.acks = append(f.acks, src)
	f.sources.Remove(src)
	if l := f.routes[src]; l != 0 {
		f.pending = f.pending.Without(l)
	}
}

// assert latches src and its line the way a peripheral would
func (f *fakeHardware) assert(src Source) {
	f.sources.Add(src)
	if l := f.routes[src]; l != 0 {
		f.pending = f.pending.With(l)
	}
}

type faultRecorder struct {
	faults []Fault
}

func (r *faultRecorder) Report(f Fault) {
	r.faults = append(r.faults, f)
}

// newTestController builds a controller over a fake with 32 sources, lines
// 1-31 and priorities 1-15. Fatal records instead of panicking.
func newTestController(t *testing.T) (*Controller, *fakeHardware, *faultRecorder, *[]error) {
	t.Helper()
	hw := &fakeHardware{}
	rec := &faultRecorder{}
	fatals := &[]error{}
	c, err := New(hw, Config{
		Sources:     32,
		MaxPriority: 15,
		Faults:      rec,
		Fatal:       func(err error) { *fatals = append(*fatals, err) },
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c, hw, rec, fatals
}
