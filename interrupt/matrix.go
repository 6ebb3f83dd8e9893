package interrupt

// Route is one source-to-line routing as seen by diagnostics.
type Route struct {
	Source   Source
	Line     Line
	Priority Priority
	Kind     Kind
}

// Matrix maps peripheral sources onto CPU lines and records line priority.
// It writes the routing registers but never masks delivery; callers wrap
// changes to live lines in a critical section at or above the line's
// priority.
type Matrix struct {
	cfg *Config
	hw  Hardware

	lineOf   [MaxSources]Line // 0 = not routed
	sourceOf [MaxLines]Source
	routed   LineMask // lines carrying a source
	enabled  LineMask
	prio     [MaxLines]Priority
	kind     [MaxLines]Kind
}

func newMatrix(cfg *Config, hw Hardware) *Matrix {
	return &Matrix{cfg: cfg, hw: hw}
}

func (m *Matrix) validLine(l Line) bool {
	return l < MaxLines && m.cfg.Lines.Has(l)
}

func (m *Matrix) validSource(s Source) bool {
	return int(s) < m.cfg.Sources
}

// Bind routes source onto line at priority p. Binding a routed source to a
// new line moves it, so a source is never on two lines.
func (m *Matrix) Bind(source Source, line Line, p Priority) error {
	if !m.validSource(source) {
		return sourceError(source)
	}
	if !m.validLine(line) {
		return lineError(line)
	}
	if !p.Valid(m.cfg.MaxPriority) {
		return priorityError(p, m.cfg.MaxPriority)
	}
	if m.routed.Has(line) && m.sourceOf[line] != source {
		return &RoutingConflictError{Source: source, Line: line, Holder: m.sourceOf[line]}
	}

	if old := m.lineOf[source]; old != 0 && old != line {
		m.release(old)
	}

	m.lineOf[source] = line
	m.sourceOf[line] = source
	m.routed = m.routed.With(line)
	m.prio[line] = p

	m.hw.MapSource(source, line)
	m.hw.SetLinePriority(line, p)
	m.enable(line)
	return nil
}

// Unbind disconnects source from its line.
func (m *Matrix) Unbind(source Source) error {
	if !m.validSource(source) {
		return sourceError(source)
	}
	line := m.lineOf[source]
	if line == 0 {
		return ErrNotBound
	}
	m.hw.MapSource(source, 0)
	m.release(line)
	return nil
}

// release clears a line's routing and disables it
func (m *Matrix) release(line Line) {
	src := m.sourceOf[line]
	m.lineOf[src] = 0
	m.sourceOf[line] = 0
	m.routed = m.routed.Without(line)
	m.prio[line] = PriorityNone
	m.disable(line)
	m.hw.SetLinePriority(line, PriorityNone)
}

// Allocate binds source to the lowest free line that is not reserved. A
// source that is already routed keeps its line and takes the new priority.
func (m *Matrix) Allocate(source Source, p Priority) (Line, error) {
	if !m.validSource(source) {
		return 0, sourceError(source)
	}
	if line := m.lineOf[source]; line != 0 {
		return line, m.Bind(source, line, p)
	}
	free := m.cfg.Lines &^ m.cfg.Reserved &^ m.routed
	line, ok := free.Lowest()
	if !ok {
		return 0, ErrNoFreeLine
	}
	return line, m.Bind(source, line, p)
}

// SetKind selects level or edge latching for line.
func (m *Matrix) SetKind(line Line, k Kind) error {
	if !m.validLine(line) {
		return lineError(line)
	}
	m.kind[line] = k
	m.hw.SetLineKind(line, k)
	return nil
}

// PriorityOf returns the priority of line, PriorityNone when unrouted.
func (m *Matrix) PriorityOf(line Line) Priority {
	if line >= MaxLines {
		return PriorityNone
	}
	return m.prio[line]
}

// KindOf returns the latch kind of line.
func (m *Matrix) KindOf(line Line) Kind {
	if line >= MaxLines {
		return KindLevel
	}
	return m.kind[line]
}

// LineOf returns the line source is routed to.
func (m *Matrix) LineOf(source Source) (Line, bool) {
	if !m.validSource(source) {
		return 0, false
	}
	l := m.lineOf[source]
	return l, l != 0
}

// SourceOf returns the source routed to line.
func (m *Matrix) SourceOf(line Line) (Source, bool) {
	if !m.routed.Has(line) {
		return 0, false
	}
	return m.sourceOf[line], true
}

// LinesAt returns the routed lines in priority class p.
func (m *Matrix) LinesAt(p Priority) LineMask {
	var mask LineMask
	routed := m.routed
	for routed != 0 {
		l, _ := routed.Lowest()
		routed = routed.Without(l)
		if m.prio[l] == p {
			mask = mask.With(l)
		}
	}
	return mask
}

// Enabled returns the lines currently enabled at the CPU.
func (m *Matrix) Enabled() LineMask {
	return m.enabled
}

// Routed returns the lines carrying a source.
func (m *Matrix) Routed() LineMask {
	return m.routed
}

// Routes returns the current routing table ordered by line.
func (m *Matrix) Routes() []Route {
	routes := make([]Route, 0, m.routed.Count())
	routed := m.routed
	for routed != 0 {
		l, _ := routed.Lowest()
		routed = routed.Without(l)
		routes = append(routes, Route{
			Source:   m.sourceOf[l],
			Line:     l,
			Priority: m.prio[l],
			Kind:     m.kind[l],
		})
	}
	return routes
}

func (m *Matrix) enable(line Line) {
	if m.enabled.Has(line) {
		return
	}
	m.enabled = m.enabled.With(line)
	m.hw.EnableLines(m.enabled)
}

func (m *Matrix) disable(line Line) {
	if !m.enabled.Has(line) {
		return
	}
	m.enabled = m.enabled.Without(line)
	m.hw.EnableLines(m.enabled)
}

// reset disconnects every source and returns all lines to level, disabled,
// priority none.
func (m *Matrix) reset() {
	for src := 0; src < MaxSources; src++ {
		if m.lineOf[src] != 0 {
			m.hw.MapSource(Source(src), 0)
		}
	}
	m.lineOf = [MaxSources]Line{}
	m.sourceOf = [MaxLines]Source{}
	m.routed = 0
	m.enabled = 0
	m.hw.EnableLines(0)
	for l := Line(1); l < MaxLines; l++ {
		if !m.cfg.Lines.Has(l) {
			continue
		}
		m.prio[l] = PriorityNone
		m.kind[l] = KindLevel
		m.hw.SetLinePriority(l, PriorityNone)
		m.hw.SetLineKind(l, KindLevel)
	}
}
