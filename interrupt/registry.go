package interrupt

// Handler is the body run for a dispatched line.
type Handler func(line Line)

// Binding associates a CPU line with a handler and its dispatch mode.
type Binding struct {
	Handler Handler
	Mode    Mode
}

// Registry holds at most one binding per CPU line.
type Registry struct {
	matrix   *Matrix
	bindings [MaxLines]Binding
	bound    LineMask
}

func newRegistry(m *Matrix) *Registry {
	return &Registry{matrix: m}
}

// Register replaces the binding of line and returns the previous one, if
// any, so callers can restore it later.
func (r *Registry) Register(line Line, h Handler, mode Mode) (Binding, bool, error) {
	if !r.matrix.validLine(line) {
		return Binding{}, false, lineError(line)
	}
	if h == nil {
		return Binding{}, false, errNilHandler
	}
	prev, had := r.bindings[line], r.bound.Has(line)
	r.bindings[line] = Binding{Handler: h, Mode: mode}
	r.bound = r.bound.With(line)
	return prev, had, nil
}

// Unregister removes the binding of line and returns it.
func (r *Registry) Unregister(line Line) (Binding, bool, error) {
	if !r.matrix.validLine(line) {
		return Binding{}, false, lineError(line)
	}
	prev, had := r.bindings[line], r.bound.Has(line)
	r.bindings[line] = Binding{}
	r.bound = r.bound.Without(line)
	return prev, had, nil
}

// Lookup returns the binding of line.
func (r *Registry) Lookup(line Line) (Binding, bool) {
	if !r.bound.Has(line) {
		return Binding{}, false
	}
	return r.bindings[line], true
}

// Bound returns the lines that have a binding.
func (r *Registry) Bound() LineMask {
	return r.bound
}

func (r *Registry) reset() {
	r.bindings = [MaxLines]Binding{}
	r.bound = 0
}
