package interrupt

import "github.com/pkg/errors"

var (
	ErrRoutingConflict      = errors.New("routing conflict")
	ErrInvalidPriority      = errors.New("invalid interrupt priority")
	ErrInvalidLine          = errors.New("invalid CPU interrupt line")
	ErrInvalidSource        = errors.New("invalid interrupt source")
	ErrUnroutedInterrupt    = errors.New("unrouted interrupt")
	ErrMaskDiscipline       = errors.New("mask discipline violation")
	ErrWrongContext         = errors.New("not allowed from interrupt context")
	ErrNoFreeLine           = errors.New("no free CPU interrupt line")
	ErrNotBound             = errors.New("source not routed")
	ErrControllerPoisoned   = errors.New("controller stopped after mask discipline violation")
	errNilHandler           = errors.New("nil handler")
	errHardwareNotAvailable = errors.New("hardware not configured")
)

// RoutingConflictError is returned when a line already routes another source.
type RoutingConflictError struct {
	Source Source // source the caller tried to bind
	Line   Line
	Holder Source // source currently routed to Line
}

func (e *RoutingConflictError) Error() string {
	return "routing conflict: line " + utoa(uint32(e.Line)) +
		" already routes source " + utoa(uint32(e.Holder)) +
		", cannot bind source " + utoa(uint32(e.Source))
}

func (e *RoutingConflictError) Unwrap() error { return ErrRoutingConflict }

// UnroutedInterruptError describes a pending line with no handler. The
// dispatcher masks the line before reporting it.
type UnroutedInterruptError struct {
	Line   Line
	Source Source
	Routed bool // Source is meaningful
}

func (e *UnroutedInterruptError) Error() string {
	msg := "unrouted interrupt on line " + utoa(uint32(e.Line))
	if e.Routed {
		msg += " (source " + utoa(uint32(e.Source)) + ")"
	}
	return msg
}

func (e *UnroutedInterruptError) Unwrap() error { return ErrUnroutedInterrupt }

// MaskDisciplineError is fatal: the mask stack no longer matches control flow.
type MaskDisciplineError struct {
	Reason string
	Depth  int
}

func (e *MaskDisciplineError) Error() string {
	return "mask discipline violation: " + e.Reason + " at depth " + itoa(e.Depth)
}

func (e *MaskDisciplineError) Unwrap() error { return ErrMaskDiscipline }

func lineError(l Line) error {
	return errors.Wrapf(ErrInvalidLine, "line %d", l)
}

func priorityError(p, max Priority) error {
	return errors.Wrapf(ErrInvalidPriority, "priority %d outside 1..%d", p, max)
}

func sourceError(s Source) error {
	return errors.Wrapf(ErrInvalidSource, "source %d", s)
}
