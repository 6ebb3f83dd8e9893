package interrupt

// Hardware is the register interface of one core's interrupt matrix and CPU
// interrupt controller. Target code implements it over memory-mapped
// registers; the sim package implements it for host builds and tests.
type Hardware interface {
	// MapSource writes the matrix map register of src. Line 0 disconnects it.
	MapSource(src Source, line Line)

	// SetLinePriority writes the priority register of a CPU line.
	SetLinePriority(line Line, p Priority)

	// SetLineKind selects level or edge latching for a CPU line.
	SetLineKind(line Line, k Kind)

	// EnableLines writes the CPU line enable register.
	EnableLines(mask LineMask)

	// SetThreshold writes the CPU priority threshold. Lines at or below it
	// are held pending.
	SetThreshold(p Priority)

	// PendingLines reads the CPU cause register.
	PendingLines() LineMask

	// PendingSources reads the matrix status registers.
	PendingSources() SourceSet

	// ClearLine clears the edge latch of a CPU line.
	ClearLine(line Line)

	// Acknowledge clears the peripheral-side latch of src.
	Acknowledge(src Source)
}
