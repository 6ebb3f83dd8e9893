//go:build tinygo

package interrupt

import rtinterrupt "runtime/interrupt"

// disableInterrupts disables interrupts and returns the previous state
func disableInterrupts() rtinterrupt.State {
	return rtinterrupt.Disable()
}

// restoreInterrupts restores the interrupt state
func restoreInterrupts(state rtinterrupt.State) {
	rtinterrupt.Restore(state)
}
