//go:build !tinygo

package interrupt

// State is a placeholder for the global interrupt state on regular Go
type State uintptr

// disableInterrupts is a no-op on regular Go; the simulated hardware
// delivers traps synchronously on the calling goroutine.
func disableInterrupts() State {
	return 0
}

// restoreInterrupts is a no-op on regular Go
func restoreInterrupts(state State) {
}
