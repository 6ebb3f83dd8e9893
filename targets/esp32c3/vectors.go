//go:build tinygo && esp32c3

package main

import (
	rtinterrupt "runtime/interrupt"

	"intmux/interrupt"
)

var vectorTarget *interrupt.Controller

// installVectors routes every CPU line exception to ctrl. The lines stay
// disabled until the controller enables them.
func installVectors(ctrl *interrupt.Controller) {
	vectorTarget = ctrl
	rtinterrupt.New(1, func(rtinterrupt.Interrupt) { vectorTarget.Trap(1) })
	rtinterrupt.New(2, func(rtinterrupt.Interrupt) { vectorTarget.Trap(2) })
	rtinterrupt.New(3, func(rtinterrupt.Interrupt) { vectorTarget.Trap(3) })
	rtinterrupt.New(4, func(rtinterrupt.Interrupt) { vectorTarget.Trap(4) })
	rtinterrupt.New(5, func(rtinterrupt.Interrupt) { vectorTarget.Trap(5) })
	rtinterrupt.New(6, func(rtinterrupt.Interrupt) { vectorTarget.Trap(6) })
	rtinterrupt.New(7, func(rtinterrupt.Interrupt) { vectorTarget.Trap(7) })
	rtinterrupt.New(8, func(rtinterrupt.Interrupt) { vectorTarget.Trap(8) })
	rtinterrupt.New(9, func(rtinterrupt.Interrupt) { vectorTarget.Trap(9) })
	rtinterrupt.New(10, func(rtinterrupt.Interrupt) { vectorTarget.Trap(10) })
	rtinterrupt.New(11, func(rtinterrupt.Interrupt) { vectorTarget.Trap(11) })
	rtinterrupt.New(12, func(rtinterrupt.Interrupt) { vectorTarget.Trap(12) })
	rtinterrupt.New(13, func(rtinterrupt.Interrupt) { vectorTarget.Trap(13) })
	rtinterrupt.New(14, func(rtinterrupt.Interrupt) { vectorTarget.Trap(14) })
	rtinterrupt.New(15, func(rtinterrupt.Interrupt) { vectorTarget.Trap(15) })
	rtinterrupt.New(16, func(rtinterrupt.Interrupt) { vectorTarget.Trap(16) })
	rtinterrupt.New(17, func(rtinterrupt.Interrupt) { vectorTarget.Trap(17) })
	rtinterrupt.New(18, func(rtinterrupt.Interrupt) { vectorTarget.Trap(18) })
	rtinterrupt.New(19, func(rtinterrupt.Interrupt) { vectorTarget.Trap(19) })
	rtinterrupt.New(20, func(rtinterrupt.Interrupt) { vectorTarget.Trap(20) })
	rtinterrupt.New(21, func(rtinterrupt.Interrupt) { vectorTarget.Trap(21) })
	rtinterrupt.New(22, func(rtinterrupt.Interrupt) { vectorTarget.Trap(22) })
	rtinterrupt.New(23, func(rtinterrupt.Interrupt) { vectorTarget.Trap(23) })
	rtinterrupt.New(24, func(rtinterrupt.Interrupt) { vectorTarget.Trap(24) })
	rtinterrupt.New(25, func(rtinterrupt.Interrupt) { vectorTarget.Trap(25) })
	rtinterrupt.New(26, func(rtinterrupt.Interrupt) { vectorTarget.Trap(26) })
	rtinterrupt.New(27, func(rtinterrupt.Interrupt) { vectorTarget.Trap(27) })
	rtinterrupt.New(28, func(rtinterrupt.Interrupt) { vectorTarget.Trap(28) })
	rtinterrupt.New(29, func(rtinterrupt.Interrupt) { vectorTarget.Trap(29) })
	rtinterrupt.New(30, func(rtinterrupt.Interrupt) { vectorTarget.Trap(30) })
	rtinterrupt.New(31, func(rtinterrupt.Interrupt) { vectorTarget.Trap(31) })
}
