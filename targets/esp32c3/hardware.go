//go:build tinygo && esp32c3

package main

import (
	"runtime/volatile"
	"unsafe"

	"intmux/interrupt"
)

// Interrupt matrix register block of core 0
const (
	intrBase = 0x600C2000

	intrMapOffset     = 0x000 // one map register per source
	intrStatusOffset  = 0x0F8 // two status words
	cpuIntEnable      = 0x104
	cpuIntType        = 0x108
	cpuIntClear       = 0x10C
	cpuIntEIPStatus   = 0x110
	cpuIntPriOffset   = 0x114 // one priority register per CPU line
	cpuIntThreshold   = 0x194
	matrixSourceCount = 62
)

func reg(offset uintptr) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(uintptr(intrBase) + offset))
}

// matrixHW drives the interrupt matrix and CPU interrupt controller.
// Peripheral acknowledge is delegated to the driver owning each source.
type matrixHW struct {
	acks [matrixSourceCount]func()
}

// setAck installs the acknowledge routine of src.
func (h *matrixHW) setAck(src interrupt.Source, ack func()) {
	if int(src) < matrixSourceCount {
		h.acks[src] = ack
	}
}

func (h *matrixHW) MapSource(src interrupt.Source, line interrupt.Line) {
	if int(src) >= matrixSourceCount {
		return
	}
	reg(intrMapOffset + 4*uintptr(src)).Set(uint32(line))
}

func (h *matrixHW) SetLinePriority(line interrupt.Line, p interrupt.Priority) {
	reg(cpuIntPriOffset + 4*uintptr(line)).Set(uint32(p))
}

func (h *matrixHW) SetLineKind(line interrupt.Line, k interrupt.Kind) {
	if k == interrupt.KindEdge {
		reg(cpuIntType).SetBits(1 << line)
	} else {
		reg(cpuIntType).ClearBits(1 << line)
	}
}

func (h *matrixHW) EnableLines(mask interrupt.LineMask) {
	reg(cpuIntEnable).Set(uint32(mask))
}

// SetThreshold writes one above p: the CPU takes lines at or above its
// threshold register.
func (h *matrixHW) SetThreshold(p interrupt.Priority) {
	reg(cpuIntThreshold).Set(uint32(p) + 1)
}

func (h *matrixHW) PendingLines() interrupt.LineMask {
	return interrupt.LineMask(reg(cpuIntEIPStatus).Get())
}

func (h *matrixHW) PendingSources() interrupt.SourceSet {
	var set interrupt.SourceSet
	set[0] = uint64(reg(intrStatusOffset).Get()) | uint64(reg(intrStatusOffset+4).Get())<<32
	return set
}

func (h *matrixHW) ClearLine(line interrupt.Line) {
	reg(cpuIntClear).SetBits(1 << line)
	reg(cpuIntClear).ClearBits(1 << line)
}

func (h *matrixHW) Acknowledge(src interrupt.Source) {
	if int(src) < matrixSourceCount && h.acks[src] != nil {
		h.acks[src]()
	}
}
