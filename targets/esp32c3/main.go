//go:build tinygo && esp32c3

// Firmware for ESP32-C3 boards: routes the software interrupt and a
// periodic self test through the controller and streams faults on UART0.
package main

import (
	"machine"
	"runtime/volatile"
	"time"
	"unsafe"

	"intmux/config"
	"intmux/faultlog"
	"intmux/interrupt"
)

// SYSTEM_CPU_INTR_FROM_CPU_0: writing 1 raises FROM_CPU_INTR0
const cpuIntrFromCPU0 = 0x600C0028

const boardJSON = `{
	"variant": "esp32c3",
	"trace_depth": 16,
	"routes": [
		{"source": "FROM_CPU_INTR0", "line": 9, "priority": 2}
	]
}`

var (
	hw       matrixHW
	ctrl     *interrupt.Controller
	ticks    uint32
	swIntReg = (*volatile.Register32)(unsafe.Pointer(uintptr(cpuIntrFromCPU0)))
)

func main() {
	machine.Serial.Configure(machine.UARTConfig{BaudRate: 115200})
	sink := faultlog.NewSink(machine.Serial)

	board, err := config.LoadConfig([]byte(boardJSON))
	if err != nil {
		halt("config: " + err.Error())
	}
	cfg, err := board.ControllerConfig()
	if err != nil {
		halt("config: " + err.Error())
	}
	cfg.Faults = sink
	cfg.Fatal = func(err error) { halt(err.Error()) }

	ctrl, err = interrupt.New(&hw, cfg)
	if err != nil {
		halt(err.Error())
	}
	installVectors(ctrl)

	hw.setAck(50, func() { swIntReg.Set(0) })
	if _, err := config.Apply(ctrl, board); err != nil {
		halt(err.Error())
	}
	if _, _, err := ctrl.Register(9, func(interrupt.Line) { ticks++ }, interrupt.ModeDeferred); err != nil {
		halt(err.Error())
	}

	for {
		swIntReg.Set(1)
		time.Sleep(100 * time.Millisecond)

		if _, err := ctrl.Pump(); err != nil {
			halt(err.Error())
		}
	}
}

// halt reports a fatal error and parks the core.
func halt(msg string) {
	machine.Serial.Write([]byte("FATAL: " + msg + "\r\n"))
	for {
		time.Sleep(time.Second)
	}
}
