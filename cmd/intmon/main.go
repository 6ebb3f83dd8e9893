// Command intmon prints the fault records a target streams over its log
// UART.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"intmux/chip"
	"intmux/faultlog"
	"intmux/host/serial"
)

var (
	device  = flag.String("device", "/dev/ttyUSB0", "Serial device path")
	baud    = flag.Int("baud", serial.DefaultBaud, "Baud rate")
	variant = flag.String("variant", "esp32c3", "Chip variant, for source names")
	input   = flag.String("file", "", "Decode a captured stream instead of a serial port")
)

func main() {
	flag.Parse()

	v, err := chip.Lookup(*variant)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var src io.ReadCloser
	follow := *input == ""
	if follow {
		cfg := serial.DefaultConfig(*device)
		cfg.Baud = *baud
		port, err := serial.Open(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		port.Flush()
		src = port
		fmt.Printf("Listening on %s at %d baud...\n", *device, *baud)
	} else {
		f, err := os.Open(*input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		src = f
	}
	defer src.Close()

	if err := monitor(src, os.Stdout, v, follow); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// monitor prints records until the stream ends. When follow is set an
// io.EOF is a read timeout and reading continues.
func monitor(r io.Reader, w io.Writer, v *chip.Variant, follow bool) error {
	fr := faultlog.NewReader(r)
	lost := 0
	for {
		rec, err := fr.Read()
		if err == io.EOF {
			if follow {
				continue
			}
			return nil
		}
		if errors.Is(err, faultlog.ErrBadRecord) {
			fmt.Fprintf(w, "%v\n", err)
			continue
		}
		if err != nil {
			return err
		}

		if n := fr.Lost(); n > lost {
			fmt.Fprintf(w, "(%d frame(s) lost)\n", n-lost)
			lost = n
		}
		fmt.Fprintf(w, "#%d core %d %s line %d %s: %s\n",
			rec.Seq, rec.Core, rec.Kind, rec.Line, v.SourceName(rec.Source), rec.Message)
	}
}
