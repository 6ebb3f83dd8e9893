// Command intsim runs interrupt routing scenarios against the simulated
// matrix, interactively or from a script.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"intmux/chip"
	"intmux/config"
)

var (
	variant    = flag.String("variant", "", "Chip variant ("+strings.Join(chip.Names(), ", ")+")")
	configPath = flag.String("config", "", "Board configuration JSON file")
	script     = flag.String("script", "", "Run commands from a file instead of stdin")
	latch      = flag.String("latch", "", "Simulator latch mode: coalesce or count")
	debug      = flag.Bool("debug", false, "Print controller debug output")
)

func main() {
	flag.Parse()

	board, err := loadBoard()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	sh, err := NewShell(os.Stdout, board)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	defer sh.Close()

	in := io.Reader(os.Stdin)
	interactive := *script == "" && term.IsTerminal(int(os.Stdin.Fd()))
	if *script != "" {
		f, err := os.Open(*script)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	if interactive {
		fmt.Printf("intsim - %s core %d (type 'help' for available commands, 'quit' to exit)\n", board.Variant, board.Core)
	}
	if err := run(sh, in, interactive); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadBoard() (*config.Board, error) {
	board := config.DefaultBoard()
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return nil, err
		}
		if board, err = config.LoadConfig(data); err != nil {
			return nil, err
		}
	} else if *variant != "" {
		// A bare variant starts without routes: the default board's
		// sources belong to the simulator chip.
		board.Variant = *variant
		board.Routes = nil
	}

	if *latch != "" {
		board.Latch = *latch
	}
	if *debug {
		board.Debug = true
	}
	return board, board.Validate()
}

// run feeds lines to the shell. Interactive sessions report errors and go
// on; scripts stop at the first failing line.
func run(sh *Shell, in io.Reader, interactive bool) error {
	scanner := bufio.NewScanner(in)
	lineNo := 0
	for {
		if interactive {
			fmt.Print("> ")
		}
		if !scanner.Scan() {
			break
		}
		lineNo++

		err := sh.Exec(strings.TrimSpace(scanner.Text()))
		if err == errQuit {
			return nil
		}
		if err != nil {
			if !interactive {
				return fmt.Errorf("line %d: %w", lineNo, err)
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	return scanner.Err()
}
