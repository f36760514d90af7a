// Command opprobe is an interactive probe for a compiled rule table: it
// reads opcode values and reports which dispatch entry each one selects.
//
//	opprobe table.dsl
//	opprobe> 0x55
//	"0101'____" -> specific  (opcode&0xf0 == 0x50, entry 0, rule 0)
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog/log"

	"decodegen/pkg/decodegen"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: opprobe <table.dsl|table.yaml>")
		os.Exit(2)
	}
	path := os.Args[1]

	src, err := os.ReadFile(path)
	if err != nil {
		log.Error().Err(err).Msg("Error reading rule table")
		os.Exit(1)
	}

	var table *decodegen.Table
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		table, err = decodegen.CompileManifest(src, decodegen.Options{})
	} else {
		table, err = decodegen.Compile(string(src), decodegen.Options{})
	}
	if err != nil {
		log.Error().Err(err).Msg("Error compiling rule table")
		os.Exit(1)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "opprobe> ",
		HistoryFile:     "/tmp/opprobe_history",
		HistoryLimit:    500,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		log.Error().Err(err).Msg("Error initializing readline")
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Printf("Loaded %d dispatch entries (%d-bit opcodes). Enter an opcode, 'list', 'dump' or 'exit'.\n",
		len(table.Entries), table.Width)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("Error reading input")
			return
		}

		switch cmd := strings.TrimSpace(line); cmd {
		case "":
		case "exit", "quit":
			return
		case "list":
			for i, e := range table.Entries {
				fmt.Printf("%4d: %s\n", i, e)
			}
		case "dump":
			spew.Dump(table)
		default:
			probe(table, cmd)
		}
	}
}

func probe(table *decodegen.Table, input string) {
	opcode, err := strconv.ParseUint(input, 0, 64)
	if err != nil {
		fmt.Printf("not an opcode or command: %q\n", input)
		return
	}
	if opcode > maxOpcode(table.Width) {
		fmt.Printf("%#x does not fit a %d-bit opcode\n", opcode, table.Width)
		return
	}

	for i, e := range table.Entries {
		if !e.Matches(opcode) {
			continue
		}
		fmt.Printf("%q -> %s  (opcode&%#x == %#x, entry %d, rule %d)\n",
			e.Pattern, e.Handler, e.Mask, e.Expected, i, e.Rule)
		for j, c := range e.Bound {
			fmt.Printf("  arg %d = %s\n", j, c.Expr)
		}
		return
	}
	fmt.Printf("no entry matches %#x (the generated dispatcher would panic)\n", opcode)
}

func maxOpcode(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(width) - 1
}
