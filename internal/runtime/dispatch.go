// Package runtime walks a compiled decision table at runtime, for consumers
// that embed the compiler directly instead of generating source. Dispatch
// performs no mutation and reads no shared state, so any number of
// goroutines may dispatch concurrently once the handler registry is
// populated.
package runtime

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"decodegen/internal/compiler/decision"
	"decodegen/internal/rules"
)

// HandlerFunc executes one decoded instruction. ctx is the execution
// context declared by the rule table; args are the entry's bound constant
// values in declaration order.
type HandlerFunc func(ctx any, opcode uint64, args []any)

// UnhandledOpcodeError reports an opcode matched by no entry.
type UnhandledOpcodeError struct {
	Opcode uint64
	Width  int
}

func (e *UnhandledOpcodeError) Error() string {
	return fmt.Sprintf("unhandled opcode: %#0*x", e.Width/4+2, e.Opcode)
}

// Dispatcher executes a compiled decision table. Entries are evaluated
// strictly in table order; the first match wins.
type Dispatcher struct {
	table    *decision.Table
	handlers map[string]HandlerFunc
	fallback HandlerFunc
}

// NewDispatcher creates a dispatcher over the given table with an empty
// handler registry.
func NewDispatcher(table *decision.Table) *Dispatcher {
	return &Dispatcher{
		table:    table,
		handlers: make(map[string]HandlerFunc),
	}
}

// Register binds a handler name from the rule table to its implementation.
func (d *Dispatcher) Register(name string, h HandlerFunc) {
	d.handlers[name] = h
}

// OnUnmatched installs a fallback for opcodes matched by no entry,
// replacing the fatal default.
func (d *Dispatcher) OnUnmatched(h HandlerFunc) {
	d.fallback = h
}

// Validate checks that every handler the table references is registered.
func (d *Dispatcher) Validate() error {
	for _, e := range d.table.Entries {
		if _, ok := d.handlers[e.Handler]; !ok {
			return fmt.Errorf("no handler registered for %q (pattern %q)", e.Handler, e.Pattern)
		}
	}
	return nil
}

// Dispatch finds the first entry matching opcode and invokes its handler
// with the entry's bound values. An unmatched opcode panics with an
// UnhandledOpcodeError unless a fallback is installed; a matched entry
// whose handler was never registered also panics, since the table was
// validated against a registry the caller has since broken.
func (d *Dispatcher) Dispatch(ctx any, opcode uint64) {
	entry, ok := d.table.Lookup(opcode)
	if !ok {
		if d.fallback != nil {
			d.fallback(ctx, opcode, nil)
			return
		}
		panic(&UnhandledOpcodeError{Opcode: opcode, Width: d.table.Width})
	}

	h, ok := d.handlers[entry.Handler]
	if !ok {
		panic(fmt.Sprintf("no handler registered for %q", entry.Handler))
	}

	log.Debug().
		Uint64("opcode", opcode).
		Str("handler", entry.Handler).
		Msg("Dispatching opcode")
	h(ctx, opcode, boundValues(entry.Bound))
}

func boundValues(bound []rules.Constant) []any {
	if len(bound) == 0 {
		return nil
	}
	values := make([]any, len(bound))
	for i, c := range bound {
		values[i] = c.Value
	}
	return values
}
