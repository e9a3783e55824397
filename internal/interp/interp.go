// Package interp parses and dispatches the simulator command
// language. One call handles one input line; responses and errors are
// written to the configured output with the "< " prefix, and control
// always returns to the caller except for the end command.
package interp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"ChordSim/internal/domain"
	"ChordSim/internal/logger"
	"ChordSim/internal/ring"
)

// ErrEnd is returned by Execute when the end command is read; the
// driver terminates cleanly on it.
var ErrEnd = errors.New("end of session")

// arity maps each command to its expected parameter count.
var arity = map[string]int{
	"end":  0,
	"list": 0,
	"help": 0,
	"add":  1,
	"drop": 1,
	"stab": 1,
	"fix":  1,
	"show": 1,
	"join": 2,
}

// Interpreter validates and executes command lines against a ring.
type Interpreter struct {
	space domain.Space
	r     *ring.Ring
	out   io.Writer
	lgr   logger.Logger
}

type Option func(*Interpreter)

func WithLogger(l logger.Logger) Option {
	return func(it *Interpreter) {
		it.lgr = l
	}
}

// New returns an interpreter writing responses to out.
func New(space domain.Space, r *ring.Ring, out io.Writer, opts ...Option) *Interpreter {
	it := &Interpreter{
		space: space,
		r:     r,
		out:   out,
		lgr:   &logger.NopLogger{},
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// Execute runs a single command line. Blank lines and lines starting
// with '#' are ignored. Per-command failures are reported on the
// output and swallowed; the only non-nil return is ErrEnd.
func (it *Interpreter) Execute(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	tokens := strings.Fields(line)
	cmd := tokens[0]
	args := tokens[1:]

	expected, known := arity[cmd]
	if !known {
		it.printf("ERROR: invalid command")
		return nil
	}
	if len(args) != expected {
		it.printf("SYNTAX ERROR: %s expects %d parameters not %d", cmd, expected, len(args))
		return nil
	}

	it.lgr.Debug("executing command", logger.F("cmd", cmd), logger.F("args", args))

	switch cmd {
	case "end":
		return ErrEnd
	case "list":
		it.list()
	case "help":
		it.help()
	case "add":
		it.add(args[0])
	case "drop":
		it.drop(args[0])
	case "join":
		it.join(ctx, args[0], args[1])
	case "stab":
		it.stab(args[0])
	case "fix":
		it.fix(ctx, args[0])
	case "show":
		it.show(args[0])
	}
	return nil
}

func (it *Interpreter) printf(format string, args ...interface{}) {
	fmt.Fprintf(it.out, "< "+format+"\n", args...)
}

// parseID validates a decimal argument against the identifier space,
// reporting parse and range failures itself. The bool result tells
// the caller whether to proceed.
func (it *Interpreter) parseID(tok string) (domain.ID, bool) {
	id, err := it.space.FromDecimalString(tok)
	switch {
	case errors.Is(err, domain.ErrNotInteger):
		it.printf("ERROR: invalid integer %s", tok)
		return nil, false
	case errors.Is(err, domain.ErrIDOutOfRange):
		it.printf("ERROR: node id must be in [0,%s)", it.space.Size().String())
		return nil, false
	case err != nil:
		it.printf("ERROR: invalid integer %s", tok)
		return nil, false
	}
	return id, true
}

// report maps ring errors onto the command-language error lines.
func (it *Interpreter) report(err error) {
	var ne *ring.NodeError
	switch {
	case errors.As(err, &ne) && errors.Is(err, ring.ErrNodeNotFound):
		it.printf("ERROR: Node %s does not exist", ne.ID.Decimal())
	case errors.As(err, &ne) && errors.Is(err, ring.ErrNodeExists):
		it.printf("ERROR: Node %s exists", ne.ID.Decimal())
	default:
		it.printf("ERROR: %v", err)
	}
}

func (it *Interpreter) list() {
	it.printf("Nodes: %s", domain.FormatList(it.r.IDs(), ", "))
}

func (it *Interpreter) add(tok string) {
	id, ok := it.parseID(tok)
	if !ok {
		return
	}
	if err := it.r.Add(id); err != nil {
		it.report(err)
		return
	}
	it.printf("Added node %s", id.Decimal())
}

func (it *Interpreter) drop(tok string) {
	id, ok := it.parseID(tok)
	if !ok {
		return
	}
	if err := it.r.Drop(id); err != nil {
		it.report(err)
		return
	}
	it.printf("Dropped node %s", id.Decimal())
}

func (it *Interpreter) join(ctx context.Context, joinTok, bootTok string) {
	joiner, ok := it.parseID(joinTok)
	if !ok {
		return
	}
	bootstrap, ok := it.parseID(bootTok)
	if !ok {
		return
	}
	if err := it.r.Join(ctx, joiner, bootstrap); err != nil {
		it.report(err)
	}
}

func (it *Interpreter) stab(tok string) {
	id, ok := it.parseID(tok)
	if !ok {
		return
	}
	if err := it.r.Stabilize(id); err != nil {
		it.report(err)
	}
}

func (it *Interpreter) fix(ctx context.Context, tok string) {
	id, ok := it.parseID(tok)
	if !ok {
		return
	}
	if err := it.r.FixFingers(ctx, id); err != nil {
		it.report(err)
	}
}

func (it *Interpreter) show(tok string) {
	id, ok := it.parseID(tok)
	if !ok {
		return
	}
	n, err := it.r.Node(id)
	if err != nil {
		it.report(err)
		return
	}
	it.printf("Node %s: suc %s, pre %s: finger %s",
		n.ID.Decimal(),
		n.Successor().Decimal(),
		n.Predecessor.Decimal(),
		domain.FormatList(n.Fingers, ","))
}

func (it *Interpreter) help() {
	it.printf("Commands:")
	it.printf("  add N      add node N to the topology")
	it.printf("  drop N     remove node N")
	it.printf("  join F T   join F to the ring via bootstrap T")
	it.printf("  stab N     run one stabilization round at N")
	it.printf("  fix N      refresh N's finger table")
	it.printf("  show N     print N's routing state")
	it.printf("  list       print all node ids")
	it.printf("  end        exit")
}
