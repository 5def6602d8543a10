// Package console implements the text command surface for controlling the
// engine: spawning macros by ID or name, cancelling, pausing and listing runs.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/roach88/macrology/internal/engine"
	"github.com/roach88/macrology/internal/macro"
)

// Command names.
const (
	CmdMacro  = "/mmacro"
	CmdCancel = "/mmcancel"
	CmdPause  = "/mmpause"
	CmdResume = "/mmresume"
	CmdList   = "/mmlist"
	CmdLogin  = "/mmlogin"
	CmdLogout = "/mmlogout"
	CmdHelp   = "/mmhelp"
)

// cancelAll is the /mmcancel argument that cancels every run.
const cancelAll = "all"

// CommandError is returned for a command that could not be carried out.
type CommandError struct {
	Command string
	Message string
}

func (e *CommandError) Error() string {
	if e.Command == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Message)
}

// ErrUnknownCommand is wrapped by errors for lines that are not console commands.
var ErrUnknownCommand = errors.New("unknown command")

// Console dispatches command lines to an engine.
type Console struct {
	engine *engine.Engine
	tree   *macro.Holder
	out    io.Writer
}

// New creates a console. Replies are written to out; tree is read on every
// command so reloads are picked up.
func New(e *engine.Engine, tree *macro.Holder, out io.Writer) *Console {
	return &Console{engine: e, tree: tree, out: out}
}

// Execute runs one command line. Blank lines are ignored.
func (c *Console) Execute(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	slog.Debug("console command", "command", name, "arg", arg)

	switch strings.ToLower(name) {
	case CmdMacro:
		return c.spawn(arg)
	case CmdCancel:
		return c.cancel(arg)
	case CmdPause:
		return c.eachRun(CmdPause, arg, c.engine.Pause, "pausing")
	case CmdResume:
		return c.eachRun(CmdResume, arg, c.engine.Resume, "resuming")
	case CmdList:
		return c.list()
	case CmdLogin:
		c.engine.OnLogin()
		c.reply("logged in")
		return nil
	case CmdLogout:
		c.engine.OnLogout()
		c.reply("logged out, all runs cancelled")
		return nil
	case CmdHelp:
		c.help()
		return nil
	default:
		return fmt.Errorf("%w %q (try %s)", ErrUnknownCommand, name, CmdHelp)
	}
}

// Run executes every line read from r until EOF or ctx is done. Command
// errors are reported on out and do not stop the loop.
//
// Lines are read on a separate goroutine so a read blocked on r does not
// delay cancellation. That goroutine exits when its read returns.
func (c *Console) Run(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	done := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		done <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-done:
			return err
		case line := <-lines:
			if err := c.Execute(line); err != nil {
				c.reply("error: %v", err)
			}
		}
	}
}

func (c *Console) spawn(ref string) error {
	if ref == "" {
		return &CommandError{Command: CmdMacro, Message: "usage: /mmacro <id|name>"}
	}

	m, err := c.tree.Tree().Lookup(ref)
	if err != nil {
		return &CommandError{Command: CmdMacro, Message: fmt.Sprintf("no macro matches %q", ref)}
	}

	runID := c.engine.Spawn(*m)
	if runID == "" {
		return &CommandError{Command: CmdMacro, Message: "not logged in"}
	}
	c.reply("started %q as run %s", m.Name, runID)
	return nil
}

func (c *Console) cancel(ref string) error {
	switch ref {
	case "":
		return &CommandError{Command: CmdCancel, Message: "usage: /mmcancel <run|id|name|all>"}
	case cancelAll:
		n := c.engine.CancelAll()
		c.reply("cancelling %d run(s)", n)
		return nil
	}

	if c.engine.IsRunning(ref) {
		c.engine.CancelRequest(ref)
		c.reply("cancelling run %s", ref)
		return nil
	}

	m, err := c.tree.Tree().Lookup(ref)
	if err != nil {
		return &CommandError{Command: CmdCancel, Message: fmt.Sprintf("no run or macro matches %q", ref)}
	}
	runID, ok := c.engine.CancelMacro(m.ID)
	if !ok {
		return &CommandError{Command: CmdCancel, Message: fmt.Sprintf("%q is not running", m.Name)}
	}
	c.reply("cancelling run %s of %q", runID, m.Name)
	return nil
}

// eachRun applies fn to the run ref names, or to every running instance of
// the macro ref names.
func (c *Console) eachRun(cmd, ref string, fn func(string), verb string) error {
	if ref == "" {
		return &CommandError{Command: cmd, Message: fmt.Sprintf("usage: %s <run|id|name>", cmd)}
	}

	if c.engine.IsRunning(ref) {
		fn(ref)
		c.reply("%s run %s", verb, ref)
		return nil
	}

	m, err := c.tree.Tree().Lookup(ref)
	if err != nil {
		return &CommandError{Command: cmd, Message: fmt.Sprintf("no run or macro matches %q", ref)}
	}

	n := 0
	for _, info := range c.engine.Running() {
		if info.MacroID == m.ID {
			fn(info.RunID)
			n++
		}
	}
	if n == 0 {
		return &CommandError{Command: cmd, Message: fmt.Sprintf("%q is not running", m.Name)}
	}
	c.reply("%s %d run(s) of %q", verb, n, m.Name)
	return nil
}

func (c *Console) list() error {
	runs := c.engine.Running()
	if len(runs) == 0 {
		c.reply("no macros running")
		return nil
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tMACRO\tLINE\tSTATUS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\n", r.RunID, r.MacroName, r.Line+1, r.Lines, r.Status)
	}
	return tw.Flush()
}

func (c *Console) help() {
	help := map[string]string{
		CmdMacro:  "<id|name>             start a macro",
		CmdCancel: "<run|id|name|all>     cancel a run, the oldest run of a macro, or everything",
		CmdPause:  "<run|id|name>         pause a run or every run of a macro",
		CmdResume: "<run|id|name>         resume a run or every run of a macro",
		CmdList:   "                      list running macros",
		CmdLogin:  "                      accept macros and deliver commands",
		CmdLogout: "                      stop delivery and cancel every run",
		CmdHelp:   "                      show this help",
	}
	names := make([]string, 0, len(help))
	for name := range help {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c.reply("%-10s %s", name, help[name])
	}
}

func (c *Console) reply(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}
