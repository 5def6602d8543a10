package engine

import (
	"log/slog"
	"strings"
	"time"
)

const (
	// loopDirective restarts the macro at its first line.
	loopDirective = "/loop"

	// defaultWaitDirective sets the sticky wait for later lines, in seconds.
	defaultWaitDirective = "/defaultwait"
)

// fastCommands are command names that only need FastCommandFloor after them.
var fastCommands = map[string]bool{
	"/ac":     true,
	"/action": true,
	"/e":      true,
	"/echo":   true,
}

// run owns inst for its whole life: it executes the lines, then deregisters
// the run and clears any flags left for it.
func (e *Engine) run(inst *Instance) {
	defer e.wg.Done()

	status := e.execute(inst)
	inst.setStatus(status)

	e.running.remove(inst.ID)
	e.cancelled.remove(inst.ID)
	e.paused.remove(inst.ID)

	e.observer.RunFinished(inst.Info())
	slog.Info("macro finished", "macro", inst.Macro.ID, "run", inst.ID, "status", status.String())
}

// execute is the runner state machine. It returns the terminal status.
func (e *Engine) execute(inst *Instance) Status {
	var (
		defaultWait    time.Duration
		hasDefaultWait bool

		// progressed records whether anything was dispatched since the last
		// restart, so a pass that only hits /loop backs off instead of spinning.
		progressed bool
	)

	for i := 0; i < len(inst.lines); {
		inst.line.Store(int64(i))

		if _, ok := e.cancelled.take(inst.ID); ok {
			slog.Debug("cancel honoured", "run", inst.ID, "line", i)
			return StatusCancelled
		}

		if e.paused.has(inst.ID) {
			inst.setStatus(StatusPaused)
			if !e.sleep(e.pausePoll) {
				return StatusCancelled
			}
			continue
		}
		inst.setStatus(StatusActive)

		command := inst.lines[i]
		wait, hasWait := ExtractWait(&command)
		if !hasWait && hasDefaultWait {
			wait, hasWait = defaultWait, true
		}

		directive := strings.TrimSpace(command)
		if directive == loopDirective {
			if !progressed && !e.sleep(FastCommandFloor) {
				return StatusCancelled
			}
			progressed = false
			i = 0
			continue
		}

		if strings.HasPrefix(directive, defaultWaitDirective+" ") {
			if d, ok := parseDefaultWait(command); ok {
				defaultWait, hasDefaultWait = d, true
			} else {
				slog.Debug("ignoring malformed default wait", "run", inst.ID, "line", directive)
			}
			i++
			continue
		}

		if !e.enqueue(inst, command) {
			return StatusCancelled
		}
		progressed = true

		if !hasWait {
			wait = commandFloor(command)
		}
		if !e.sleep(wait) {
			return StatusCancelled
		}

		i++
	}

	return StatusCompleted
}

// enqueue stamps command with the next seq and puts it on the delivery queue.
// Returns false if the queue has been closed by Close.
func (e *Engine) enqueue(inst *Instance, command string) bool {
	d := Dispatch{
		Seq:     e.clock.Next(),
		RunID:   inst.ID,
		MacroID: inst.Macro.ID,
		Command: command,
	}
	if !e.queue.Enqueue(d) {
		return false
	}
	slog.Debug("command queued", "run", inst.ID, "seq", d.Seq, "command", command)
	return true
}

// sleep waits for d or until the engine is closed. Returns false if the
// engine was closed.
func (e *Engine) sleep(d time.Duration) bool {
	if d <= 0 {
		return e.ctx.Err() == nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-e.ctx.Done():
		return false
	}
}

// parseDefaultWait reads the seconds token of a "/defaultwait N" line.
// Tokens are split on single spaces of the untrimmed line, so leading or
// doubled spaces leave an empty token that does not parse.
func parseDefaultWait(command string) (time.Duration, bool) {
	tokens := strings.Split(command, " ")
	if len(tokens) < 2 {
		return 0, false
	}
	return parseSeconds(tokens[1])
}

// commandFloor returns the minimum delay after command when no wait applies.
// The command name is everything before the first space.
func commandFloor(command string) time.Duration {
	name, _, _ := strings.Cut(command, " ")
	if fastCommands[name] {
		return FastCommandFloor
	}
	return CommandFloor
}
