package engine

import (
	"strings"
	"time"
)

// StepKind classifies an executable line.
type StepKind string

const (
	StepCommand     StepKind = "command"
	StepLoop        StepKind = "loop"
	StepDefaultWait StepKind = "defaultwait"
)

// Where a command's wait comes from.
const (
	WaitFromTag     = "tag"
	WaitFromDefault = "default"
	WaitFromFloor   = "floor"
)

// Step is one executable line as a runner interprets it on its first pass.
type Step struct {
	// Index is the 1-based position among executable lines.
	Index int      `json:"index"`
	Kind  StepKind `json:"kind"`
	// Source is the line as written.
	Source string `json:"source"`
	// Command is the text that would be enqueued, for StepCommand.
	Command string `json:"command,omitempty"`
	// Wait is the delay after the command, or the new default for
	// StepDefaultWait.
	Wait       time.Duration `json:"wait"`
	WaitSource string        `json:"wait_source,omitempty"`
	// Ignored marks an unusable wait tag or a malformed /defaultwait.
	Ignored bool `json:"ignored,omitempty"`
	// Unreachable marks a line after the first /loop.
	Unreachable bool `json:"unreachable,omitempty"`
}

// Plan describes how text would run without running it. It applies the same
// rules as a runner: wait tags, the sticky default wait and command floors.
// Steps after the first loop are still listed, marked Unreachable.
func Plan(text string) []Step {
	var (
		steps          []Step
		defaultWait    time.Duration
		hasDefaultWait bool
		looped         bool
	)

	for i, line := range ParseScript(text) {
		step := Step{Index: i + 1, Source: line, Unreachable: looped}

		command := line
		wait, hasWait := ExtractWait(&command)
		badTag := !hasWait && command != line
		if hasWait {
			step.WaitSource = WaitFromTag
		} else if hasDefaultWait {
			wait, hasWait = defaultWait, true
			step.WaitSource = WaitFromDefault
		}

		directive := strings.TrimSpace(command)
		switch {
		case directive == loopDirective:
			step.Kind = StepLoop
			step.WaitSource = ""
			wait = 0
			looped = true

		case strings.HasPrefix(directive, defaultWaitDirective+" "):
			step.Kind = StepDefaultWait
			step.WaitSource = ""
			if d, ok := parseDefaultWait(command); ok {
				defaultWait, hasDefaultWait = d, true
				wait = d
			} else {
				step.Ignored = true
				wait = 0
			}

		default:
			step.Kind = StepCommand
			step.Command = command
			step.Ignored = badTag
			if !hasWait {
				wait = commandFloor(command)
				step.WaitSource = WaitFromFloor
			}
		}

		step.Wait = wait
		steps = append(steps, step)
	}
	return steps
}
