package engine

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// commentPrefix marks a line that is dropped by ParseScript.
const commentPrefix = "#"

// waitPattern matches an inline wait annotation such as <wait.2.5>.
var waitPattern = regexp.MustCompile(`(?i)<wait\.(\d+(?:\.\d+)?)>`)

// ParseScript splits macro text into its executable lines.
//
// Empty lines and lines starting with '#' are dropped entirely; the remaining
// lines keep their original order. A trailing carriage return is removed so
// CRLF files behave like LF files. Any text is accepted, including text with
// no executable lines, in which case the result is empty.
func ParseScript(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// ExtractWait removes every <wait.N> annotation from *line and returns the
// delay requested by the last one.
//
// The tag is case-insensitive and N is a non-negative decimal number of
// seconds. If the line has no annotation it is left untouched and ok is false.
// If the last annotation's value cannot be represented as a time.Duration the
// tags are still removed but ok is false.
func ExtractWait(line *string) (wait time.Duration, ok bool) {
	matches := waitPattern.FindAllStringSubmatch(*line, -1)
	if len(matches) == 0 {
		return 0, false
	}

	*line = waitPattern.ReplaceAllString(*line, "")

	last := matches[len(matches)-1]
	return parseSeconds(last[1])
}

// parseSeconds converts a decimal number of seconds to a duration. Negative,
// non-finite and out-of-range values are rejected.
func parseSeconds(s string) (time.Duration, bool) {
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return 0, false
	}
	nanos := seconds * float64(time.Second)
	if nanos >= math.MaxInt64 {
		return 0, false
	}
	return time.Duration(nanos), true
}
