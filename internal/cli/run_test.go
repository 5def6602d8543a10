package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/macrology/internal/store"
	"github.com/roach88/macrology/internal/testutil"
)

// runFixture returns a run command with isolated config and a function
// that executes it with args.
func runFixture(t *testing.T, args ...string) (*RunOptions, func() (string, string, error)) {
	t.Helper()
	isolateConfig(t)

	opts := &RunOptions{RootOptions: &RootOptions{Format: "text"}}
	cmd := newRunCommand(opts)

	return opts, func() (string, string, error) {
		return execute(t, cmd, args...)
	}
}

func TestRunMissingMacroArgument(t *testing.T) {
	_, execute := runFixture(t, "--library", writeLibrary(t, testLibrary))

	_, _, err := execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestRunUnknownMacro(t *testing.T) {
	_, execute := runFixture(t, "--library", writeLibrary(t, testLibrary), "--no-journal", "Nope")

	_, _, err := execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `macro "Nope" not found`)
}

func TestRunInvalidLibrary(t *testing.T) {
	_, execute := runFixture(t, "--library", writeLibrary(t, "nodes: ["), "--no-journal", "greet")

	_, _, err := execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load library")
}

func TestRunDeliversInOrder(t *testing.T) {
	_, execute := runFixture(t,
		"--library", writeLibrary(t, testLibrary),
		"--no-journal", "--tick", "1ms",
		"Greet")

	stdout, stderr, err := execute()
	require.NoError(t, err)
	assert.Equal(t, "/echo hello\n/echo world\n", stdout)
	assert.Contains(t, stderr, `started "Greet" as run`)
}

func TestRunSeveralMacros(t *testing.T) {
	_, execute := runFixture(t,
		"--library", writeLibrary(t, testLibrary),
		"--no-journal", "--tick", "1ms",
		"greet", "Farewell")

	stdout, _, err := execute()
	require.NoError(t, err)
	assert.Contains(t, stdout, "/echo hello\n")
	assert.Contains(t, stdout, "/echo bye\n")
	assert.Less(t, bytes.Index([]byte(stdout), []byte("hello")), bytes.Index([]byte(stdout), []byte("world")))
}

func TestRunJournalsRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	opts, execute := runFixture(t,
		"--library", writeLibrary(t, testLibrary),
		"--db", dbPath, "--tick", "1ms",
		"greet")
	opts.RunIDs = testutil.NewSequentialGenerator("run")

	_, _, err := execute()
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)
	assert.Equal(t, "greet", runs[0].MacroID)
	assert.Equal(t, "completed", runs[0].Status)

	dispatches, err := st.ListDispatches(context.Background(), runs[0].RunID)
	require.NoError(t, err)
	require.Len(t, dispatches, 2)
	assert.Equal(t, "/echo hello", dispatches[0].Command)
	assert.Equal(t, store.OutcomeDelivered, dispatches[0].Outcome)
}

func TestRunContinuesSeqAcrossSessions(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	lib := writeLibrary(t, testLibrary)

	for i := 0; i < 2; i++ {
		_, execute := runFixture(t, "--library", lib, "--db", dbPath, "--tick", "1ms", "farewell")
		_, _, err := execute()
		require.NoError(t, err)
	}

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Greater(t, runs[1].Seq, runs[0].Seq, "the second session continues the logical clock")
}

func TestRunTimeoutStopsLoopingMacro(t *testing.T) {
	_, execute := runFixture(t,
		"--library", writeLibrary(t, testLibrary),
		"--no-journal", "--tick", "1ms", "--timeout", "150ms",
		"Forever")

	done := make(chan struct{})
	var (
		stdout string
		err    error
	)
	go func() {
		defer close(done)
		stdout, _, err = execute()
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("run did not stop at its timeout")
	}
	require.NoError(t, err)
	assert.Contains(t, stdout, "/echo tick")
}

func TestRunContextCancel(t *testing.T) {
	isolateConfig(t)

	var buf bytes.Buffer
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"--library", writeLibrary(t, testLibrary), "--no-journal", "--tick", "1ms", "forever"})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- cmd.ExecuteContext(ctx)
	}()

	select {
	case err := <-errChan:
		assert.NoError(t, err, "cancellation is a clean shutdown")
	case <-time.After(2 * time.Second):
		t.Fatal("command did not respect context cancellation")
	}
}
