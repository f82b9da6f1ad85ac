package runner

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"hostbench/models"
	"hostbench/pkg/app/pretty_log"
)

func TestRunSuccess(t *testing.T) {
	r := New(pretty_log.Discard())

	outcome := r.Run("echo", NewCommand("echo", "Number of threads: 4"))

	assert.Equal(t, models.StatusSuccess, outcome.Status)
	assert.Equal(t, "Number of threads: 4\n", outcome.Output)
	assert.Empty(t, outcome.Error)
	assert.Equal(t, "echo Number of threads: 4", outcome.Command)
	assert.False(t, outcome.Timestamp.IsZero())
}

func TestRunNonZeroExitKeepsStdoutAndStderr(t *testing.T) {
	var buf bytes.Buffer
	r := New(pretty_log.New(&buf, pretty_log.LevelDebug))

	outcome := r.Run("fileio", NewCommand("sh", "-c", "echo partial; echo disk full >&2; exit 1"))

	assert.Equal(t, models.StatusError, outcome.Status)
	assert.Equal(t, "partial\n", outcome.Output)
	assert.Contains(t, outcome.Error, "disk full")
	assert.Contains(t, buf.String(), "INFO  Running fileio")
	assert.Contains(t, buf.String(), "Command: sh -c")
	assert.Contains(t, buf.String(), "ERROR fileio failed: disk full")
}

func TestRunLogsLabelWithoutTestWording(t *testing.T) {
	var buf bytes.Buffer
	r := New(pretty_log.New(&buf, pretty_log.LevelInfo))

	r.Run("install iperf3 (1/2)", NewCommand("true"))

	assert.Contains(t, buf.String(), "INFO  Running install iperf3 (1/2)")
	assert.NotContains(t, buf.String(), "Running test")
}

func TestRunMissingBinarySynthesizesMessage(t *testing.T) {
	r := New(pretty_log.Discard())

	outcome := r.Run("missing", NewCommand("hostbench-no-such-binary", "run"))

	assert.Equal(t, models.StatusError, outcome.Status)
	assert.Contains(t, outcome.Error, "hostbench-no-such-binary")
	assert.Contains(t, outcome.Output, "hostbench-no-such-binary")
}

func TestRunEmptyCommand(t *testing.T) {
	r := New(pretty_log.Discard())

	outcome := r.Run("empty", Command{})

	assert.Equal(t, models.StatusError, outcome.Status)
	assert.Equal(t, "empty command", outcome.Error)
}

func TestRunInDir(t *testing.T) {
	dir := t.TempDir()
	r := New(pretty_log.Discard())

	outcome := r.Run("pwd", NewCommand("pwd").InDir(dir))

	assert.Equal(t, models.StatusSuccess, outcome.Status)
	assert.Contains(t, outcome.Output, dir)
}

func TestRunTimestampIsUTC(t *testing.T) {
	r := New(pretty_log.Discard())
	fixed := time.Date(2026, 10, 17, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	r.now = func() time.Time { return fixed }

	outcome := r.Run("true", NewCommand("true"))

	assert.Equal(t, time.UTC, outcome.Timestamp.Location())
	assert.True(t, fixed.Equal(outcome.Timestamp))
}
