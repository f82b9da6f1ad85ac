package pretty_log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo)

	log.Debugf("hidden %d", 1)
	log.Infof("shown %d", 2)
	log.Warnf("careful")
	log.Errorf("broken\n")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INFO  shown 2")
	assert.Contains(t, out, "WARN  careful")
	assert.Contains(t, out, "ERROR broken")
	assert.Equal(t, 3, strings.Count(out, "\n"))
}

func TestNoColorsWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelDebug)

	log.TaskGroup("group")
	assert.NotContains(t, buf.String(), "\033[")
}

func TestTaskLifecycle(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo)

	id := log.BeginTask("Installing %s", "iperf3")
	assert.Len(t, log.tasks, 1)

	log.CompleteTask(id)
	assert.Empty(t, log.tasks)
	assert.Contains(t, buf.String(), "Installing iperf3 ...")
	assert.Contains(t, buf.String(), "Installing iperf3 done")

	id = log.BeginTask("Preparing")
	log.FailTask(id)
	assert.Contains(t, buf.String(), "Preparing failed")
}

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in       string
		expected Level
	}{
		{"debug", LevelDebug},
		{"WARN", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tCase := range testCases {
		assert.Equal(t, tCase.expected, ParseLevel(tCase.in), tCase.in)
	}
}
