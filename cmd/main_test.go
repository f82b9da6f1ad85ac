package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostbench/models"
	"hostbench/pkg/app/pretty_log"
	"hostbench/pkg/installer"
	"hostbench/pkg/report"
	"hostbench/pkg/runner"
)

type fakeRunner struct {
	commands []string
	fail     map[string]string
}

func (f *fakeRunner) Run(label string, cmd runner.Command) models.CommandOutcome {
	f.commands = append(f.commands, cmd.String())
	for substr, msg := range f.fail {
		if strings.Contains(cmd.String(), substr) {
			return models.CommandOutcome{Status: models.StatusError, Command: cmd.String(), Output: msg, Error: msg}
		}
	}
	return models.CommandOutcome{Status: models.StatusSuccess, Command: cmd.String(), Output: "sysbench 1.0.20"}
}

type fakeEnsurer struct {
	missing map[string]bool
}

func (f *fakeEnsurer) Ensure(tool installer.Tool) (string, error) {
	if f.missing[tool.Name] {
		return "", errors.New(tool.Name + " is not available")
	}
	return tool.Binary, nil
}

func writeConfig(t *testing.T, outputDir string) string {
	t.Helper()

	content := `enabled_tests: [cpu, fileio]
output_dir: ` + outputDir + `
sysinfo:
  enabled: false
cpu:
  single_thread:
    time: 1
fileio:
  test_modes:
    - mode: seqrd
    - mode: rndrw
`
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func rawResults(t *testing.T, outputDir string) *models.ResultSet {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(outputDir, "results_*", report.RawResultsFile))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	rs, err := report.ReadRaw(matches[0])
	require.NoError(t, err)
	return rs
}

func TestRunWithoutSysbenchExitsOne(t *testing.T) {
	out := t.TempDir()
	var buf bytes.Buffer
	r := &fakeRunner{}

	code := run(writeConfig(t, out), pretty_log.New(&buf, pretty_log.LevelInfo), r, &fakeEnsurer{missing: map[string]bool{"sysbench": true}})

	assert.Equal(t, 1, code)
	assert.Empty(t, r.commands)
	assert.Contains(t, buf.String(), "sysbench is not available")

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunWithFailingSubTestExitsZero(t *testing.T) {
	out := t.TempDir()
	r := &fakeRunner{fail: map[string]string{"prepare": "disk full"}}

	code := run(writeConfig(t, out), pretty_log.Discard(), r, &fakeEnsurer{})

	assert.Equal(t, 0, code)

	rs := rawResults(t, out)
	assert.Equal(t, models.StatusError, rs.BenchmarkResults["fileio_prepare"].Status)
	assert.Contains(t, rs.BenchmarkResults["fileio_prepare"].Error, "disk full")
	for _, key := range []string{"cpu_single_thread", "fileio_seqrd", "fileio_rndrw", "fileio_cleanup"} {
		assert.Equal(t, models.StatusSuccess, rs.BenchmarkResults[key].Status, key)
	}
	assert.NotContains(t, rs.BenchmarkResults, "cpu_multi_thread")
	assert.Contains(t, rs.SystemInfo, "host")
}

func TestRunWithUnwritableOutputExitsZero(t *testing.T) {
	out := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(out, nil, 0644))

	var buf bytes.Buffer
	code := run(writeConfig(t, out), pretty_log.New(&buf, pretty_log.LevelInfo), &fakeRunner{}, &fakeEnsurer{})

	assert.Equal(t, 0, code)
	assert.Contains(t, buf.String(), "Failed to create result directory")
	assert.Contains(t, buf.String(), "Failed to write results")
}

func TestRunReportFollowsConfiguredModeOrder(t *testing.T) {
	out := t.TempDir()

	code := run(writeConfig(t, out), pretty_log.Discard(), &fakeRunner{}, &fakeEnsurer{})
	require.Equal(t, 0, code)

	matches, err := filepath.Glob(filepath.Join(out, "results_*", report.ReportFile))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)

	seqrd := strings.Index(string(data), "File I/O - seqrd")
	rndrw := strings.Index(string(data), "File I/O - rndrw")
	require.True(t, seqrd >= 0 && rndrw >= 0)
	assert.Less(t, seqrd, rndrw)
}
