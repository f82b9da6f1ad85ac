package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/olekukonko/tablewriter"

	"hostbench/models"
	"hostbench/pkg/app"
	"hostbench/pkg/benchmark"
	"hostbench/pkg/parser"
)

const (
	RawResultsFile = "raw_results.json"
	ReportFile     = "report.txt"
)

// WriteError names the artifact that could not be produced
type WriteError struct {
	Artifact string
	Path     string
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s to %s: %s", e.Artifact, e.Path, e.Err.Error())
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Writer produces the artifacts of a run inside Dir
type Writer struct {
	Dir string
	// FileIOModes is the configured order of the file I/O sections
	FileIOModes []string
}

func New(dir string, fileioModes []string) *Writer {
	return &Writer{Dir: dir, FileIOModes: fileioModes}
}

func (w *Writer) RawPath() string {
	return filepath.Join(w.Dir, RawResultsFile)
}

func (w *Writer) ReportPath() string {
	return filepath.Join(w.Dir, ReportFile)
}

// Write dumps rs to raw_results.json and renders report.txt.
// Both are always attempted, failures come back together.
func (w *Writer) Write(rs *models.ResultSet) error {
	var result *multierror.Error

	err := writeRaw(w.RawPath(), rs)
	if err != nil {
		result = multierror.Append(result, &WriteError{Artifact: "raw results", Path: w.RawPath(), Err: err})
	}

	var report strings.Builder
	Render(&report, rs, w.FileIOModes)
	err = os.WriteFile(w.ReportPath(), []byte(report.String()), 0644)
	if err != nil {
		result = multierror.Append(result, &WriteError{Artifact: "report", Path: w.ReportPath(), Err: err})
	}

	return result.ErrorOrNil()
}

func writeRaw(path string, rs *models.ResultSet) error {
	data, err := json.MarshalIndent(rs, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadRaw loads a result set previously written by Write
func ReadRaw(path string) (*models.ResultSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rs models.ResultSet
	err = json.Unmarshal(data, &rs)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &rs, nil
}

// Render writes the human readable summary of rs.
// A section only appears when its sub-test ran and succeeded.
// File I/O sections follow fileioModes, then any other known mode.
func Render(w io.Writer, rs *models.ResultSet, fileioModes []string) {
	fmt.Fprintln(w, "Benchmark report")
	fmt.Fprintf(w, "Run: %s\n", rs.RunID)
	fmt.Fprintf(w, "Started: %s\n", rs.StartedAt.Format(time.RFC3339))
	fmt.Fprintln(w, strings.Repeat("=", 50))

	if len(rs.SystemInfo) > 0 {
		section(w, "System information", systemInfoRows(rs.SystemInfo))
	}

	cpuPasses := []struct{ key, title string }{
		{benchmark.TestCPUSingleThread, "CPU - single thread"},
		{benchmark.TestCPUMultiThread, "CPU - multi thread"},
	}
	for _, pass := range cpuPasses {
		if outcome, ok := rs.Succeeded(pass.key); ok {
			m := parser.ParseCPU(outcome.Output)
			section(w, pass.title, [][]string{
				{"Threads", value(m.Threads)},
				{"Total time", value(m.TotalTime)},
				{"Events per second", value(m.EventsPerSecond)},
			})
		}
	}

	if outcome, ok := rs.Succeeded(benchmark.TestMemory); ok {
		m := parser.ParseMemory(outcome.Output)
		section(w, "Memory", [][]string{
			{"Block size", value(m.BlockSize)},
			{"Transfer speed", value(m.TransferSpeed)},
			{"Total time", value(m.TotalTime)},
			{"Latency sum (ms)", value(m.LatencySum)},
		})
	}

	for _, mode := range modeOrder(fileioModes) {
		outcome, ok := rs.Succeeded(benchmark.FileIOTestName(mode))
		if !ok {
			continue
		}
		m := parser.ParseFileIO(outcome.Output)
		rows := [][]string{
			{"Read (MiB/s)", value(m.ReadThroughput)},
		}
		if m.WriteThroughput != nil {
			rows = append(rows, []string{"Written (MiB/s)", *m.WriteThroughput})
		}
		rows = append(rows,
			[]string{"Reads/s", value(m.ReadsPerSecond)},
			[]string{"Writes/s", value(m.WritesPerSecond)},
			[]string{"Fsyncs/s", value(m.FsyncsPerSecond)},
			[]string{"Latency sum (ms)", value(m.LatencySum)},
		)
		section(w, "File I/O - "+mode, rows)
	}

	if outcome, ok := rs.Succeeded(benchmark.TestNetwork); ok {
		m := parser.ParseNetwork(outcome.Output)
		if m.ParseError != "" {
			section(w, "Network", [][]string{{"Error", m.ParseError}})
		} else {
			retransmits := "n/a"
			if m.Retransmits != nil {
				retransmits = strconv.FormatInt(*m.Retransmits, 10)
			}
			section(w, "Network", [][]string{
				{"Sent", m.SentBitrate},
				{"Received", m.ReceivedBitrate},
				{"Retransmits", retransmits},
			})
		}
	}
}

func modeOrder(configured []string) []string {
	var modes []string
	seen := make(map[string]bool)
	for _, mode := range append(append([]string(nil), configured...), app.FileIOModes...) {
		if seen[mode] {
			continue
		}
		seen[mode] = true
		modes = append(modes, mode)
	}
	return modes
}

func section(w io.Writer, title string, rows [][]string) {
	fmt.Fprintf(w, "\n%s\n", title)
	fmt.Fprintln(w, strings.Repeat("-", 30))

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"Metric", "Value"})
	table.AppendBulk(rows)
	table.Render()
}

func value(s *string) string {
	if s == nil {
		return "n/a"
	}
	return *s
}

// systemInfoRows flattens scalars and one level of nested objects into dotted keys
func systemInfoRows(info map[string]interface{}) [][]string {
	var rows [][]string
	for _, key := range sortedKeys(info) {
		switch v := info[key].(type) {
		case map[string]interface{}:
			for _, child := range sortedKeys(v) {
				if s, ok := scalar(v[child]); ok {
					rows = append(rows, []string{key + "." + child, s})
				}
			}
		default:
			if s, ok := scalar(v); ok {
				rows = append(rows, []string{key, s})
			}
		}
	}
	return rows
}

func scalar(v interface{}) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	default:
		return "", false
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
