package parser

import "strings"

// Extractor pulls the value out of a line that matched a marker.
type Extractor func(line string) (string, bool)

// Marker binds a substring found in benchmark output to the field it fills.
type Marker struct {
	Field   string
	Substr  string
	Extract Extractor
}

const (
	FieldThreads         = "threads"
	FieldTotalTime       = "total_time"
	FieldEventsPerSecond = "events_per_second"
	FieldBlockSize       = "block_size"
	FieldTransferSpeed   = "transfer_speed"
	FieldLatencySum      = "latency_sum"
	FieldReadThroughput  = "read_throughput"
	FieldWriteThroughput = "write_throughput"
	FieldReadsPerSecond  = "reads_per_second"
	FieldWritesPerSecond = "writes_per_second"
	FieldFsyncsPerSecond = "fsyncs_per_second"
)

// AfterColon returns the trimmed text after the first colon.
func AfterColon(line string) (string, bool) {
	_, value, found := strings.Cut(line, ":")
	if !found {
		return "", false
	}
	return strings.TrimSpace(value), true
}

// InParens returns the text inside the first pair of parentheses.
func InParens(line string) (string, bool) {
	_, rest, found := strings.Cut(line, "(")
	if !found {
		return "", false
	}
	value, _, found := strings.Cut(rest, ")")
	if !found {
		return "", false
	}
	return value, true
}

var CPUMarkers = []Marker{
	{Field: FieldThreads, Substr: "Number of threads:", Extract: AfterColon},
	{Field: FieldTotalTime, Substr: "total time:", Extract: AfterColon},
	{Field: FieldEventsPerSecond, Substr: "events per second:", Extract: AfterColon},
}

var MemoryMarkers = []Marker{
	{Field: FieldBlockSize, Substr: "block size:", Extract: AfterColon},
	{Field: FieldTransferSpeed, Substr: "MiB transferred", Extract: InParens},
	{Field: FieldTotalTime, Substr: "total time:", Extract: AfterColon},
	{Field: FieldLatencySum, Substr: "sum:", Extract: AfterColon},
}

var FileIOMarkers = []Marker{
	{Field: FieldReadThroughput, Substr: "read, MiB/s:", Extract: AfterColon},
	{Field: FieldWriteThroughput, Substr: "written, MiB/s:", Extract: AfterColon},
	{Field: FieldReadsPerSecond, Substr: "reads/s:", Extract: AfterColon},
	{Field: FieldWritesPerSecond, Substr: "writes/s:", Extract: AfterColon},
	{Field: FieldFsyncsPerSecond, Substr: "fsyncs/s:", Extract: AfterColon},
	{Field: FieldLatencySum, Substr: "sum:", Extract: AfterColon},
}

// Scan walks output line by line. The first marker contained in a line consumes it,
// and a field keeps the first value it was given.
func Scan(output string, markers []Marker) map[string]*string {
	fields := make(map[string]*string, len(markers))

	for _, line := range strings.Split(output, "\n") {
		for _, marker := range markers {
			if !strings.Contains(line, marker.Substr) {
				continue
			}

			if _, seen := fields[marker.Field]; !seen {
				if value, ok := marker.Extract(line); ok {
					fields[marker.Field] = &value
				}
			}
			break
		}
	}

	return fields
}
