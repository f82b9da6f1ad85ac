// Package parser turns raw benchmark output into normalized metrics.
//
// sysbench output is scanned with per-category marker tables (see markers.go).
// iperf3 output is decoded as its JSON report.
package parser

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"hostbench/models"
)

func ParseCPU(output string) models.CPUMetrics {
	fields := Scan(output, CPUMarkers)
	return models.CPUMetrics{
		Threads:         fields[FieldThreads],
		TotalTime:       fields[FieldTotalTime],
		EventsPerSecond: fields[FieldEventsPerSecond],
	}
}

func ParseMemory(output string) models.MemoryMetrics {
	fields := Scan(output, MemoryMarkers)
	return models.MemoryMetrics{
		BlockSize:     fields[FieldBlockSize],
		TransferSpeed: fields[FieldTransferSpeed],
		TotalTime:     fields[FieldTotalTime],
		LatencySum:    fields[FieldLatencySum],
	}
}

func ParseFileIO(output string) models.FileIOMetrics {
	fields := Scan(output, FileIOMarkers)
	return models.FileIOMetrics{
		ReadThroughput:  fields[FieldReadThroughput],
		WriteThroughput: fields[FieldWriteThroughput],
		LatencySum:      fields[FieldLatencySum],
		ReadsPerSecond:  fields[FieldReadsPerSecond],
		WritesPerSecond: fields[FieldWritesPerSecond],
		FsyncsPerSecond: fields[FieldFsyncsPerSecond],
	}
}

type iperfSum struct {
	BitsPerSecond float64 `json:"bits_per_second"`
	Retransmits   *int64  `json:"retransmits"`
}

type iperfReport struct {
	Error string `json:"error"`
	End   *struct {
		SumSent     *iperfSum `json:"sum_sent"`
		SumReceived *iperfSum `json:"sum_received"`
	} `json:"end"`
}

// ParseNetwork decodes the JSON report of `iperf3 -J`.
// Problems with the payload are reported in ParseError.
func ParseNetwork(output string) models.NetworkMetrics {
	var report iperfReport
	err := json.Unmarshal([]byte(output), &report)
	if err != nil {
		return models.NetworkMetrics{ParseError: fmt.Sprintf("invalid iperf3 output: %s", err.Error())}
	}

	if report.Error != "" {
		return models.NetworkMetrics{ParseError: report.Error}
	}

	if report.End == nil || report.End.SumSent == nil || report.End.SumReceived == nil {
		return models.NetworkMetrics{ParseError: "iperf3 output has no end summary"}
	}

	return models.NetworkMetrics{
		SentBitrate:     FormatBitrate(report.End.SumSent.BitsPerSecond),
		ReceivedBitrate: FormatBitrate(report.End.SumReceived.BitsPerSecond),
		Retransmits:     report.End.SumSent.Retransmits,
	}
}

// FormatBitrate renders bits per second with an SI prefix, e.g. "941.52 Mbit/s".
func FormatBitrate(bps float64) string {
	if bps <= 0 || math.IsNaN(bps) || math.IsInf(bps, 0) {
		return "0 bit/s"
	}
	return humanize.SIWithDigits(bps, 2, "bit/s")
}
