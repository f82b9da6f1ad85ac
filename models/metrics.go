package models

// Parsed metrics are derived from raw outcomes at report time and never persisted.
// A nil field means the marker was not found in the output.

type CPUMetrics struct {
	Threads         *string
	TotalTime       *string
	EventsPerSecond *string
}

type MemoryMetrics struct {
	BlockSize     *string
	TransferSpeed *string
	TotalTime     *string
	LatencySum    *string
}

type FileIOMetrics struct {
	ReadThroughput  *string
	WriteThroughput *string
	LatencySum      *string
	ReadsPerSecond  *string
	WritesPerSecond *string
	FsyncsPerSecond *string
}

type NetworkMetrics struct {
	SentBitrate     string
	ReceivedBitrate string
	Retransmits     *int64
	ParseError      string
}
