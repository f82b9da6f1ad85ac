package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/blang/semver/v4"
	"gopkg.in/yaml.v3"

	"hostbench/pkg/app/pretty_log"
)

const DefaultConfigPath = "config.yml"

// Category names accepted in enabled_tests
const (
	CategoryCPU     = "cpu"
	CategoryMemory  = "memory"
	CategoryFileIO  = "fileio"
	CategoryNetwork = "network"
)

var Categories = []string{CategoryCPU, CategoryMemory, CategoryFileIO, CategoryNetwork}

// FileIOModes are the --file-test-mode values sysbench understands
var FileIOModes = []string{"seqwr", "seqrewr", "seqrd", "rndrd", "rndwr", "rndrw"}

type ConfigType struct {
	EnabledTests []string `yaml:"enabled_tests"`
	LogLevel     string   `yaml:"log_level,omitempty"`
	OutputDir    string   `yaml:"output_dir,omitempty"`

	Sysbench *SysbenchConfig `yaml:"sysbench,omitempty"`
	SysInfo  *SysInfoConfig  `yaml:"sysinfo,omitempty"`
	Azure    *AzureConfig    `yaml:"azure,omitempty"`

	CPU     *CPUConfig     `yaml:"cpu,omitempty"`
	Memory  *MemoryConfig  `yaml:"memory,omitempty"`
	FileIO  *FileIOConfig  `yaml:"fileio,omitempty"`
	Network *NetworkConfig `yaml:"network,omitempty"`
}

type SysbenchConfig struct {
	// MinVersion is the lowest sysbench version the command lines are written for
	MinVersion string `yaml:"min_version,omitempty"`
}

type SysInfoConfig struct {
	Enabled *bool    `yaml:"enabled,omitempty"`
	Command []string `yaml:"command,omitempty"`
}

type AzureConfig struct {
	Enabled        bool   `yaml:"enabled"`
	SubscriptionID string `yaml:"subscription_id"`
	ResourceGroup  string `yaml:"resource_group"`
	// VMName is the Azure name of the machine the benchmark runs on
	VMName string `yaml:"vm_name"`
}

type CPUConfig struct {
	Enabled      *bool          `yaml:"enabled,omitempty"`
	SingleThread *CPUPassConfig `yaml:"single_thread,omitempty"`
	MultiThread  *CPUPassConfig `yaml:"multi_thread,omitempty"`
}

type CPUPassConfig struct {
	Enabled *bool       `yaml:"enabled,omitempty"`
	Threads ThreadCount `yaml:"threads,omitempty"`
	// Time is the duration of the pass in seconds
	Time int `yaml:"time,omitempty"`
	// Events limits the number of events, 0 means unlimited
	Events int `yaml:"events,omitempty"`
}

type MemoryConfig struct {
	Enabled   *bool  `yaml:"enabled,omitempty"`
	Threads   int    `yaml:"threads,omitempty"`
	Time      int    `yaml:"time,omitempty"`
	BlockSize string `yaml:"block_size,omitempty"`
	TotalSize string `yaml:"total_size,omitempty"`
}

type FileIOConfig struct {
	Enabled       *bool        `yaml:"enabled,omitempty"`
	FileNum       int          `yaml:"file_num,omitempty"`
	FileTotalSize string       `yaml:"file_total_size,omitempty"`
	Threads       int          `yaml:"threads,omitempty"`
	Time          int          `yaml:"time,omitempty"`
	Directory     string       `yaml:"directory,omitempty"`
	TestModes     []FileIOMode `yaml:"test_modes,omitempty"`
	Cleanup       *bool        `yaml:"cleanup,omitempty"`
}

type FileIOMode struct {
	Mode    string `yaml:"mode"`
	Enabled *bool  `yaml:"enabled,omitempty"`
}

type NetworkConfig struct {
	Enabled  *bool  `yaml:"enabled,omitempty"`
	Server   string `yaml:"server,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Time     int    `yaml:"time,omitempty"`
	Parallel int    `yaml:"parallel,omitempty"`
	Reverse  bool   `yaml:"reverse,omitempty"`

	SSH           *SSHConfig           `yaml:"ssh,omitempty"`
	AzurePublicIP *AzurePublicIPConfig `yaml:"azure_public_ip,omitempty"`
}

// SSHConfig describes how to reach the iperf3 server to start it remotely
type SSHConfig struct {
	Host        string `yaml:"host"`
	Port        uint   `yaml:"port,omitempty"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password,omitempty"`
	KeyFile     string `yaml:"key_file,omitempty"`
	StartServer bool   `yaml:"start_server"`
}

type AzurePublicIPConfig struct {
	Name          string `yaml:"name"`
	ResourceGroup string `yaml:"resource_group"`
}

// ThreadCount is either a fixed number of threads or "auto", meaning one per processor.
type ThreadCount struct {
	Auto  bool
	Count int
}

func Threads(n int) ThreadCount {
	return ThreadCount{Count: n}
}

func AutoThreads() ThreadCount {
	return ThreadCount{Auto: true}
}

func (t ThreadCount) IsZero() bool {
	return !t.Auto && t.Count == 0
}

// Resolve returns the thread count to pass to sysbench, given the number of processors.
func (t ThreadCount) Resolve(numCPU int) int {
	if t.Auto {
		return numCPU
	}
	return t.Count
}

func (t ThreadCount) String() string {
	if t.Auto {
		return "auto"
	}
	return strconv.Itoa(t.Count)
}

func (t *ThreadCount) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: threads must be a number or \"auto\"", value.Line)
	}

	if strings.EqualFold(strings.TrimSpace(value.Value), "auto") {
		*t = AutoThreads()
		return nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(value.Value))
	if err != nil {
		return fmt.Errorf("line %d: threads must be a number or \"auto\", got %q", value.Line, value.Value)
	}

	*t = Threads(n)
	return nil
}

func (t ThreadCount) MarshalYAML() (interface{}, error) {
	if t.Auto {
		return "auto", nil
	}
	return t.Count, nil
}

func boolPtr(b bool) *bool {
	return &b
}

// IsEnabled reports whether an optional enabled flag is set. A nil flag counts as disabled.
func IsEnabled(b *bool) bool {
	return b != nil && *b
}

// FileIOModeNames returns the configured file I/O modes in order
func (c *ConfigType) FileIOModeNames() []string {
	if c.FileIO == nil {
		return nil
	}

	var names []string
	for _, mode := range c.FileIO.TestModes {
		names = append(names, mode.Mode)
	}
	return names
}

// DefaultConfig returns the built-in configuration used when no usable file is found.
func DefaultConfig() *ConfigType {
	return &ConfigType{
		EnabledTests: append([]string(nil), Categories...),
		LogLevel:     "info",
		OutputDir:    ".",
		Sysbench: &SysbenchConfig{
			MinVersion: "1.0.0",
		},
		SysInfo: &SysInfoConfig{
			Enabled: boolPtr(true),
			Command: []string{"fastfetch", "--format", "json"},
		},
		Azure: &AzureConfig{},
		CPU: &CPUConfig{
			Enabled: boolPtr(true),
			SingleThread: &CPUPassConfig{
				Enabled: boolPtr(true),
				Threads: Threads(1),
				Time:    30,
				Events:  0,
			},
			MultiThread: &CPUPassConfig{
				Enabled: boolPtr(true),
				Threads: AutoThreads(),
				Time:    30,
				Events:  0,
			},
		},
		Memory: &MemoryConfig{
			Enabled:   boolPtr(true),
			Threads:   4,
			Time:      30,
			BlockSize: "1K",
			TotalSize: "100G",
		},
		FileIO: &FileIOConfig{
			Enabled:       boolPtr(true),
			FileNum:       4,
			FileTotalSize: "4G",
			Threads:       4,
			Time:          60,
			TestModes: []FileIOMode{
				{Mode: "rndrw", Enabled: boolPtr(true)},
				{Mode: "seqrd", Enabled: boolPtr(true)},
			},
			Cleanup: boolPtr(true),
		},
		Network: &NetworkConfig{
			Enabled:  boolPtr(true),
			Port:     5201,
			Time:     10,
			Parallel: 1,
		},
	}
}

// LoadConfig loads the configuration from the given path.
// If the path is empty, it will load the configuration from ./config.yml.
// A missing, malformed or invalid file is logged and replaced by DefaultConfig.
func LoadConfig(path string, log *pretty_log.Logger) *ConfigType {
	if path == "" {
		path = DefaultConfigPath
	}

	yamlFile, err := os.ReadFile(path)
	if err != nil {
		log.Warnf("Could not read config %s, using defaults: %s", path, err.Error())
		return DefaultConfig()
	}

	config, err := ParseConfig(yamlFile)
	if err != nil {
		log.Warnf("Could not load config %s, using defaults: %s", path, err.Error())
		return DefaultConfig()
	}

	log.Debugf("Loaded config from %s", path)
	return config
}

// ParseConfig decodes a YAML document, completes present sections with default values and validates the result.
func ParseConfig(data []byte) (*ConfigType, error) {
	var config ConfigType
	err := yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, err
	}

	config.applyDefaults(DefaultConfig())

	err = config.Validate()
	if err != nil {
		return nil, err
	}

	return &config, nil
}

// applyDefaults fills missing fields of every present section from d.
// Absent category sections stay nil, so they never run.
func (c *ConfigType) applyDefaults(d *ConfigType) {
	if c.EnabledTests == nil {
		c.EnabledTests = d.EnabledTests
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.OutputDir == "" {
		c.OutputDir = d.OutputDir
	}
	if c.Sysbench == nil {
		c.Sysbench = d.Sysbench
	} else if c.Sysbench.MinVersion == "" {
		c.Sysbench.MinVersion = d.Sysbench.MinVersion
	}
	if c.SysInfo == nil {
		c.SysInfo = d.SysInfo
	} else {
		if c.SysInfo.Enabled == nil {
			c.SysInfo.Enabled = d.SysInfo.Enabled
		}
		if len(c.SysInfo.Command) == 0 {
			c.SysInfo.Command = d.SysInfo.Command
		}
	}
	if c.Azure == nil {
		c.Azure = d.Azure
	}

	if c.CPU != nil {
		if c.CPU.Enabled == nil {
			c.CPU.Enabled = d.CPU.Enabled
		}
		c.CPU.SingleThread = c.CPU.SingleThread.applyDefaults(d.CPU.SingleThread)
		c.CPU.MultiThread = c.CPU.MultiThread.applyDefaults(d.CPU.MultiThread)
	}

	if c.Memory != nil {
		m, dm := c.Memory, d.Memory
		if m.Enabled == nil {
			m.Enabled = dm.Enabled
		}
		if m.Threads == 0 {
			m.Threads = dm.Threads
		}
		if m.Time == 0 {
			m.Time = dm.Time
		}
		if m.BlockSize == "" {
			m.BlockSize = dm.BlockSize
		}
		if m.TotalSize == "" {
			m.TotalSize = dm.TotalSize
		}
	}

	if c.FileIO != nil {
		f, df := c.FileIO, d.FileIO
		if f.Enabled == nil {
			f.Enabled = df.Enabled
		}
		if f.FileNum == 0 {
			f.FileNum = df.FileNum
		}
		if f.FileTotalSize == "" {
			f.FileTotalSize = df.FileTotalSize
		}
		if f.Threads == 0 {
			f.Threads = df.Threads
		}
		if f.Time == 0 {
			f.Time = df.Time
		}
		if f.TestModes == nil {
			f.TestModes = df.TestModes
		}
		for idx := range f.TestModes {
			if f.TestModes[idx].Enabled == nil {
				f.TestModes[idx].Enabled = boolPtr(true)
			}
		}
		if f.Cleanup == nil {
			f.Cleanup = df.Cleanup
		}
	}

	if c.Network != nil {
		n, dn := c.Network, d.Network
		if n.Enabled == nil {
			n.Enabled = dn.Enabled
		}
		if n.Port == 0 {
			n.Port = dn.Port
		}
		if n.Time == 0 {
			n.Time = dn.Time
		}
		if n.Parallel == 0 {
			n.Parallel = dn.Parallel
		}
		if n.SSH != nil && n.SSH.Port == 0 {
			n.SSH.Port = 22
		}
	}
}

// applyDefaults completes a pass from d. Like a missing category section,
// a missing pass is disabled, it only keeps the default parameters.
func (p *CPUPassConfig) applyDefaults(d *CPUPassConfig) *CPUPassConfig {
	if p == nil {
		c := *d
		c.Enabled = boolPtr(false)
		return &c
	}
	if p.Enabled == nil {
		p.Enabled = d.Enabled
	}
	if p.Threads.IsZero() {
		p.Threads = d.Threads
	}
	if p.Time == 0 {
		p.Time = d.Time
	}
	return p
}

// Validate checks the values that would otherwise produce broken command lines.
func (c *ConfigType) Validate() error {
	if c.Sysbench != nil && c.Sysbench.MinVersion != "" {
		_, err := semver.ParseTolerant(c.Sysbench.MinVersion)
		if err != nil {
			return fmt.Errorf("invalid sysbench.min_version %q: %w", c.Sysbench.MinVersion, err)
		}
	}

	if c.CPU != nil {
		for name, pass := range map[string]*CPUPassConfig{"single_thread": c.CPU.SingleThread, "multi_thread": c.CPU.MultiThread} {
			if pass.Threads.Count < 0 || pass.Time < 0 || pass.Events < 0 {
				return fmt.Errorf("cpu.%s: threads, time and events must not be negative", name)
			}
		}
	}

	if c.Memory != nil && (c.Memory.Threads < 0 || c.Memory.Time < 0) {
		return fmt.Errorf("memory: threads and time must not be negative")
	}

	if c.FileIO != nil {
		if c.FileIO.Threads < 0 || c.FileIO.Time < 0 || c.FileIO.FileNum < 0 {
			return fmt.Errorf("fileio: file_num, threads and time must not be negative")
		}
		for _, mode := range c.FileIO.TestModes {
			if !contains(FileIOModes, mode.Mode) {
				return fmt.Errorf("fileio: unknown test mode %q", mode.Mode)
			}
		}
	}

	if c.Network != nil && (c.Network.Port < 0 || c.Network.Port > 65535 || c.Network.Time < 0 || c.Network.Parallel < 0) {
		return fmt.Errorf("network: invalid port, time or parallel")
	}

	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
