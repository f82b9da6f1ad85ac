package benchmark

import (
	"runtime"

	"hostbench/models"
	"hostbench/pkg/app"
	"hostbench/pkg/app/pretty_log"
	"hostbench/pkg/installer"
	"hostbench/pkg/runner"
	"hostbench/utils"
)

// Ensurer makes a tool available and returns its path
type Ensurer interface {
	Ensure(tool installer.Tool) (string, error)
}

type Benchmark struct {
	Config    *app.ConfigType
	Runner    runner.CommandRunner
	Installer Ensurer
	Log       *pretty_log.Logger

	// Sysbench is the path of the sysbench binary
	Sysbench string
	// NumCPU resolves "auto" thread counts
	NumCPU func() int
	// StartRemote runs commands on the iperf3 server host
	StartRemote func(cfg *app.SSHConfig, commands []string) ([]string, error)
	// ResolvePublicIP turns an Azure public IP resource into an address, nil when Azure is not configured
	ResolvePublicIP func(name, resourceGroup string) (string, error)
}

func NewBenchmark(config *app.ConfigType, r runner.CommandRunner, i Ensurer, log *pretty_log.Logger) *Benchmark {
	return &Benchmark{
		Config:      config,
		Runner:      r,
		Installer:   i,
		Log:         log,
		Sysbench:    installer.Sysbench.Binary,
		NumCPU:      runtime.NumCPU,
		StartRemote: utils.SshCommand,
	}
}

// Run executes every enabled category in the order of enabled_tests and records each outcome in rs.
// Sub-test failures are recorded, they never stop the run.
func (b *Benchmark) Run(rs *models.ResultSet) {
	b.Log.TaskGroup("=== Running benchmark ===")

	seen := make(map[string]bool)
	for _, category := range b.Config.EnabledTests {
		if seen[category] {
			continue
		}
		seen[category] = true

		if !b.categoryEnabled(category) {
			b.Log.Debugf("Category %s is disabled, skipping", category)
			continue
		}

		b.Log.TaskGroup("[%s] Running tests", category)
		switch category {
		case app.CategoryCPU, app.CategoryMemory, app.CategoryFileIO:
			b.RunTests(category, b.Tests(category), rs)
		case app.CategoryNetwork:
			b.runNetwork(rs)
		default:
			b.Log.Warnf("Unknown test category %s, skipping", category)
		}
	}

	b.Log.TaskGroup("=== Benchmark complete ===")
}

// categoryEnabled requires the category section to exist and be enabled.
// Listing it in enabled_tests is checked by the caller.
func (b *Benchmark) categoryEnabled(category string) bool {
	switch category {
	case app.CategoryCPU:
		return b.Config.CPU != nil && app.IsEnabled(b.Config.CPU.Enabled)
	case app.CategoryMemory:
		return b.Config.Memory != nil && app.IsEnabled(b.Config.Memory.Enabled)
	case app.CategoryFileIO:
		return b.Config.FileIO != nil && app.IsEnabled(b.Config.FileIO.Enabled)
	case app.CategoryNetwork:
		return b.Config.Network != nil && app.IsEnabled(b.Config.Network.Enabled)
	default:
		return true
	}
}

// RunTests runs the tests one after the other and stores each outcome under the test name.
func (b *Benchmark) RunTests(category string, tests []TestDefinition, rs *models.ResultSet) {
	for idx, test := range tests {
		if _, ok := rs.BenchmarkResults[test.Name]; ok {
			b.Log.Warnf("[%s] Test %s already ran, skipping", category, test.Name)
			continue
		}

		b.Log.TaskGroup("[%s] Running test %d/%d: %s", category, idx+1, len(tests), test.Label)

		outcome := b.Runner.Run(test.Label, test.Command)
		if !outcome.Succeeded() {
			b.Log.TaskResultBad("[%s] Test %s failed", category, test.Name)
		}

		err := rs.Add(test.Name, outcome)
		if err != nil {
			b.Log.Warnf("[%s] %s", category, err.Error())
		}
	}
}
