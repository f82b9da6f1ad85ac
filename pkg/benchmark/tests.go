package benchmark

import (
	"fmt"
	"strconv"

	"hostbench/models"
	"hostbench/pkg/app"
	"hostbench/pkg/installer"
	"hostbench/pkg/runner"
	"hostbench/utils"
)

// Keys under which outcomes are stored in the result set
const (
	TestCPUSingleThread = "cpu_single_thread"
	TestCPUMultiThread  = "cpu_multi_thread"
	TestMemory          = "memory"
	TestFileIOPrepare   = "fileio_prepare"
	TestFileIOCleanup   = "fileio_cleanup"
	TestNetwork         = "network"
)

// FileIOTestName returns the result key of a file I/O mode, e.g. fileio_rndrw
func FileIOTestName(mode string) string {
	return "fileio_" + mode
}

type TestDefinition struct {
	Name    string
	Label   string
	Command runner.Command
}

// Tests returns the sub-tests of a sysbench category in execution order.
func (b *Benchmark) Tests(category string) []TestDefinition {
	switch category {
	case app.CategoryCPU:
		return b.CPUTests()
	case app.CategoryMemory:
		return b.MemoryTests()
	case app.CategoryFileIO:
		return b.FileIOTests()
	default:
		return nil
	}
}

func (b *Benchmark) CPUTests() []TestDefinition {
	cpu := b.Config.CPU
	if cpu == nil {
		return nil
	}

	var tests []TestDefinition
	if pass := cpu.SingleThread; pass != nil && app.IsEnabled(pass.Enabled) {
		threads := pass.Threads.Resolve(b.NumCPU())
		tests = append(tests, TestDefinition{
			Name:    TestCPUSingleThread,
			Label:   "CPU single thread",
			Command: b.cpuCommand(pass, threads),
		})
	}
	if pass := cpu.MultiThread; pass != nil && app.IsEnabled(pass.Enabled) {
		threads := pass.Threads.Resolve(b.NumCPU())
		tests = append(tests, TestDefinition{
			Name:    TestCPUMultiThread,
			Label:   fmt.Sprintf("CPU multi thread (%d threads)", threads),
			Command: b.cpuCommand(pass, threads),
		})
	}
	return tests
}

func (b *Benchmark) cpuCommand(pass *app.CPUPassConfig, threads int) runner.Command {
	return runner.NewCommand(b.Sysbench, "cpu",
		"--events="+strconv.Itoa(pass.Events),
		"--time="+strconv.Itoa(pass.Time),
		"--threads="+strconv.Itoa(threads),
		"run",
	)
}

func (b *Benchmark) MemoryTests() []TestDefinition {
	mem := b.Config.Memory
	if mem == nil {
		return nil
	}

	return []TestDefinition{
		{
			Name:  TestMemory,
			Label: "Memory",
			Command: runner.NewCommand(b.Sysbench, "memory",
				"--threads="+strconv.Itoa(mem.Threads),
				"--time="+strconv.Itoa(mem.Time),
				"--memory-block-size="+mem.BlockSize,
				"--memory-total-size="+mem.TotalSize,
				"run",
			),
		},
	}
}

// FileIOTests returns prepare, one run per enabled mode and cleanup when enabled.
// Prepare is left out when no mode is enabled since nothing would read the files.
func (b *Benchmark) FileIOTests() []TestDefinition {
	fio := b.Config.FileIO
	if fio == nil {
		return nil
	}

	files := []string{
		"--file-total-size=" + fio.FileTotalSize,
		"--file-num=" + strconv.Itoa(fio.FileNum),
	}
	fileioCommand := func(args ...string) runner.Command {
		argv := append([]string{b.Sysbench, "fileio"}, files...)
		return runner.NewCommand(append(argv, args...)...).InDir(fio.Directory)
	}

	var runs []TestDefinition
	seen := make(map[string]bool)
	for _, mode := range fio.TestModes {
		if !app.IsEnabled(mode.Enabled) || seen[mode.Mode] {
			continue
		}
		seen[mode.Mode] = true

		runs = append(runs, TestDefinition{
			Name:  FileIOTestName(mode.Mode),
			Label: "File I/O " + mode.Mode,
			Command: fileioCommand(
				"--threads="+strconv.Itoa(fio.Threads),
				"--time="+strconv.Itoa(fio.Time),
				"--file-test-mode="+mode.Mode,
				"run",
			),
		})
	}

	var tests []TestDefinition
	if len(runs) > 0 {
		tests = append(tests, TestDefinition{Name: TestFileIOPrepare, Label: "File I/O prepare", Command: fileioCommand("prepare")})
		tests = append(tests, runs...)
	} else {
		b.Log.Warnf("[%s] No test mode enabled, skipping prepare", app.CategoryFileIO)
	}

	if app.IsEnabled(fio.Cleanup) {
		tests = append(tests, TestDefinition{Name: TestFileIOCleanup, Label: "File I/O cleanup", Command: fileioCommand("cleanup")})
	}

	return tests
}

// NetworkTest returns the iperf3 client test against server
func (b *Benchmark) NetworkTest(iperf3, server string) TestDefinition {
	n := b.Config.Network

	args := []string{iperf3,
		"-c", server,
		"-p", strconv.Itoa(n.Port),
		"-t", strconv.Itoa(n.Time),
		"-P", strconv.Itoa(n.Parallel),
	}
	if n.Reverse {
		args = append(args, "-R")
	}
	args = append(args, "-J")

	return TestDefinition{
		Name:    TestNetwork,
		Label:   "Network throughput to " + server,
		Command: runner.NewCommand(args...),
	}
}

// runNetwork resolves the server, makes iperf3 available and runs the client test.
// Without a server nothing is installed or recorded.
func (b *Benchmark) runNetwork(rs *models.ResultSet) {
	n := b.Config.Network

	server, err := b.networkServer()
	if err != nil {
		b.Log.Errorf("[%s] Could not resolve iperf3 server, skipping network test: %s", app.CategoryNetwork, err.Error())
		return
	}
	if server == "" {
		b.Log.Warnf("[%s] No iperf3 server configured, skipping network test", app.CategoryNetwork)
		return
	}

	iperf3, err := b.Installer.Ensure(installer.Iperf3)
	if err != nil {
		b.Log.Errorf("[%s] iperf3 is unavailable, skipping network test: %s", app.CategoryNetwork, err.Error())
		return
	}

	if n.SSH != nil && n.SSH.StartServer {
		b.startRemoteServer(server)
	}

	b.RunTests(app.CategoryNetwork, []TestDefinition{b.NetworkTest(iperf3, server)}, rs)
}

func (b *Benchmark) networkServer() (string, error) {
	n := b.Config.Network
	if n.Server != "" {
		return n.Server, nil
	}

	if n.AzurePublicIP != nil && n.AzurePublicIP.Name != "" {
		if b.ResolvePublicIP == nil {
			return "", fmt.Errorf("azure_public_ip %s is set but azure is not enabled", n.AzurePublicIP.Name)
		}
		return b.ResolvePublicIP(n.AzurePublicIP.Name, n.AzurePublicIP.ResourceGroup)
	}

	return "", nil
}

func (b *Benchmark) startRemoteServer(server string) {
	cfg := *b.Config.Network.SSH
	if cfg.Host == "" {
		cfg.Host = server
	}

	id := b.Log.BeginTask("[%s] Starting iperf3 server on %s", app.CategoryNetwork, cfg.Host)
	_, err := b.StartRemote(&cfg, []string{utils.IperfServerCommand(b.Config.Network.Port)})
	if err != nil {
		b.Log.FailTask(id)
		b.Log.Errorf("[%s] Could not start remote iperf3 server: %s", app.CategoryNetwork, err.Error())
		return
	}
	b.Log.CompleteTask(id)
}
