package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"hostbench/models"
	"hostbench/pkg/app"
	"hostbench/pkg/app/pretty_log"
	"hostbench/pkg/azure"
	"hostbench/pkg/benchmark"
	"hostbench/pkg/installer"
	"hostbench/pkg/report"
	"hostbench/pkg/runner"
	"hostbench/pkg/sysinfo"
)

var rootCmd = &cobra.Command{
	Use:   "hostbench [config.yml]",
	Short: "Run sysbench and iperf3 benchmarks on this host and write a report",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := app.DefaultConfigPath
		if len(args) == 1 {
			path = args[0]
		}
		log := pretty_log.New(os.Stdout, pretty_log.LevelInfo)
		r := runner.New(log)
		os.Exit(run(path, log, r, installer.New(log, r, nil)))
	},
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// run performs one benchmark run and returns the process exit code.
// Only a missing sysbench is fatal.
func run(configPath string, log *pretty_log.Logger, r runner.CommandRunner, inst benchmark.Ensurer) int {
	config := app.LoadConfig(configPath, log)
	log.SetLevel(pretty_log.ParseLevel(config.LogLevel))

	log.TaskGroup("=== Checking dependencies ===")
	sysbenchPath, err := inst.Ensure(installer.Sysbench)
	if err != nil {
		log.Errorf("%s", err.Error())
		return 1
	}
	checkSysbenchVersion(log, r, sysbenchPath, config.Sysbench.MinVersion)

	start := time.Now()
	rs := models.NewResultSet(uuid.NewString(), start.UTC().Round(0))

	if app.IsEnabled(config.SysInfo.Enabled) {
		log.TaskGroup("=== Collecting system information ===")
		for key, value := range sysinfo.New(log, r, inst, config.SysInfo.Command).Collect() {
			rs.SystemInfo[key] = value
		}
	} else {
		rs.SystemInfo["host"] = sysinfo.HostFacts()
	}

	bench := benchmark.NewBenchmark(config, r, inst, log)
	bench.Sysbench = sysbenchPath

	if config.Azure.Enabled {
		setupAzure(log, config.Azure, rs, bench)
	}

	bench.Run(rs)

	dir := filepath.Join(config.OutputDir, "results_"+start.Format("20060102_150405"))
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		log.Errorf("Failed to create result directory %s: %s", dir, err.Error())
	}

	writer := report.New(dir, config.FileIOModeNames())
	err = writer.Write(rs)
	if err != nil {
		log.Errorf("Failed to write results: %s", err.Error())
	}

	log.TaskResult("Results saved to %s/", dir)
	log.TaskResultList([]string{writer.RawPath(), writer.ReportPath()})

	return 0
}

func checkSysbenchVersion(log *pretty_log.Logger, r runner.CommandRunner, sysbenchPath, minimum string) {
	outcome := r.Run("sysbench version", runner.NewCommand(sysbenchPath, "--version"))
	if !outcome.Succeeded() {
		log.Warnf("Could not determine sysbench version")
		return
	}

	ok, version, err := installer.VersionAtLeast(outcome.Output, minimum)
	if err != nil {
		log.Warnf("Could not determine sysbench version: %s", err.Error())
		return
	}
	if !ok {
		log.Warnf("sysbench %s is older than %s, some options may not be supported", version, minimum)
		return
	}
	log.Debugf("Using sysbench %s", version)
}

// setupAzure records the facts of the VM and lets the network test resolve public IP resources
func setupAzure(log *pretty_log.Logger, cfg *app.AzureConfig, rs *models.ResultSet, bench *benchmark.Benchmark) {
	ctx := context.Background()

	client, err := azure.New(&azure.Opts{SubscriptionID: cfg.SubscriptionID})
	if err != nil {
		log.Errorf("Failed to create Azure client: %s", err.Error())
		return
	}

	bench.ResolvePublicIP = func(name, resourceGroup string) (string, error) {
		if resourceGroup == "" {
			resourceGroup = cfg.ResourceGroup
		}
		return client.PublicIPAddress(ctx, name, resourceGroup)
	}

	if cfg.VMName == "" {
		log.Warnf("azure.vm_name is not set, skipping Azure host facts")
		return
	}

	id := log.BeginTask("Reading Azure VM %s", cfg.VMName)
	facts, err := azure.HostFacts(ctx, client, cfg.ResourceGroup, cfg.VMName)
	if err != nil {
		log.FailTask(id)
		log.Errorf("%s", err.Error())
		return
	}
	log.CompleteTask(id)

	rs.SystemInfo["azure"] = facts
}
