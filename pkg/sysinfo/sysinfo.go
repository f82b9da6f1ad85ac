package sysinfo

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"golang.org/x/sys/unix"

	"hostbench/pkg/app/pretty_log"
	"hostbench/pkg/installer"
	"hostbench/pkg/runner"
)

// Ensurer makes a tool available and returns its path
type Ensurer interface {
	Ensure(tool installer.Tool) (string, error)
}

// Collector gathers system facts from an external reporter, falling back to what the kernel tells us
type Collector struct {
	log       *pretty_log.Logger
	runner    runner.CommandRunner
	installer Ensurer
	command   []string
}

func New(log *pretty_log.Logger, r runner.CommandRunner, i Ensurer, command []string) *Collector {
	return &Collector{
		log:       log,
		runner:    r,
		installer: i,
		command:   command,
	}
}

// Collect never fails: reporter problems are logged and recorded under "error".
func (c *Collector) Collect() map[string]interface{} {
	info := make(map[string]interface{})

	if len(c.command) == 0 {
		c.log.Warnf("No system information command configured")
		return merge(info, HostFacts())
	}

	binary, err := c.installer.Ensure(installer.ToolByBinary(c.command[0]))
	if err != nil {
		c.log.Errorf("System information reporter unavailable: %s", err.Error())
		return merge(info, HostFacts())
	}

	args := append([]string{binary}, c.command[1:]...)
	outcome := c.runner.Run("system information", runner.NewCommand(args...))
	if !outcome.Succeeded() {
		info["error"] = outcome.Error
		return merge(info, HostFacts())
	}

	parsed, err := Parse([]byte(outcome.Output))
	if err != nil {
		c.log.Errorf("Could not parse system information: %s", err.Error())
		info["error"] = err.Error()
		return merge(info, HostFacts())
	}

	return merge(parsed, HostFacts())
}

// Parse decodes a reporter snapshot. A JSON object is used as is,
// a fastfetch style array of {"type", "result"} entries is keyed by type.
func Parse(data []byte) (map[string]interface{}, error) {
	var raw interface{}
	err := json.Unmarshal(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("invalid system information output: %w", err)
	}

	switch v := raw.(type) {
	case map[string]interface{}:
		return v, nil
	case []interface{}:
		res := make(map[string]interface{}, len(v))
		for idx, entry := range v {
			module, ok := entry.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("entry %d is not an object", idx)
			}

			key, _ := module["type"].(string)
			if key == "" {
				key = fmt.Sprintf("entry_%d", idx)
			}

			if errMsg, ok := module["error"]; ok {
				res[key] = map[string]interface{}{"error": errMsg}
				continue
			}
			res[key] = module["result"]
		}
		return res, nil
	default:
		return nil, fmt.Errorf("unexpected system information payload of type %T", raw)
	}
}

// HostFacts are read directly from the kernel and runtime.
// Values are strings so they survive a JSON round trip unchanged.
func HostFacts() map[string]interface{} {
	facts := map[string]interface{}{
		"num_cpu": strconv.Itoa(runtime.NumCPU()),
		"go_os":   runtime.GOOS,
		"go_arch": runtime.GOARCH,
	}

	if hostname, err := os.Hostname(); err == nil {
		facts["hostname"] = hostname
	}

	var uts unix.Utsname
	if err := unix.Uname(&uts); err == nil {
		facts["kernel"] = unix.ByteSliceToString(uts.Sysname[:]) + " " + unix.ByteSliceToString(uts.Release[:])
		facts["machine"] = unix.ByteSliceToString(uts.Machine[:])
	}

	return facts
}

// merge adds the host facts under "host" without touching reporter keys
func merge(info map[string]interface{}, host map[string]interface{}) map[string]interface{} {
	if _, ok := info["host"]; !ok {
		info["host"] = host
	}
	return info
}
