package runner

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"hostbench/models"
	"hostbench/pkg/app/pretty_log"
)

// Command is an argv to execute, optionally inside Dir
type Command struct {
	Args []string
	Dir  string
}

func NewCommand(args ...string) Command {
	return Command{Args: args}
}

func (c Command) InDir(dir string) Command {
	c.Dir = dir
	return c
}

// String returns the command line as it would be typed in a shell
func (c Command) String() string {
	return strings.Join(c.Args, " ")
}

// CommandRunner is what the orchestrator needs from a runner
type CommandRunner interface {
	Run(label string, cmd Command) models.CommandOutcome
}

// Runner executes commands synchronously and captures their output.
// Failures never escape as Go errors, they are recorded in the outcome.
type Runner struct {
	log *pretty_log.Logger
	now func() time.Time
}

func New(log *pretty_log.Logger) *Runner {
	return &Runner{
		log: log,
		now: time.Now,
	}
}

func (r *Runner) Run(label string, cmd Command) models.CommandOutcome {
	r.log.Infof("Running %s", label)
	r.log.Debugf("Command: %s", cmd.String())

	outcome := models.CommandOutcome{Command: cmd.String()}

	stdout, stderr, err := r.execute(cmd)
	outcome.Timestamp = r.now().UTC().Round(0)

	if err != nil {
		outcome.Status = models.StatusError
		outcome.Output = stdout
		if outcome.Output == "" {
			outcome.Output = err.Error()
		}
		outcome.Error = stderr
		if outcome.Error == "" {
			outcome.Error = err.Error()
		}

		r.log.Errorf("%s failed: %s", label, strings.TrimSpace(outcome.Error))
		return outcome
	}

	outcome.Status = models.StatusSuccess
	outcome.Output = stdout
	return outcome
}

func (r *Runner) execute(cmd Command) (string, string, error) {
	if len(cmd.Args) == 0 {
		return "", "", errors.New("empty command")
	}

	var stdout, stderr bytes.Buffer
	c := exec.Command(cmd.Args[0], cmd.Args[1:]...)
	c.Dir = cmd.Dir
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	if err != nil {
		return stdout.String(), stderr.String(), fmt.Errorf("failed to run '%s': %w", cmd.String(), err)
	}

	return stdout.String(), stderr.String(), nil
}
