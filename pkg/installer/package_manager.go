package installer

import (
	"errors"
	"os/exec"

	"hostbench/pkg/runner"
)

var ErrUnknownPackageManager = errors.New("no supported package manager found")

// PackageManager is the closed set of package manager families hostbench can drive.
type PackageManager int

const (
	Unknown PackageManager = iota
	Apt
	Yum
	Dnf
	Pacman
)

func (p PackageManager) String() string {
	switch p {
	case Apt:
		return "apt"
	case Yum:
		return "yum"
	case Dnf:
		return "dnf"
	case Pacman:
		return "pacman"
	default:
		return "unknown"
	}
}

type managerTemplate struct {
	// binary is probed on PATH to detect the family
	binary  string
	update  []string
	install []string
}

var templates = map[PackageManager]managerTemplate{
	Apt: {
		binary:  "apt-get",
		update:  []string{"apt-get", "update"},
		install: []string{"apt-get", "install", "-y"},
	},
	Yum: {
		binary:  "yum",
		install: []string{"yum", "install", "-y"},
	},
	Dnf: {
		binary:  "dnf",
		install: []string{"dnf", "install", "-y"},
	},
	Pacman: {
		binary:  "pacman",
		update:  []string{"pacman", "-Sy", "--noconfirm"},
		install: []string{"pacman", "-S", "--noconfirm", "--needed"},
	},
}

// dnf is probed before yum since dnf based systems often ship a yum shim
var detectOrder = []PackageManager{Apt, Dnf, Yum, Pacman}

// DetectPackageManager returns the first package manager family found on PATH.
func DetectPackageManager(lookPath func(string) (string, error)) PackageManager {
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	for _, pm := range detectOrder {
		if _, err := lookPath(templates[pm].binary); err == nil {
			return pm
		}
	}
	return Unknown
}

// InstallCommands returns the command sequence installing pkg, prefixed with sudo when asked.
func (p PackageManager) InstallCommands(pkg string, sudo bool) ([]runner.Command, error) {
	tmpl, ok := templates[p]
	if !ok {
		return nil, ErrUnknownPackageManager
	}

	var prefix []string
	if sudo {
		prefix = []string{"sudo"}
	}

	var commands []runner.Command
	if tmpl.update != nil {
		commands = append(commands, runner.NewCommand(join(prefix, tmpl.update)...))
	}
	commands = append(commands, runner.NewCommand(join(prefix, tmpl.install, []string{pkg})...))

	return commands, nil
}

func join(parts ...[]string) []string {
	var res []string
	for _, part := range parts {
		res = append(res, part...)
	}
	return res
}
