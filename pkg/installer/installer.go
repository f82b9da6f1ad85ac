package installer

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/blang/semver/v4"
	"github.com/hashicorp/go-multierror"

	"hostbench/pkg/app/pretty_log"
	"hostbench/pkg/runner"
)

const DefaultReleaseBaseURL = "https://github.com"

// Release points at a GitHub release archive that contains a prebuilt binary
type Release struct {
	Repo string
	// Asset is the archive name, %s is replaced by the release architecture
	Asset string
	// Arch maps GOARCH to the architecture name used in Asset
	Arch map[string]string
}

// Tool is an external program hostbench drives
type Tool struct {
	Name     string
	Binary   string
	Packages map[PackageManager]string
	Release  *Release
}

func (t Tool) packageFor(pm PackageManager) string {
	if pkg, ok := t.Packages[pm]; ok {
		return pkg
	}
	return t.Name
}

var (
	Sysbench = Tool{
		Name:   "sysbench",
		Binary: "sysbench",
	}

	Iperf3 = Tool{
		Name:   "iperf3",
		Binary: "iperf3",
	}

	Fastfetch = Tool{
		Name:   "fastfetch",
		Binary: "fastfetch",
		Release: &Release{
			Repo:  "fastfetch-cli/fastfetch",
			Asset: "fastfetch-linux-%s.tar.gz",
			Arch: map[string]string{
				"amd64": "amd64",
				"arm64": "aarch64",
			},
		},
	}
)

// ToolByBinary returns the known tool for a binary name, or a tool installed from the package of the same name.
func ToolByBinary(binary string) Tool {
	for _, tool := range []Tool{Sysbench, Iperf3, Fastfetch} {
		if tool.Binary == binary {
			return tool
		}
	}
	return Tool{Name: binary, Binary: binary}
}

type Opts struct {
	// BinDir receives binaries extracted from release archives
	BinDir         string
	ReleaseBaseURL string
	LookPath       func(string) (string, error)
	HTTPClient     *http.Client
	Manager        *PackageManager
	Sudo           *bool
}

// Installer makes external tools available, through the package manager or a release archive
type Installer struct {
	log    *pretty_log.Logger
	runner runner.CommandRunner

	manager        PackageManager
	sudo           bool
	binDir         string
	releaseBaseURL string
	lookPath       func(string) (string, error)
	httpClient     *http.Client
}

func New(log *pretty_log.Logger, r runner.CommandRunner, opts *Opts) *Installer {
	if opts == nil {
		opts = &Opts{}
	}

	i := &Installer{
		log:            log,
		runner:         r,
		binDir:         opts.BinDir,
		releaseBaseURL: opts.ReleaseBaseURL,
		lookPath:       opts.LookPath,
		httpClient:     opts.HTTPClient,
	}

	if i.lookPath == nil {
		i.lookPath = exec.LookPath
	}
	if i.binDir == "" {
		i.binDir = defaultBinDir()
	}
	if i.releaseBaseURL == "" {
		i.releaseBaseURL = DefaultReleaseBaseURL
	}
	if i.httpClient == nil {
		i.httpClient = &http.Client{Timeout: 5 * time.Minute}
	}

	if opts.Manager != nil {
		i.manager = *opts.Manager
	} else {
		i.manager = DetectPackageManager(i.lookPath)
	}

	if opts.Sudo != nil {
		i.sudo = *opts.Sudo
	} else if os.Geteuid() != 0 {
		_, err := i.lookPath("sudo")
		i.sudo = err == nil
	}

	return i
}

func defaultBinDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "hostbench", "bin")
	}
	return filepath.Join(home, ".local", "share", "hostbench", "bin")
}

func (i *Installer) Manager() PackageManager {
	return i.manager
}

// Locate returns the path of an already available tool binary
func (i *Installer) Locate(tool Tool) (string, bool) {
	if p, err := i.lookPath(tool.Binary); err == nil {
		return p, true
	}

	local := filepath.Join(i.binDir, tool.Binary)
	if info, err := os.Stat(local); err == nil && !info.IsDir() && info.Mode()&0111 != 0 {
		return local, true
	}

	return "", false
}

// Ensure returns the path of the tool binary, installing it first if needed.
// The package manager is tried first, then the tool's release archive if it has one.
func (i *Installer) Ensure(tool Tool) (string, error) {
	if p, ok := i.Locate(tool); ok {
		return p, nil
	}

	i.log.Warnf("%s not found, installing it", tool.Name)

	var result *multierror.Error

	err := i.installPackage(tool)
	if err == nil {
		if p, ok := i.Locate(tool); ok {
			return p, nil
		}
		err = fmt.Errorf("%s was installed but %s is not on PATH", tool.packageFor(i.manager), tool.Binary)
	}
	result = multierror.Append(result, err)

	if tool.Release != nil {
		id := i.log.BeginTask("Downloading %s release from %s", tool.Name, tool.Release.Repo)
		p, err := i.installRelease(tool)
		if err == nil {
			i.log.CompleteTask(id)
			return p, nil
		}
		i.log.FailTask(id)
		result = multierror.Append(result, err)
	}

	return "", fmt.Errorf("%s is not available: %w", tool.Name, result.ErrorOrNil())
}

func (i *Installer) installPackage(tool Tool) error {
	pkg := tool.packageFor(i.manager)

	commands, err := i.manager.InstallCommands(pkg, i.sudo)
	if err != nil {
		return err
	}

	id := i.log.BeginTask("Installing %s with %s", pkg, i.manager)
	for idx, cmd := range commands {
		outcome := i.runner.Run(fmt.Sprintf("install %s (%d/%d)", pkg, idx+1, len(commands)), cmd)
		if !outcome.Succeeded() {
			i.log.FailTask(id)
			return fmt.Errorf("%s failed: %s", outcome.Command, strings.TrimSpace(outcome.Error))
		}
	}
	i.log.CompleteTask(id)

	return nil
}

// ReleaseURL returns the download URL of the latest release asset for the running architecture
func (i *Installer) ReleaseURL(tool Tool) (string, error) {
	if tool.Release == nil {
		return "", fmt.Errorf("%s has no release archive", tool.Name)
	}

	arch, ok := tool.Release.Arch[runtime.GOARCH]
	if !ok {
		return "", fmt.Errorf("no %s release for architecture %s", tool.Name, runtime.GOARCH)
	}

	asset := fmt.Sprintf(tool.Release.Asset, arch)
	return strings.TrimSuffix(i.releaseBaseURL, "/") + "/" + path.Join(tool.Release.Repo, "releases", "latest", "download", asset), nil
}

func (i *Installer) installRelease(tool Tool) (string, error) {
	url, err := i.ReleaseURL(tool)
	if err != nil {
		return "", err
	}

	resp, err := i.httpClient.Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download %s: %s", url, resp.Status)
	}

	err = os.MkdirAll(i.binDir, 0755)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", i.binDir, err)
	}

	target := filepath.Join(i.binDir, tool.Binary)
	err = extractBinary(resp.Body, tool.Binary, target)
	if err != nil {
		return "", fmt.Errorf("failed to extract %s from %s: %w", tool.Binary, url, err)
	}

	return target, nil
}

var errBinaryNotInArchive = errors.New("binary not found in archive")

// extractBinary copies the first regular file named binary out of a tar.gz stream
func extractBinary(r io.Reader, binary, target string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return errBinaryNotInArchive
		}
		if err != nil {
			return err
		}

		if hdr.Typeflag != tar.TypeReg || path.Base(hdr.Name) != binary {
			continue
		}

		tmp := target + ".download"
		f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0755)
		if err != nil {
			return err
		}

		_, err = io.Copy(f, tr)
		closeErr := f.Close()
		if err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(tmp)
			return err
		}

		return os.Rename(tmp, target)
	}
}

// VersionAtLeast reports whether the first semantic version found in output satisfies minimum.
func VersionAtLeast(output, minimum string) (bool, string, error) {
	want, err := semver.ParseTolerant(minimum)
	if err != nil {
		return false, "", fmt.Errorf("invalid minimum version %q: %w", minimum, err)
	}

	for _, field := range strings.Fields(output) {
		v, err := semver.ParseTolerant(strings.Trim(field, "(),"))
		if err != nil {
			continue
		}
		return v.GTE(want), v.String(), nil
	}

	return false, "", fmt.Errorf("no version found in %q", strings.TrimSpace(output))
}
