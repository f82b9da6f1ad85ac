package installer

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostbench/models"
	"hostbench/pkg/app/pretty_log"
	"hostbench/pkg/runner"
)

type fakeRunner struct {
	commands []string
	fail     map[string]string
	onRun    func(cmd runner.Command)
}

func (f *fakeRunner) Run(label string, cmd runner.Command) models.CommandOutcome {
	f.commands = append(f.commands, cmd.String())
	if f.onRun != nil {
		f.onRun(cmd)
	}
	if msg, ok := f.fail[cmd.String()]; ok {
		return models.CommandOutcome{Status: models.StatusError, Command: cmd.String(), Error: msg}
	}
	return models.CommandOutcome{Status: models.StatusSuccess, Command: cmd.String()}
}

func pathWith(binaries ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, b := range binaries {
			if b == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
}

func TestDetectPackageManager(t *testing.T) {
	testCases := []struct {
		onPath   []string
		expected PackageManager
	}{
		{onPath: []string{"apt-get", "sudo"}, expected: Apt},
		{onPath: []string{"yum"}, expected: Yum},
		{onPath: []string{"yum", "dnf"}, expected: Dnf},
		{onPath: []string{"pacman"}, expected: Pacman},
		{onPath: []string{"zypper"}, expected: Unknown},
		{onPath: nil, expected: Unknown},
	}
	for _, tCase := range testCases {
		assert.Equal(t, tCase.expected, DetectPackageManager(pathWith(tCase.onPath...)), "%v", tCase.onPath)
	}
}

func TestInstallCommands(t *testing.T) {
	testCases := []struct {
		pm       PackageManager
		sudo     bool
		expected []string
	}{
		{pm: Apt, sudo: true, expected: []string{"sudo apt-get update", "sudo apt-get install -y iperf3"}},
		{pm: Apt, sudo: false, expected: []string{"apt-get update", "apt-get install -y iperf3"}},
		{pm: Yum, expected: []string{"yum install -y iperf3"}},
		{pm: Dnf, expected: []string{"dnf install -y iperf3"}},
		{pm: Pacman, expected: []string{"pacman -Sy --noconfirm", "pacman -S --noconfirm --needed iperf3"}},
	}
	for _, tCase := range testCases {
		commands, err := tCase.pm.InstallCommands("iperf3", tCase.sudo)
		require.NoError(t, err)

		var got []string
		for _, c := range commands {
			got = append(got, c.String())
		}
		assert.Equal(t, tCase.expected, got, tCase.pm.String())
	}
}

func TestUnknownPackageManagerIsTerminal(t *testing.T) {
	_, err := Unknown.InstallCommands("sysbench", false)
	assert.ErrorIs(t, err, ErrUnknownPackageManager)

	manager := Unknown
	noSudo := false
	r := &fakeRunner{}
	i := New(pretty_log.Discard(), r, &Opts{LookPath: pathWith(), Manager: &manager, Sudo: &noSudo, BinDir: t.TempDir()})

	_, err = i.Ensure(Sysbench)
	assert.ErrorIs(t, err, ErrUnknownPackageManager)
	assert.Empty(t, r.commands)
}

func TestEnsureAlreadyInstalled(t *testing.T) {
	r := &fakeRunner{}
	i := New(pretty_log.Discard(), r, &Opts{LookPath: pathWith("sysbench", "apt-get"), BinDir: t.TempDir()})

	p, err := i.Ensure(Sysbench)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/sysbench", p)
	assert.Empty(t, r.commands)
}

func TestEnsureInstallsWithPackageManager(t *testing.T) {
	installed := false
	lookPath := func(name string) (string, error) {
		if name == "apt-get" || (name == "iperf3" && installed) {
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("not found")
	}
	r := &fakeRunner{onRun: func(cmd runner.Command) {
		if cmd.String() == "apt-get install -y iperf3" {
			installed = true
		}
	}}
	noSudo := false
	i := New(pretty_log.Discard(), r, &Opts{LookPath: lookPath, Sudo: &noSudo, BinDir: t.TempDir()})
	assert.Equal(t, Apt, i.Manager())

	p, err := i.Ensure(Iperf3)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/iperf3", p)
	assert.Equal(t, []string{"apt-get update", "apt-get install -y iperf3"}, r.commands)
}

func TestEnsurePackageFailure(t *testing.T) {
	r := &fakeRunner{fail: map[string]string{"dnf install -y sysbench": "No match for argument: sysbench"}}
	noSudo := false
	i := New(pretty_log.Discard(), r, &Opts{LookPath: pathWith("dnf"), Sudo: &noSudo, BinDir: t.TempDir()})

	_, err := i.Ensure(Sysbench)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No match for argument")
}

func tarball(t *testing.T, files map[string]string) []byte {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0755, Size: int64(len(content)), Typeflag: tar.TypeReg}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestEnsureFallsBackToRelease(t *testing.T) {
	archive := tarball(t, map[string]string{
		"fakefetch-linux/README.md":        "readme",
		"fakefetch-linux/usr/bin/fakefetch": "#!/bin/sh\necho '{}'\n",
	})

	var requested string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		requested = req.URL.Path
		_, _ = w.Write(archive)
	}))
	defer server.Close()

	tool := Tool{
		Name:   "fakefetch",
		Binary: "fakefetch",
		Release: &Release{
			Repo:  "example/fakefetch",
			Asset: "fakefetch-linux-%s.tar.gz",
			Arch:  map[string]string{runtime.GOARCH: "x"},
		},
	}

	binDir := t.TempDir()
	r := &fakeRunner{fail: map[string]string{"pacman -S --noconfirm --needed fakefetch": "target not found"}}
	noSudo := false
	i := New(pretty_log.Discard(), r, &Opts{
		LookPath:       pathWith("pacman"),
		Sudo:           &noSudo,
		BinDir:         binDir,
		ReleaseBaseURL: server.URL,
	})

	p, err := i.Ensure(tool)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(binDir, "fakefetch"), p)
	assert.Equal(t, "/example/fakefetch/releases/latest/download/fakefetch-linux-x.tar.gz", requested)

	content, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(content), "echo")

	// A second call finds the extracted binary without installing again
	r.commands = nil
	p2, err := i.Ensure(tool)
	require.NoError(t, err)
	assert.Equal(t, p, p2)
	assert.Empty(t, r.commands)
}

func TestEnsureReleaseMissingBinary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write(tarball(t, map[string]string{"other/bin/else": "x"}))
	}))
	defer server.Close()

	manager := Unknown
	i := New(pretty_log.Discard(), &fakeRunner{}, &Opts{
		LookPath:       pathWith(),
		Manager:        &manager,
		BinDir:         t.TempDir(),
		ReleaseBaseURL: server.URL,
	})

	tool := Tool{Name: "fakefetch", Binary: "fakefetch", Release: &Release{Repo: "a/b", Asset: "%s.tar.gz", Arch: map[string]string{runtime.GOARCH: "x"}}}
	_, err := i.Ensure(tool)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownPackageManager)
	assert.ErrorIs(t, err, errBinaryNotInArchive)
}

func TestEnsureReleaseHTTPError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	manager := Unknown
	i := New(pretty_log.Discard(), &fakeRunner{}, &Opts{LookPath: pathWith(), Manager: &manager, BinDir: t.TempDir(), ReleaseBaseURL: server.URL})

	_, err := i.Ensure(Fastfetch)
	require.Error(t, err)
	if _, ok := Fastfetch.Release.Arch[runtime.GOARCH]; ok {
		assert.Contains(t, err.Error(), "404")
	}
}

func TestVersionAtLeast(t *testing.T) {
	testCases := []struct {
		output   string
		minimum  string
		expectOK bool
		version  string
	}{
		{output: "sysbench 1.0.20\n", minimum: "1.0.0", expectOK: true, version: "1.0.20"},
		{output: "sysbench 1.0.20 (using bundled LuaJIT 2.1.0-beta2)", minimum: "1.1.0", expectOK: false, version: "1.0.20"},
		{output: "sysbench 0.4.12", minimum: "1.0", expectOK: false, version: "0.4.12"},
		{output: "sysbench 1.1.0-df89d34", minimum: "v1.0.0", expectOK: true, version: "1.1.0-df89d34"},
	}
	for _, tCase := range testCases {
		ok, version, err := VersionAtLeast(tCase.output, tCase.minimum)
		require.NoError(t, err, tCase.output)
		assert.Equal(t, tCase.expectOK, ok, tCase.output)
		assert.Equal(t, tCase.version, version, tCase.output)
	}

	_, _, err := VersionAtLeast("sysbench", "1.0.0")
	assert.Error(t, err)
	_, _, err = VersionAtLeast("sysbench 1.0.20", "not-a-version")
	assert.Error(t, err)
}
