package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/melbahja/goph"
	"golang.org/x/crypto/ssh"

	"hostbench/pkg/app"
)

const handshakeRetries = 50

func sshAuth(cfg *app.SSHConfig) (goph.Auth, error) {
	if cfg.KeyFile != "" {
		return goph.Key(cfg.KeyFile, "")
	}
	return goph.Password(cfg.Password), nil
}

func sshConnect(cfg *app.SSHConfig) (*goph.Client, error) {
	auth, err := sshAuth(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load ssh key %s: %w", cfg.KeyFile, err)
	}

	var client *goph.Client
	for attempt := 0; ; attempt++ {
		client, err = goph.NewConn(&goph.Config{
			User:     cfg.Username,
			Addr:     cfg.Host,
			Port:     cfg.Port,
			Auth:     auth,
			Timeout:  goph.DefaultTimeout,
			Callback: ssh.InsecureIgnoreHostKey(),
		})
		if err != nil {
			if strings.Contains(err.Error(), "ssh: handshake failed:") && attempt < handshakeRetries {
				time.Sleep(100 * time.Millisecond)
				continue
			}

			return nil, err
		}

		return client, nil
	}
}

// SshCommand executes the commands in order on the host described by cfg
func SshCommand(cfg *app.SSHConfig, commands []string) ([]string, error) {
	client, err := sshConnect(cfg)
	if err != nil {
		return nil, err
	}
	defer func(client *goph.Client) {
		_ = client.Close()
	}(client)

	var outAll []string

	for _, command := range commands {
		out, err := client.Run(command)
		if out != nil {
			outAll = append(outAll, string(out))
		}

		if err != nil {
			if len(outAll) > 0 {
				return outAll, fmt.Errorf("ssh err %w. details: %s", err, outAll[len(outAll)-1])
			}
			return outAll, fmt.Errorf("ssh err %w", err)
		}
	}

	return outAll, nil
}

// IperfServerCommand starts a daemonized iperf3 server that exits after serving one test
func IperfServerCommand(port int) string {
	return fmt.Sprintf("iperf3 -s -1 -D -p %d", port)
}
