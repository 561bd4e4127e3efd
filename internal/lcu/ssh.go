// Package lcu talks to a station's local control unit: it renders the
// beamctl commands for an observation, runs them over SSH, and reads the
// station state used by the availability check.
package lcu

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Runner executes one shell command on the LCU and returns its stdout.
type Runner interface {
	Run(ctx context.Context, cmd string) (string, error)
}

// SSHConfig describes how to reach an LCU.
type SSHConfig struct {
	Host           string
	Port           int
	User           string
	KeyFile        string
	KnownHostsFile string // empty disables host key checking
	DialTimeout    time.Duration
}

// SSHRunner opens a fresh connection per command. Commands are rare (a
// probe and a submission per alert) so there is no connection reuse.
type SSHRunner struct {
	addr   string
	config *ssh.ClientConfig
}

// NewSSHRunner loads the key material and returns a ready runner.
func NewSSHRunner(cfg SSHConfig) (*SSHRunner, error) {
	if cfg.Host == "" {
		return nil, errors.New("lcu: host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}

	key, err := os.ReadFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("lcu: read key %s: %w", cfg.KeyFile, err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("lcu: parse key %s: %w", cfg.KeyFile, err)
	}

	hostKey := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHostsFile != "" {
		hostKey, err = knownhosts.New(cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("lcu: known hosts %s: %w", cfg.KnownHostsFile, err)
		}
	}

	return &SSHRunner{
		addr: net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port)),
		config: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
			HostKeyCallback: hostKey,
			Timeout:         cfg.DialTimeout,
		},
	}, nil
}

// Run implements Runner. Cancelling ctx closes the connection at any point,
// including during the handshake, which is also bounded by DialTimeout.
func (r *SSHRunner) Run(ctx context.Context, cmd string) (string, error) {
	var d net.Dialer
	d.Timeout = r.config.Timeout
	conn, err := d.DialContext(ctx, "tcp", r.addr)
	if err != nil {
		return "", fmt.Errorf("lcu: dial %s: %w", r.addr, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if r.config.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(r.config.Timeout))
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, r.addr, r.config)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("lcu: handshake %s: %w", r.addr, ctx.Err())
		}
		return "", fmt.Errorf("lcu: handshake %s: %w", r.addr, err)
	}
	_ = conn.SetDeadline(time.Time{})

	client := ssh.NewClient(c, chans, reqs)
	defer client.Close()

	sess, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("lcu: session: %w", err)
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr
	if err := sess.Run(cmd); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("lcu: %w", ctx.Err())
		}
		msg := bytes.TrimSpace(stderr.Bytes())
		if len(msg) > 0 {
			return stdout.String(), fmt.Errorf("lcu: %w: %s", err, msg)
		}
		return stdout.String(), fmt.Errorf("lcu: %w", err)
	}
	return stdout.String(), nil
}
