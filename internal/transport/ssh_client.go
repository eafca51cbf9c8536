package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/TheMichaelB/remarksync/internal/config"
	"github.com/TheMichaelB/remarksync/internal/events"
	"github.com/TheMichaelB/remarksync/internal/models"
)

// SSHClient implements Transport over a persistent SSH session with an
// SFTP subsystem for file transfer.
type SSHClient struct {
	cfg    *config.DeviceConfig
	logger *events.Logger

	mu     sync.Mutex
	client *ssh.Client
	sftp   *sftp.Client
	done   chan struct{}
}

// NewSSHClient creates a transport for the configured device. The
// connection is established lazily on first use.
func NewSSHClient(cfg *config.DeviceConfig, logger *events.Logger) *SSHClient {
	return &SSHClient{
		cfg:    cfg,
		logger: logger.WithField("component", "ssh_transport"),
	}
}

// Connect establishes the SSH and SFTP sessions, retrying transient
// network failures up to the configured attempt count.
func (c *SSHClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *SSHClient) connectLocked(ctx context.Context) error {
	if c.client != nil {
		return nil
	}

	if c.cfg.Host == "" || c.cfg.Password == "" {
		return fmt.Errorf("%w: host and password are required", models.ErrInvalidConfig)
	}

	sshCfg := &ssh.ClientConfig{
		User: c.cfg.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(c.cfg.Password),
		},
		// The tablet regenerates its host key on factory reset; pinning
		// would strand users after every reset.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.cfg.ConnectTimeout,
	}

	addr := net.JoinHostPort(c.cfg.Host, fmt.Sprintf("%d", c.cfg.Port))

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.logger.WithFields(map[string]interface{}{
			"addr":    addr,
			"attempt": attempt + 1,
		}).Debug("Connecting to device")

		client, err := ssh.Dial("tcp", addr, sshCfg)
		if err == nil {
			sftpClient, err := sftp.NewClient(client)
			if err != nil {
				client.Close()
				return &models.TransportError{Op: "sftp", Err: err}
			}

			c.client = client
			c.sftp = sftpClient
			c.done = make(chan struct{})
			go c.keepalive(c.client, c.done)

			c.logger.WithField("addr", addr).Info("Connected to device")
			return nil
		}

		lastErr = err
		c.logger.WithError(err).Warn("Connection attempt failed")

		if attempt < c.cfg.MaxRetries-1 {
			select {
			case <-time.After(c.cfg.RetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return &models.TransportError{Op: "connect", Err: lastErr}
}

// keepalive sends periodic requests so NAT and the device's power
// management do not drop an idle session.
func (c *SSHClient) keepalive(client *ssh.Client, done chan struct{}) {
	ticker := time.NewTicker(c.cfg.KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, _, err := client.SendRequest("keepalive@openssh.com", true, nil); err != nil {
				c.logger.WithError(err).Debug("Keepalive failed")
				return
			}
		case <-done:
			return
		}
	}
}

// ensureConnected connects on first use or after a dropped session.
func (c *SSHClient) ensureConnected(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

// Execute runs a command on the device.
func (c *SSHClient) Execute(ctx context.Context, command string) (*CommandResult, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	session, err := c.client.NewSession()
	if err != nil {
		return nil, &models.TransportError{Op: "execute", Err: err}
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	c.logger.WithField("command", command).Debug("Executing command")
	start := time.Now()

	runErr := session.Run(command)
	result := &CommandResult{
		Command:  command,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if runErr != nil {
		var exitErr *ssh.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitStatus()
		} else {
			return nil, &models.TransportError{Op: "execute", Err: runErr}
		}
	}

	if !result.Success() {
		c.logger.WithFields(map[string]interface{}{
			"command":   command,
			"exit_code": result.ExitCode,
			"stderr":    result.Stderr,
		}).Warn("Command exited non-zero")
	}

	return result, nil
}

// Upload copies a local file to the device.
func (c *SSHClient) Upload(ctx context.Context, localPath, remotePath string) error {
	if err := c.ensureConnected(ctx); err != nil {
		return err
	}

	local, err := os.Open(localPath)
	if err != nil {
		return &models.TransportError{Op: "upload", Path: localPath, Err: err}
	}
	defer local.Close()

	if dir := path.Dir(remotePath); dir != "/" && dir != "." {
		if err := c.sftp.MkdirAll(dir); err != nil {
			return &models.TransportError{Op: "upload", Path: dir, Err: err}
		}
	}

	remote, err := c.sftp.Create(remotePath)
	if err != nil {
		return &models.TransportError{Op: "upload", Path: remotePath, Err: err}
	}
	defer remote.Close()

	start := time.Now()
	written, err := io.Copy(remote, local)
	if err != nil {
		return &models.TransportError{Op: "upload", Path: remotePath, Err: err}
	}

	c.logger.WithFields(map[string]interface{}{
		"local":    localPath,
		"remote":   remotePath,
		"bytes":    written,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Debug("Upload completed")

	return nil
}

// Download copies a device file to a local path.
func (c *SSHClient) Download(ctx context.Context, remotePath, localPath string) error {
	if err := c.ensureConnected(ctx); err != nil {
		return err
	}

	remote, err := c.sftp.Open(remotePath)
	if err != nil {
		return &models.TransportError{Op: "download", Path: remotePath, Err: err}
	}
	defer remote.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return &models.TransportError{Op: "download", Path: localPath, Err: err}
	}

	local, err := os.Create(localPath)
	if err != nil {
		return &models.TransportError{Op: "download", Path: localPath, Err: err}
	}
	defer local.Close()

	start := time.Now()
	written, err := io.Copy(local, remote)
	if err != nil {
		return &models.TransportError{Op: "download", Path: remotePath, Err: err}
	}

	c.logger.WithFields(map[string]interface{}{
		"remote":   remotePath,
		"local":    localPath,
		"bytes":    written,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Debug("Download completed")

	return nil
}

// ReadFile returns the content of a device file.
func (c *SSHClient) ReadFile(ctx context.Context, remotePath string) ([]byte, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	remote, err := c.sftp.Open(remotePath)
	if err != nil {
		return nil, &models.TransportError{Op: "read", Path: remotePath, Err: err}
	}
	defer remote.Close()

	data, err := io.ReadAll(remote)
	if err != nil {
		return nil, &models.TransportError{Op: "read", Path: remotePath, Err: err}
	}

	return data, nil
}

// WriteFile replaces the content of a device file.
func (c *SSHClient) WriteFile(ctx context.Context, remotePath string, data []byte) error {
	if err := c.ensureConnected(ctx); err != nil {
		return err
	}

	if dir := path.Dir(remotePath); dir != "/" && dir != "." {
		if err := c.sftp.MkdirAll(dir); err != nil {
			return &models.TransportError{Op: "write", Path: dir, Err: err}
		}
	}

	remote, err := c.sftp.Create(remotePath)
	if err != nil {
		return &models.TransportError{Op: "write", Path: remotePath, Err: err}
	}
	defer remote.Close()

	if _, err := remote.Write(data); err != nil {
		return &models.TransportError{Op: "write", Path: remotePath, Err: err}
	}

	return nil
}

// Exists checks whether a device path exists.
func (c *SSHClient) Exists(ctx context.Context, remotePath string) (bool, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return false, err
	}

	_, err := c.sftp.Stat(remotePath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, &models.TransportError{Op: "stat", Path: remotePath, Err: err}
}

// ListDir returns the entry names of a device directory.
func (c *SSHClient) ListDir(ctx context.Context, remotePath string) ([]string, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	infos, err := c.sftp.ReadDir(remotePath)
	if err != nil {
		return nil, &models.TransportError{Op: "list", Path: remotePath, Err: err}
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}

	return names, nil
}

// ListTree walks a device directory recursively.
func (c *SSHClient) ListTree(ctx context.Context, remotePath string) ([]RemoteEntry, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	var entries []RemoteEntry

	walker := c.sftp.Walk(remotePath)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			// Unreadable subtrees are skipped, not fatal.
			c.logger.WithError(err).Debug("Skipping unreadable remote entry")
			continue
		}

		info := walker.Stat()
		if info == nil || info.IsDir() {
			continue
		}

		rel, err := relPath(remotePath, walker.Path())
		if err != nil {
			continue
		}

		entries = append(entries, RemoteEntry{
			Path:    rel,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	return entries, nil
}

func relPath(root, full string) (string, error) {
	rel, err := filepath.Rel(root, full)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// Close tears down the session.
func (c *SSHClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done != nil {
		close(c.done)
		c.done = nil
	}

	if c.sftp != nil {
		_ = c.sftp.Close()
		c.sftp = nil
	}

	if c.client != nil {
		err := c.client.Close()
		c.client = nil
		return err
	}

	return nil
}
