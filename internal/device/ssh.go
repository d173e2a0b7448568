package device

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/deploymenttheory/go-api-runner/internal/errors"
	"github.com/deploymenttheory/go-api-runner/internal/logger"
	"golang.org/x/crypto/ssh"
)

// SSHOptions configures the SSH stub
type SSHOptions struct {
	Host     string
	User     string
	Password string
	Delay    time.Duration
}

// SSH simulates opening an SSH session. It prepares the client configuration a real
// session would use but never dials the host.
type SSH struct {
	opts      SSHOptions
	config    *ssh.ClientConfig
	connected bool
}

// NewSSH creates an SSH stub
func NewSSH(opts SSHOptions) *SSH {
	return &SSH{opts: opts}
}

// Name returns "ssh"
func (s *SSH) Name() string {
	return "ssh"
}

// Host returns the configured host
func (s *SSH) Host() string {
	return s.opts.Host
}

// Connect builds the client configuration and waits out the simulated handshake
func (s *SSH) Connect(ctx context.Context) error {
	logger.LogInfo(fmt.Sprintf("MOCK_SSH: Connecting to host %s...", s.opts.Host), nil)

	var auth []ssh.AuthMethod
	if s.opts.Password != "" {
		auth = append(auth, ssh.Password(s.opts.Password))
	}

	s.config = &ssh.ClientConfig{
		User:            s.opts.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         s.opts.Delay,
	}

	if err := wait(ctx, s.opts.Delay); err != nil {
		return err
	}

	s.connected = true
	logger.LogInfo("MOCK_SSH: Connection established.", map[string]interface{}{
		"user":         s.opts.User,
		"auth_methods": len(auth),
	})
	return nil
}

// ClientConfig returns the configuration prepared by Connect, or nil before it
func (s *SSH) ClientConfig() *ssh.ClientConfig {
	return s.config
}

// Execute pretends to run command on the connected host
func (s *SSH) Execute(ctx context.Context, command string) (string, error) {
	if !s.connected {
		return "", fmt.Errorf("%w: ssh %s", apperrors.ErrNotConnected, s.opts.Host)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	logger.LogInfo(fmt.Sprintf("MOCK_SSH: Executing command: %s", command), nil)
	return "Command executed successfully", nil
}
