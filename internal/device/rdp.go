package device

import (
	"context"
	"fmt"
	"time"

	"github.com/deploymenttheory/go-api-runner/internal/logger"
)

// RDP simulates validating a remote desktop connection
type RDP struct {
	host  string
	delay time.Duration
}

// NewRDP creates an RDP stub
func NewRDP(host string, delay time.Duration) *RDP {
	return &RDP{host: host, delay: delay}
}

// Name returns "rdp"
func (r *RDP) Name() string {
	return "rdp"
}

// Connect waits out the simulated validation
func (r *RDP) Connect(ctx context.Context) error {
	logger.LogInfo(fmt.Sprintf("MOCK_RDP: Validating remote connection to %s...", r.host), nil)

	if err := wait(ctx, r.delay); err != nil {
		return err
	}

	logger.LogInfo("MOCK_RDP: Connection validated.", nil)
	return nil
}
