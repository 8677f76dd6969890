package job

import (
	"context"
	"log/slog"

	"github.com/postvault/postvault/internal/service"
)

type CredentialsRefreshJob struct {
	cs service.CredentialsService
}

func NewCredentialsRefreshJob(cs service.CredentialsService) *CredentialsRefreshJob {
	return &CredentialsRefreshJob{cs: cs}
}

func (c *CredentialsRefreshJob) RefreshTokens() {
	ctx := context.Background()

	if err := c.cs.Refresh(ctx); err != nil {
		slog.Info("Unable to refresh Instagram token")
	}
}
