package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/stuffkit/backend/internal/infrastructure/config"
	"github.com/stuffkit/backend/internal/infrastructure/retry"
	"github.com/stuffkit/backend/internal/interfaces/http/dto"
	"github.com/stuffkit/backend/internal/interfaces/http/handler"
	"go.uber.org/zap"
)

const healthPath = "/api/v1/system/health"

func newHealthcheckCommand(configDir *string) *cobra.Command {
	var (
		target  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check a running server's health endpoint and exit non-zero when unhealthy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configDir)
			if err != nil {
				return err
			}
			if target == "" {
				target = "http://127.0.0.1:" + cfg.App.Port + healthPath
			}
			health, err := fetchHealth(cmd.Context(), target, timeout, cfg.Retry, zap.NewNop())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s database=%s redis=%s\n", health.Status, health.Database, health.Redis)
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "url", "", "Health endpoint URL (default: local server on the configured port)")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "Per-attempt timeout")
	return cmd
}

// fetchHealth fetches the health endpoint, retrying transport failures. Any
// status other than 200 is an error.
func fetchHealth(ctx context.Context, target string, timeout time.Duration, rc config.RetryConfig, log *zap.Logger) (*handler.HealthResponse, error) {
	client := retry.NewClient(timeout, retry.FromConfig(rc, log))
	resp, err := client.Get(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}

	var body dto.ResponseSO[handler.HealthResponse]
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("decoding health response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || body.Payload == nil {
		if body.Payload != nil {
			return nil, fmt.Errorf("server unhealthy: status %d, database=%s redis=%s",
				resp.StatusCode, body.Payload.Database, body.Payload.Redis)
		}
		return nil, fmt.Errorf("server unhealthy: status %d", resp.StatusCode)
	}
	return body.Payload, nil
}
