package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/allisson/catalog/internal/app"
	"github.com/allisson/catalog/internal/config"
)

// RunOutboxStats prints the outbox entry counts per status.
func RunOutboxStats(ctx context.Context, format string) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	outboxRepo, err := container.OutboxRepository()
	if err != nil {
		return fmt.Errorf("failed to initialize outbox repository: %w", err)
	}

	stats, err := outboxRepo.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get outbox stats: %w", err)
	}

	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(map[string]int64{
			"pending":    stats.Pending,
			"processing": stats.Processing,
			"processed":  stats.Processed,
			"failed":     stats.Failed,
			"total":      stats.Total(),
		})
	case "text":
		fmt.Printf("Outbox entries:\n")
		fmt.Printf("  pending:    %d\n", stats.Pending)
		fmt.Printf("  processing: %d\n", stats.Processing)
		fmt.Printf("  processed:  %d\n", stats.Processed)
		fmt.Printf("  failed:     %d\n", stats.Failed)
		fmt.Printf("  total:      %d\n", stats.Total())
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid options: text, json)", format)
	}
}
