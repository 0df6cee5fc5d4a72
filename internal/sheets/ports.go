package sheets

import (
	"context"

	"financas/internal/core"
)

// Ports for outbound adapters.
type (
	// SummaryWriter publishes a month's budget table.
	SummaryWriter interface {
		WriteSummary(ctx context.Context, s core.PartitionedSummary) error
	}

	// SummaryReader reads back the category totals of an exported month.
	SummaryReader interface {
		ReadSummary(ctx context.Context, m core.Month) ([]core.CategoryAmount, error)
	}

	// AlertWriter appends alerts to a running log.
	AlertWriter interface {
		AppendAlerts(ctx context.Context, alerts []core.Alert) error
	}
)
