package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"financas/internal/amqp"
	"financas/internal/cache"
	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/notify"
	"financas/internal/sheets"
)

const (
	seenCapacity = 1024
	seenTTL      = 24 * time.Hour
)

// AlertWorker delivers alert batches consumed from the broker to the
// notification channels and, when configured, the spreadsheet alert log.
type AlertWorker struct {
	dispatcher *notify.Dispatcher
	log        sheets.AlertWriter
	seen       *cache.LRUCache[struct{}]
	source     string
}

// NewAlertWorker builds a worker. log may be nil.
func NewAlertWorker(dispatcher *notify.Dispatcher, log sheets.AlertWriter, source string) *AlertWorker {
	if source == "" {
		source = "alert-worker"
	}
	return &AlertWorker{
		dispatcher: dispatcher,
		log:        log,
		seen:       cache.NewLRUCache[struct{}](seenCapacity, seenTTL),
		source:     source,
	}
}

// Seen exposes the redelivery cache so callers can register it for cleanup.
func (w *AlertWorker) Seen() cache.Cleaner { return w.seen }

// HandleAlertMessage processes one batch. A batch already handled is
// acknowledged without side effects. Only a failed sheet append is returned
// so the broker redelivers; notification failures are logged.
func (w *AlertWorker) HandleAlertMessage(ctx context.Context, msg *amqp.AlertBatchMessage) error {
	if _, ok := w.seen.Get(msg.MessageID); ok {
		slog.InfoContext(ctx, "Skipping redelivered alert batch", "message_id", msg.MessageID)
		return nil
	}

	alerts, err := msg.CoreAlerts()
	if err != nil {
		slog.ErrorContext(ctx, "Dropping malformed alert batch", "message_id", msg.MessageID, "error", err)
		w.seen.Set(msg.MessageID, struct{}{})
		return nil
	}
	core.SortAlerts(alerts)
	for _, a := range alerts {
		slog.DebugContext(ctx, "Alert received", applog.NewFields().
			WithAlert(a).
			WithMonth(a.Month).
			WithOperation(applog.OpNotify).
			ToSlice()...)
	}

	if w.log != nil && len(alerts) > 0 {
		if err := w.log.AppendAlerts(ctx, alerts); err != nil {
			return fmt.Errorf("append alerts to sheet: %w", err)
		}
	}

	sent, err := w.dispatcher.SendAlerts(ctx, alerts, w.source)
	if err != nil {
		slog.WarnContext(ctx, "Some notifications failed", "message_id", msg.MessageID, "error", err)
	}
	w.seen.Set(msg.MessageID, struct{}{})

	slog.InfoContext(ctx, "Processed alert batch",
		"message_id", msg.MessageID,
		"month", msg.Month,
		"alerts", len(alerts),
		"notified", sent)
	return nil
}
