package worker

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"financas/internal/amqp"
	"financas/internal/core"
	"financas/internal/notify"
	"financas/internal/sheets/memory"
)

type failingLog struct{ calls int }

func (f *failingLog) AppendAlerts(context.Context, []core.Alert) error {
	f.calls++
	return errors.New("quota exceeded")
}

func testBatch() *amqp.AlertBatchMessage {
	jan := core.Month{Year: 2026, Month: 1}
	now := time.Date(2026, 1, 20, 8, 0, 0, 0, time.UTC)
	return amqp.NewAlertBatchMessage(jan, []core.Alert{
		{ID: "a1", Type: core.AlertBudgetWarning, Severity: core.SeverityInfo, Category: "lazer", Message: "Lazer em 85%", Month: jan, CreatedAt: now},
		{ID: "a2", Type: core.AlertBudgetCritical, Severity: core.SeverityCritical, Category: "compras", Message: "Compras em 125%", Month: jan, CreatedAt: now},
	})
}

func TestHandleAlertMessage(t *testing.T) {
	var out bytes.Buffer
	store := memory.New()
	w := NewAlertWorker(notify.NewDispatcher(core.SeverityInfo, notify.NewConsoleChannel(&out)), store, "")
	ctx := context.Background()
	msg := testBatch()

	if err := w.HandleAlertMessage(ctx, msg); err != nil {
		t.Fatalf("HandleAlertMessage() error = %v", err)
	}
	rows := store.Alerts()
	if len(rows) != 2 {
		t.Fatalf("expected 2 logged alerts, got %d", len(rows))
	}
	if rows[0][2] != string(core.SeverityCritical) {
		t.Fatalf("critical alert should be logged first, got %v", rows[0])
	}
	if !strings.Contains(out.String(), "[alert-worker]") || !strings.Contains(out.String(), "Compras em 125%") {
		t.Fatalf("unexpected console output %q", out.String())
	}

	// redelivery of the same batch
	out.Reset()
	if err := w.HandleAlertMessage(ctx, msg); err != nil {
		t.Fatalf("redelivery error = %v", err)
	}
	if len(store.Alerts()) != 2 || out.Len() != 0 {
		t.Fatalf("redelivered batch must not be processed again")
	}
}

func TestHandleAlertMessageSheetFailure(t *testing.T) {
	var out bytes.Buffer
	log := &failingLog{}
	w := NewAlertWorker(notify.NewDispatcher(core.SeverityInfo, notify.NewConsoleChannel(&out)), log, "test")
	msg := testBatch()

	if err := w.HandleAlertMessage(context.Background(), msg); err == nil {
		t.Fatal("expected an error so the batch is redelivered")
	}
	if out.Len() != 0 {
		t.Fatal("nothing should be notified before the sheet append succeeds")
	}
	if err := w.HandleAlertMessage(context.Background(), msg); err == nil || log.calls != 2 {
		t.Fatalf("failed batch must be retried, calls=%d", log.calls)
	}
}

func TestHandleAlertMessageDropsBadMonth(t *testing.T) {
	var out bytes.Buffer
	store := memory.New()
	w := NewAlertWorker(notify.NewDispatcher(core.SeverityInfo, notify.NewConsoleChannel(&out)), store, "test")
	msg := &amqp.AlertBatchMessage{MessageID: "bad", Month: "janeiro"}

	if err := w.HandleAlertMessage(context.Background(), msg); err != nil {
		t.Fatalf("malformed batch should be dropped, got %v", err)
	}
	if len(store.Alerts()) != 0 || out.Len() != 0 {
		t.Fatal("malformed batch must not produce output")
	}
}
