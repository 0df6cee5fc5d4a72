package notify

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"financas/internal/core"
)

type failingChannel struct{ calls int }

func (f *failingChannel) Name() string { return "broken" }

func (f *failingChannel) Send(context.Context, Notification) error {
	f.calls++
	return errors.New("unreachable")
}

func sampleAlerts() []core.Alert {
	m := core.Month{Year: 2026, Month: 1}
	return []core.Alert{
		{ID: "c", Type: core.AlertBudgetCritical, Severity: core.SeverityCritical, Message: "Lazer CRÍTICO", Month: m},
		{ID: "w", Type: core.AlertBudgetExceeded, Severity: core.SeverityWarning, Message: "Casa excedeu", Month: m},
		{ID: "i", Type: core.AlertLargeTransaction, Severity: core.SeverityInfo, Message: "Transação grande", Month: m},
	}
}

func TestConsoleChannel(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleChannel(&buf)
	err := c.Send(context.Background(), Notification{Title: "budget_critical", Message: "Lazer CRÍTICO", Severity: core.SeverityCritical, Source: "alert-worker"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	want := "🔴 [alert-worker] budget_critical\n   Lazer CRÍTICO\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestFileChannelAppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "notifications.jsonl")
	f := NewFileChannel(path)
	ctx := context.Background()
	for _, a := range sampleAlerts()[:2] {
		if err := f.Send(ctx, FromAlert(a, "test", time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC))); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	fh, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer fh.Close()
	var got []Notification
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		var n Notification
		if err := json.Unmarshal(sc.Bytes(), &n); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		got = append(got, n)
	}
	if len(got) != 2 || got[0].AlertID != "c" || got[1].Severity != core.SeverityWarning || got[1].Month != "2026-01" {
		t.Fatalf("unexpected log: %+v", got)
	}
}

func TestDispatcherFiltersAndIsolatesFailures(t *testing.T) {
	var buf bytes.Buffer
	broken := &failingChannel{}
	d := NewDispatcher(core.SeverityWarning, broken, NewConsoleChannel(&buf))

	sent, err := d.SendAlerts(context.Background(), sampleAlerts(), "test")
	if err == nil {
		t.Fatal("expected the broken channel error")
	}
	if sent != 2 {
		t.Fatalf("sent = %d, want 2", sent)
	}
	if broken.calls != 2 {
		t.Fatalf("broken channel called %d times, want 2", broken.calls)
	}
	if strings.Contains(buf.String(), "Transação grande") {
		t.Fatal("info alert should have been filtered")
	}
	if got := d.Channels(); len(got) != 2 || got[0] != "broken" || got[1] != "console" {
		t.Fatalf("channels = %v", got)
	}
}

func TestDispatcherAllChannelsFailing(t *testing.T) {
	d := NewDispatcher("", &failingChannel{})
	sent, err := d.SendAlerts(context.Background(), sampleAlerts(), "test")
	if err == nil || sent != 0 {
		t.Fatalf("sent=%d err=%v", sent, err)
	}
}
