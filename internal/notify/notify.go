// Package notify delivers alerts to people: a console channel for operators
// and an append-only JSON lines file for later inspection.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"financas/internal/core"
)

// Notification is one message handed to every channel.
type Notification struct {
	Title     string        `json:"title"`
	Message   string        `json:"message"`
	Severity  core.Severity `json:"severity"`
	Timestamp time.Time     `json:"timestamp"`
	Source    string        `json:"source"`
	AlertID   string        `json:"alert_id,omitempty"`
	Month     string        `json:"month,omitempty"`
}

// FromAlert wraps an alert as a notification.
func FromAlert(a core.Alert, source string, now time.Time) Notification {
	return Notification{
		Title:     string(a.Type),
		Message:   a.Message,
		Severity:  a.Severity,
		Timestamp: now,
		Source:    source,
		AlertID:   a.ID,
		Month:     a.Month.String(),
	}
}

// Channel is a delivery target.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// ConsoleChannel prints a two-line entry per notification.
type ConsoleChannel struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsoleChannel(out io.Writer) *ConsoleChannel {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleChannel{out: out}
}

func (c *ConsoleChannel) Name() string { return "console" }

var severityIcons = map[core.Severity]string{
	core.SeverityInfo:     "ℹ️ ",
	core.SeverityWarning:  "⚠️ ",
	core.SeverityCritical: "🔴",
}

func (c *ConsoleChannel) Send(_ context.Context, n Notification) error {
	icon, ok := severityIcons[n.Severity]
	if !ok {
		icon = "•"
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "%s [%s] %s\n   %s\n", icon, n.Source, n.Title, n.Message)
	return err
}

// FileChannel appends one JSON object per line to a log file.
type FileChannel struct {
	mu   sync.Mutex
	path string
}

func NewFileChannel(path string) *FileChannel {
	return &FileChannel{path: path}
}

func (f *FileChannel) Name() string { return "file" }

func (f *FileChannel) Send(_ context.Context, n Notification) error {
	line, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	fh, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open notification log: %w", err)
	}
	defer fh.Close()
	if _, err := fh.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write notification log: %w", err)
	}
	return nil
}

// Dispatcher fans notifications out to every channel. A failing channel does
// not stop delivery to the others.
type Dispatcher struct {
	channels    []Channel
	minSeverity core.Severity
	now         func() time.Time
}

// NewDispatcher creates a dispatcher that drops alerts below minSeverity.
// An empty minSeverity lets everything through.
func NewDispatcher(minSeverity core.Severity, channels ...Channel) *Dispatcher {
	if minSeverity == "" {
		minSeverity = core.SeverityInfo
	}
	return &Dispatcher{channels: channels, minSeverity: minSeverity, now: time.Now}
}

// Channels returns the configured channel names.
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.channels))
	for _, c := range d.channels {
		names = append(names, c.Name())
	}
	return names
}

// Notify delivers n to every channel. It returns how many channels accepted
// it and the joined channel errors.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) (int, error) {
	var (
		delivered int
		errs      []error
	)
	for _, c := range d.channels {
		if err := c.Send(ctx, n); err != nil {
			slog.ErrorContext(ctx, "Notification channel failed", "channel", c.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
			continue
		}
		delivered++
	}
	return delivered, errors.Join(errs...)
}

// SendAlerts notifies every alert at or above the minimum severity and
// returns how many were delivered to at least one channel.
func (d *Dispatcher) SendAlerts(ctx context.Context, alerts []core.Alert, source string) (int, error) {
	var (
		sent int
		errs []error
	)
	for _, a := range alerts {
		if a.Severity.Rank() < d.minSeverity.Rank() {
			continue
		}
		delivered, err := d.Notify(ctx, FromAlert(a, source, d.now()))
		if err != nil {
			errs = append(errs, err)
		}
		if delivered > 0 {
			sent++
		}
	}
	return sent, errors.Join(errs...)
}
