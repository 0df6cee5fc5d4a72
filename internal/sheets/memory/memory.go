package memory

import (
	"context"
	"sync"

	"financas/internal/core"
	ports "financas/internal/sheets"
)

// Store keeps exported tables in memory, keyed by month. It stands in for
// the spreadsheet in tests and dry runs.
type Store struct {
	mu        sync.Mutex
	summaries map[core.Month][][]string
	alerts    [][]string
}

var (
	_ ports.SummaryWriter = (*Store)(nil)
	_ ports.SummaryReader = (*Store)(nil)
	_ ports.AlertWriter   = (*Store)(nil)
)

func New() *Store {
	return &Store{summaries: make(map[core.Month][][]string)}
}

func (s *Store) WriteSummary(_ context.Context, sum core.PartitionedSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[sum.Month] = ports.SummaryRows(sum)
	return nil
}

func (s *Store) ReadSummary(_ context.Context, m core.Month) ([]core.CategoryAmount, error) {
	s.mu.Lock()
	rows := s.summaries[m]
	s.mu.Unlock()
	return ports.ParseSummary(rows)
}

func (s *Store) AppendAlerts(_ context.Context, alerts []core.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range alerts {
		s.alerts = append(s.alerts, ports.AlertRow(a))
	}
	return nil
}

// Rows returns a copy of the table stored for m.
func (s *Store) Rows(m core.Month) [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.summaries[m]...)
}

// Alerts returns a copy of the appended alert rows.
func (s *Store) Alerts() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.alerts...)
}
