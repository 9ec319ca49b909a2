package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"fingestor/internal/amqp"
	"fingestor/internal/core"
)

// Export writes the whole store as a backup document.
func (s *FinanceService) Export(ctx context.Context, w io.Writer) error {
	b, err := s.store.Dump(ctx)
	if err != nil {
		return fmt.Errorf("dump store: %w", err)
	}
	if err := core.WriteBackup(w, b); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Backup exported", "counts", b.Counts())
	return nil
}

// Import replaces the store with the backup read from r and returns the
// restored record counts. A malformed document leaves the store untouched.
func (s *FinanceService) Import(ctx context.Context, r io.Reader) (map[string]int, error) {
	b, err := core.ReadBackup(r)
	if err != nil {
		return nil, err
	}
	if err := s.store.Restore(ctx, b); err != nil {
		return nil, err
	}
	s.publish(ctx, amqp.ActionRestore, 0)
	return b.Counts(), nil
}
