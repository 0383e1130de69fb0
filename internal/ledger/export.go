package ledger

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"financeflow/internal/codec"
	"financeflow/internal/core"
	"financeflow/internal/log"
)

const exportTimeLayout = "20060102_150405"

// WriteExport writes the full collection to a distinctly named, timestamped
// artifact in the data directory root and returns its path. The artifact is
// write-only: the system never reads it back, and the live ledger is not
// touched.
func (s *Store) WriteExport(ctx context.Context, username string, txns []core.Transaction) (string, error) {
	name := fmt.Sprintf("%s_finance_export_%s.csv", username, time.Now().Format(exportTimeLayout))
	path := filepath.Join(s.dataDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export for %s: %w", username, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString(codec.ExportHeader + "\n"); err != nil {
		return "", fmt.Errorf("write export header for %s: %w", username, err)
	}
	for _, t := range txns {
		if _, err := w.WriteString(codec.Encode(t) + "\n"); err != nil {
			return "", fmt.Errorf("write export record for %s: %w", username, err)
		}
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("flush export for %s: %w", username, err)
	}

	slog.InfoContext(ctx, "Ledger exported",
		log.FieldUsername, username, log.FieldPath, path, log.FieldRecords, len(txns))
	return path, nil
}
