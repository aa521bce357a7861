package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"break-the-query/internal/domain"
)

type CSVExporter struct{}

var _ LeaderboardExporter = CSVExporter{}

func (CSVExporter) ContentType() string { return "text/csv; charset=utf-8" }

func (CSVExporter) Extension() string { return "csv" }

func (CSVExporter) Export(_ context.Context, lb domain.Leaderboard, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header failed: %w", err)
	}
	records := make([][]string, 0, len(lb.Entries))
	for _, e := range lb.Entries {
		records = append(records, row(e))
	}
	// WriteAll flushes.
	return cw.WriteAll(records)
}
