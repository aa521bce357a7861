package export

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"break-the-query/internal/domain"
)

// LeaderboardExporter writes a projected leaderboard in some file format.
type LeaderboardExporter interface {
	Export(ctx context.Context, lb domain.Leaderboard, w io.Writer) error
	ContentType() string
	Extension() string
}

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// For returns the exporter for format; an empty format means CSV.
func For(format Format) (LeaderboardExporter, error) {
	switch format {
	case "", FormatCSV:
		return CSVExporter{}, nil
	case FormatXLSX:
		return XLSXExporter{}, nil
	default:
		return nil, domain.Invalid("format", fmt.Sprintf("must be %q or %q", FormatCSV, FormatXLSX))
	}
}

var header = []string{"Rank", "Team ID", "Team", "Leader", "College", "Marks", "Time Taken (s)"}

func row(e domain.LeaderboardEntry) []string {
	return []string{
		strconv.Itoa(e.Rank),
		e.TeamID,
		e.TeamName,
		e.LeaderName,
		e.College,
		strconv.FormatFloat(e.Marks, 'f', -1, 64),
		strconv.FormatFloat(e.TimeTakenSeconds, 'f', 3, 64),
	}
}
