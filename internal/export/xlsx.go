package export

import (
	"context"
	"fmt"
	"io"

	"break-the-query/internal/domain"
	"github.com/xuri/excelize/v2"
)

type XLSXExporter struct{}

var _ LeaderboardExporter = XLSXExporter{}

func (XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSXExporter) Extension() string { return "xlsx" }

func (XLSXExporter) Export(_ context.Context, lb domain.Leaderboard, w io.Writer) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close workbook: %w", cerr)
		}
	}()

	sheet := sheetName(lb.Round)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("name sheet failed: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header failed: %w", err)
	}
	for i, e := range lb.Entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{e.Rank, e.TeamID, e.TeamName, e.LeaderName, e.College, e.Marks, e.TimeTakenSeconds}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d failed: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook failed: %w", err)
	}
	return nil
}

// sheetName trims to Excel's 31 character limit and strips forbidden characters.
func sheetName(round string) string {
	out := make([]rune, 0, len(round))
	for _, r := range round {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			continue
		}
		out = append(out, r)
		if len(out) == 31 {
			break
		}
	}
	if len(out) == 0 {
		return "Leaderboard"
	}
	return string(out)
}
