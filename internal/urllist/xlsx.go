package urllist

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

func readXLSXFile(ctx context.Context, path string, opts Options) ([]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	return collectSheet(ctx, f, opts)
}

// parseXLSX spools r to a temp file since workbooks need random access.
func parseXLSX(ctx context.Context, r io.Reader, opts Options) ([]string, error) {
	tmp, err := os.CreateTemp("", "urllist-*.xlsx")
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "xlsx: spool input")
	}
	if err := tmp.Close(); err != nil {
		return nil, eris.Wrap(err, "xlsx: close temp file")
	}
	return readXLSXFile(ctx, tmp.Name(), opts)
}

func collectSheet(ctx context.Context, f *xlsx.File, opts Options) ([]string, error) {
	sheet, err := getSheet(f, opts.Sheet)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rows := make(chan []string)
	go func() {
		defer close(rows)
		for _, row := range sheet.Rows {
			select {
			case rows <- rowToStrings(row):
			case <-ctx.Done():
				return
			}
		}
	}()

	urls, _, err := collectColumn(rows, opts)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, eris.Wrap(ctx.Err(), "xlsx: context cancelled")
	}
	return urls, nil
}

func getSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, c := range row.Cells {
		cells[j] = c.String()
	}
	return cells
}
