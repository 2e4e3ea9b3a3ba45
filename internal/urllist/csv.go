package urllist

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
)

// streamCSV reads records and sends them to a channel. Both channels are
// closed when processing completes.
func streamCSV(ctx context.Context, r io.Reader, delimiter rune) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		reader.Comma = delimiter
		reader.Comment = '#'
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

func parseCSV(ctx context.Context, r io.Reader, delimiter rune, opts Options) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rowCh, errCh := streamCSV(ctx, r, delimiter)
	urls, stopped, err := collectColumn(rowCh, opts)
	if err != nil || stopped {
		return urls, err
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return urls, nil
}

// collectColumn consumes table rows, selecting the URL column from the first
// row. stopped reports that the limit was hit before rows ran out.
func collectColumn(rows <-chan []string, opts Options) (urls []string, stopped bool, err error) {
	c := newCollector(opts.Limit)
	idx := -1
	for row := range rows {
		if idx < 0 {
			i, skip, err := selectColumn(row, opts.Column)
			if err != nil {
				return nil, true, err
			}
			idx = i
			if skip {
				continue
			}
		}
		if !c.add(cell(row, idx)) {
			return c.urls, true, nil
		}
	}
	return c.urls, false, nil
}
