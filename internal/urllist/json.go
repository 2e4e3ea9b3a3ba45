package urllist

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// decodeJSONArray decodes a JSON array element by element. Both channels
// are closed when processing completes.
func decodeJSONArray[T any](ctx context.Context, r io.Reader) (<-chan T, <-chan error) {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		decoder := json.NewDecoder(r)

		tok, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				return
			}
			errCh <- eris.Wrap(err, "json: read opening token")
			return
		}

		delim, ok := tok.(json.Delim)
		if !ok || delim != '[' {
			errCh <- eris.Errorf("json: expected '[', got %v", tok)
			return
		}

		for decoder.More() {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "json: context cancelled")
				return
			}

			var item T
			if err := decoder.Decode(&item); err != nil {
				errCh <- eris.Wrap(err, "json: decode element")
				return
			}

			select {
			case outCh <- item:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "json: context cancelled")
				return
			}
		}

		if _, err := decoder.Token(); err != nil && err != io.EOF {
			errCh <- eris.Wrap(err, "json: read closing token")
		}
	}()

	return outCh, errCh
}

// parseJSON accepts an array of strings or of objects with a "url" field.
func parseJSON(ctx context.Context, r io.Reader, opts Options) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := newCollector(opts.Limit)
	itemCh, errCh := decodeJSONArray[json.RawMessage](ctx, r)
	for raw := range itemCh {
		u, err := jsonURL(raw)
		if err != nil {
			return nil, err
		}
		if !c.add(u) {
			return c.urls, nil
		}
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return c.urls, nil
}

func jsonURL(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", eris.Wrapf(err, "json: element %s is neither a string nor an object", string(raw))
	}
	return obj.URL, nil
}
