package urllist

import (
	"context"
	"encoding/xml"
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// streamXML decodes elements with the given local name and sends them to a
// channel. Both channels are closed when processing completes.
func streamXML[T any](ctx context.Context, r io.Reader, elementName string) (<-chan T, <-chan error) {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		decoder := xml.NewDecoder(r)
		decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
			enc, err := htmlindex.Get(charset)
			if err != nil {
				return nil, eris.Wrapf(err, "xml: unsupported charset %q", charset)
			}
			return enc.NewDecoder().Reader(input), nil
		}

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "xml: context cancelled")
				return
			}

			tok, err := decoder.Token()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "xml: read token")
				return
			}

			se, ok := tok.(xml.StartElement)
			if !ok || se.Name.Local != elementName {
				continue
			}

			var item T
			if err := decoder.DecodeElement(&item, &se); err != nil {
				errCh <- eris.Wrap(err, "xml: decode element")
				return
			}

			select {
			case outCh <- item:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "xml: context cancelled")
				return
			}
		}
	}()

	return outCh, errCh
}

type sitemapLoc struct {
	Value string `xml:",chardata"`
}

// parseSitemap collects <loc> values from a urlset or a sitemap index.
// Index entries are returned as-is, not followed.
func parseSitemap(ctx context.Context, r io.Reader, opts Options) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := newCollector(opts.Limit)
	locCh, errCh := streamXML[sitemapLoc](ctx, r, "loc")
	for loc := range locCh {
		if !c.add(loc.Value) {
			return c.urls, nil
		}
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return c.urls, nil
}
