package urllist

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// parseText reads one URL per line. Lines starting with # are comments.
func parseText(ctx context.Context, r io.Reader, opts Options) ([]string, error) {
	c := newCollector(opts.Limit)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "urllist: context cancelled")
		}
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}
		if !c.add(line) {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "urllist: read lines")
	}
	return c.urls, nil
}
