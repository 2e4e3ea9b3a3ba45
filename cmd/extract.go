package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/snapapi-go/internal/ledger"
	"github.com/sells-group/snapapi-go/internal/store"
	"github.com/sells-group/snapapi-go/pkg/snapapi"
)

var extractFlags struct {
	typ        string
	selector   string
	waitFor    string
	maxLength  int
	blockAds   bool
	noImages   bool
	save       bool
	out        string
	jsonOutput bool
}

var extractCmd = &cobra.Command{
	Use:   "extract <url>",
	Short: "Extract page content as markdown, text, html, links, images or metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		opts := snapapi.ExtractOptions{
			URL:       args[0],
			Type:      snapapi.ExtractType(extractFlags.typ),
			Selector:  extractFlags.selector,
			WaitFor:   extractFlags.waitFor,
			MaxLength: extractFlags.maxLength,
			BlockAds:  extractFlags.blockAds,
		}
		if extractFlags.noImages {
			opts.IncludeImages = snapapi.Bool(false)
		}
		return runExtract(ctx, env, opts, extractFlags.save, extractFlags.out, extractFlags.jsonOutput)
	},
}

// runExtract prints the extracted content and, with save, stores it as an artifact.
func runExtract(ctx context.Context, env *cliEnv, opts snapapi.ExtractOptions, save bool, key string, asJSON bool) error {
	res, err := env.Client.Extract(ctx, opts)
	if err != nil {
		env.Recorder.RecordFailure(ctx, store.KindExtract, opts.URL, err)
		return eris.Wrap(err, "extract")
	}

	if save {
		body, contentType := extractArtifact(res)
		c, err := env.Recorder.SaveOne(ctx, store.KindExtract, ledger.Artifact{
			URL:         opts.URL,
			Key:         key,
			Data:        body,
			ContentType: contentType,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "saved %s (%d bytes)\n", c.Location, c.Bytes) //nolint:errcheck
	}

	if asJSON {
		return printJSON(env.Out, res)
	}
	_, err = fmt.Fprintln(env.Out, res.Text())
	return err
}

// extractArtifact picks the stored body and media type for an extraction.
// String content is stored as-is, everything else as JSON.
func extractArtifact(res *snapapi.ExtractResult) ([]byte, string) {
	var s string
	if err := json.Unmarshal(res.Content, &s); err != nil {
		return res.Content, "application/json"
	}
	switch snapapi.ExtractType(res.Type) {
	case snapapi.ExtractTypeHTML:
		return []byte(s), "text/html"
	case snapapi.ExtractTypeText:
		return []byte(s), "text/plain"
	default:
		return []byte(s), "text/markdown"
	}
}

func init() {
	f := extractCmd.Flags()
	f.StringVar(&extractFlags.typ, "type", string(snapapi.ExtractTypeMarkdown), "markdown, text, html, article, structured, links, images or metadata")
	f.StringVar(&extractFlags.selector, "selector", "", "restrict extraction to this CSS selector")
	f.StringVar(&extractFlags.waitFor, "wait-for", "", "wait for this CSS selector first")
	f.IntVar(&extractFlags.maxLength, "max-length", 0, "truncate content to this many characters")
	f.BoolVar(&extractFlags.blockAds, "block-ads", false, "block ads")
	f.BoolVar(&extractFlags.noImages, "no-images", false, "drop images from markdown output")
	f.BoolVar(&extractFlags.save, "save", false, "also store the content as an artifact")
	f.StringVar(&extractFlags.out, "out", "", "storage key when saving (default derived from the URL)")
	f.BoolVar(&extractFlags.jsonOutput, "json", false, "print the full JSON response")
	rootCmd.AddCommand(extractCmd)
}
