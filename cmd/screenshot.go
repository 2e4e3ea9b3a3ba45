package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/snapapi-go/internal/ledger"
	"github.com/sells-group/snapapi-go/internal/store"
	"github.com/sells-group/snapapi-go/pkg/snapapi"
)

// screenshotFlags collects the screenshot flags shared by screenshot and async submit.
type screenshotFlags struct {
	url          string
	htmlFile     string
	markdownFile string
	format       string
	quality      int
	width        int
	height       int
	device       string
	fullPage     bool
	selector     string
	delay        int
	waitUntil    string
	waitFor      string
	darkMode     bool
	blockAds     bool
	blockBanners bool
	css          string
	javascript   string
	hide         []string
	userAgent    string
	timezone     string
	locale       string
	metadata     bool
	cache        bool
	out          string
}

// completeDevices offers the known device presets for --device.
func completeDevices(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var ids []string
	for _, id := range snapapi.DevicePresets {
		if strings.HasPrefix(id, toComplete) {
			ids = append(ids, id)
		}
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

func (f *screenshotFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.url, "url", "", "page URL to capture")
	fl.StringVar(&f.htmlFile, "html-file", "", "render HTML from this file instead of a URL (- for stdin)")
	fl.StringVar(&f.markdownFile, "markdown-file", "", "render markdown from this file instead of a URL (- for stdin)")
	fl.StringVar(&f.format, "format", "png", "image format (png, jpeg, webp, avif, pdf)")
	fl.IntVar(&f.quality, "quality", 0, "jpeg/webp quality 1-100")
	fl.IntVar(&f.width, "width", snapapi.DefaultWidth, "viewport width")
	fl.IntVar(&f.height, "height", snapapi.DefaultHeight, "viewport height")
	fl.StringVar(&f.device, "device", "", "device preset id (see `snapapi devices`)")
	_ = cmd.RegisterFlagCompletionFunc("device", completeDevices)
	fl.BoolVar(&f.fullPage, "full-page", false, "capture the full scrollable page")
	fl.StringVar(&f.selector, "selector", "", "capture only the element matching this CSS selector")
	fl.IntVar(&f.delay, "delay", 0, "extra delay in ms before capturing")
	fl.StringVar(&f.waitUntil, "wait-until", "", "load, domcontentloaded or networkidle")
	fl.StringVar(&f.waitFor, "wait-for", "", "wait for this CSS selector before capturing")
	fl.BoolVar(&f.darkMode, "dark-mode", false, "emulate prefers-color-scheme: dark")
	fl.BoolVar(&f.blockAds, "block-ads", false, "block ads")
	fl.BoolVar(&f.blockBanners, "block-cookie-banners", false, "hide cookie banners")
	fl.StringVar(&f.css, "css", "", "CSS injected before capture")
	fl.StringVar(&f.javascript, "js", "", "JavaScript run before capture")
	fl.StringSliceVar(&f.hide, "hide", nil, "CSS selectors to hide")
	fl.StringVar(&f.userAgent, "user-agent", "", "browser user agent")
	fl.StringVar(&f.timezone, "timezone", "", "browser timezone, e.g. Europe/Paris")
	fl.StringVar(&f.locale, "locale", "", "browser locale, e.g. fr-FR")
	fl.BoolVar(&f.metadata, "metadata", false, "request page metadata and print it")
	fl.BoolVar(&f.cache, "cache", false, "allow a cached capture")
}

// options builds ScreenshotOptions from the flags. The page source is left
// to source().
func (f *screenshotFlags) options() snapapi.ScreenshotOptions {
	opts := snapapi.ScreenshotOptions{
		URL:                f.url,
		Format:             snapapi.Format(f.format),
		Quality:            f.quality,
		Width:              f.width,
		Height:             f.height,
		Device:             f.device,
		FullPage:           f.fullPage,
		Selector:           f.selector,
		Delay:              f.delay,
		WaitUntil:          snapapi.WaitUntil(f.waitUntil),
		WaitForSelector:    f.waitFor,
		DarkMode:           f.darkMode,
		BlockAds:           f.blockAds,
		BlockCookieBanners: f.blockBanners,
		CSS:                f.css,
		JavaScript:         f.javascript,
		HideSelectors:      f.hide,
		UserAgent:          f.userAgent,
		Timezone:           f.timezone,
		Locale:             f.locale,
		Cache:              f.cache,
	}
	if f.metadata {
		opts.IncludeMetadata = true
		opts.ResponseType = snapapi.ResponseJSON
	}
	return opts
}

// source fills the page source into opts and returns a label for the ledger.
func (f *screenshotFlags) source(opts *snapapi.ScreenshotOptions, args []string, stdin io.Reader) (string, error) {
	if opts.URL == "" && len(args) > 0 {
		opts.URL = args[0]
	}
	switch {
	case f.htmlFile != "":
		b, err := readInput(f.htmlFile, stdin)
		if err != nil {
			return "", err
		}
		opts.HTML = string(b)
		return "html:" + f.htmlFile, nil
	case f.markdownFile != "":
		b, err := readInput(f.markdownFile, stdin)
		if err != nil {
			return "", err
		}
		opts.Markdown = string(b)
		return "markdown:" + f.markdownFile, nil
	case opts.URL != "":
		return opts.URL, nil
	default:
		return "", eris.New("a URL argument, --url, --html-file or --markdown-file is required")
	}
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		b, err := io.ReadAll(stdin)
		return b, eris.Wrap(err, "read stdin")
	}
	b, err := os.ReadFile(path)
	return b, eris.Wrapf(err, "read %s", path)
}

var shotFlags screenshotFlags

var screenshotCmd = &cobra.Command{
	Use:   "screenshot [url]",
	Short: "Capture a screenshot of a URL, HTML or markdown",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		opts := shotFlags.options()
		target, err := shotFlags.source(&opts, args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		_, err = runScreenshot(ctx, env, store.KindScreenshot, target, shotFlags.out, opts)
		return err
	},
}

// runScreenshot captures opts, stores the media and prints where it went.
func runScreenshot(ctx context.Context, env *cliEnv, kind store.JobKind, target, key string, opts snapapi.ScreenshotOptions) (*store.Capture, error) {
	log := zap.L().With(zap.String("target", target))

	var (
		capture *snapapi.Capture[snapapi.ScreenshotResult]
		err     error
	)
	switch {
	case opts.HTML != "":
		capture, err = snapapi.ScreenshotFromHTML(ctx, env.Client, opts.HTML, opts)
	case opts.Markdown != "":
		capture, err = snapapi.ScreenshotFromMarkdown(ctx, env.Client, opts.Markdown, opts)
	case opts.Device != "":
		capture, err = snapapi.ScreenshotDevice(ctx, env.Client, opts.URL, opts.Device, opts)
	default:
		capture, err = env.Client.Screenshot(ctx, opts)
	}
	if err != nil {
		env.Recorder.RecordFailure(ctx, kind, target, err)
		return nil, eris.Wrap(err, "screenshot")
	}

	c, err := saveCapture(ctx, env, kind, target, key, capture, string(opts.Format))
	if err != nil {
		return nil, err
	}
	log.Info("screenshot saved", zap.String("location", c.Location), zap.Int64("bytes", c.Bytes))

	if capture.Result != nil && capture.Result.Metadata != nil {
		return c, printJSON(env.Out, capture.Result.Metadata)
	}
	return c, nil
}

// saveCapture decodes a capture in any response shape and records it.
func saveCapture[R any](ctx context.Context, env *cliEnv, kind store.JobKind, target, key string, capture *snapapi.Capture[R], format string) (*store.Capture, error) {
	data, err := capture.Bytes()
	if err != nil {
		env.Recorder.RecordFailure(ctx, kind, target, err)
		return nil, eris.Wrap(err, "decode capture")
	}

	contentType := capture.ContentType
	if contentType == "" || strings.HasPrefix(contentType, "application/json") {
		contentType = contentTypeFor(format)
	}

	c, err := env.Recorder.SaveOne(ctx, kind, ledger.Artifact{
		URL:         target,
		Key:         key,
		Data:        data,
		ContentType: contentType,
	})
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(env.Out, "%s\t%d bytes\n", c.Location, c.Bytes) //nolint:errcheck
	return c, nil
}

// contentTypeFor maps an output format to its media type.
func contentTypeFor(format string) string {
	switch strings.ToLower(format) {
	case "", "png":
		return "image/png"
	case "jpeg", "jpg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	case "avif":
		return "image/avif"
	case "pdf":
		return "application/pdf"
	case "gif":
		return "image/gif"
	case "mp4":
		return "video/mp4"
	case "webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}

// -- pdf --

var pdfFlags struct {
	pageSize        string
	landscape       bool
	margin          string
	printBackground bool
	scale           float64
	pageRanges      string
	out             string
}

var pdfCmd = &cobra.Command{
	Use:   "pdf <url>",
	Short: "Render a URL to PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		_, err = runPDF(ctx, env, args[0], pdfOptions(), pdfFlags.out)
		return err
	},
}

func pdfOptions() *snapapi.PDFOptions {
	opts := &snapapi.PDFOptions{
		PageSize:        pdfFlags.pageSize,
		Landscape:       snapapi.Bool(pdfFlags.landscape),
		PrintBackground: snapapi.Bool(pdfFlags.printBackground),
		PageRanges:      pdfFlags.pageRanges,
	}
	if pdfFlags.margin != "" {
		opts.MarginTop = pdfFlags.margin
		opts.MarginRight = pdfFlags.margin
		opts.MarginBottom = pdfFlags.margin
		opts.MarginLeft = pdfFlags.margin
	}
	if pdfFlags.scale > 0 {
		opts.Scale = snapapi.Float(pdfFlags.scale)
	}
	return opts
}

func runPDF(ctx context.Context, env *cliEnv, url string, opts *snapapi.PDFOptions, key string) (*store.Capture, error) {
	capture, err := snapapi.PDF(ctx, env.Client, url, opts)
	if err != nil {
		env.Recorder.RecordFailure(ctx, store.KindPDF, url, err)
		return nil, eris.Wrap(err, "pdf")
	}
	return saveCapture(ctx, env, store.KindPDF, url, key, capture, string(snapapi.FormatPDF))
}

func init() {
	shotFlags.register(screenshotCmd)
	screenshotCmd.Flags().StringVar(&shotFlags.out, "out", "", "storage key for the capture (default derived from the URL)")
	rootCmd.AddCommand(screenshotCmd)

	pdfCmd.Flags().StringVar(&pdfFlags.pageSize, "page-size", "a4", "a4, a3, a5, letter, legal or tabloid")
	pdfCmd.Flags().BoolVar(&pdfFlags.landscape, "landscape", false, "landscape orientation")
	pdfCmd.Flags().StringVar(&pdfFlags.margin, "margin", "", "margin applied to every side, e.g. 1cm")
	pdfCmd.Flags().BoolVar(&pdfFlags.printBackground, "print-background", true, "print background graphics")
	pdfCmd.Flags().Float64Var(&pdfFlags.scale, "scale", 0, "render scale 0.1-2")
	pdfCmd.Flags().StringVar(&pdfFlags.pageRanges, "page-ranges", "", "pages to include, e.g. 1-3")
	pdfCmd.Flags().StringVar(&pdfFlags.out, "out", "", "storage key for the PDF (default derived from the URL)")
	rootCmd.AddCommand(pdfCmd)
}
