package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/snapapi-go/internal/store"
	"github.com/sells-group/snapapi-go/pkg/snapapi"
)

var videoFlags struct {
	format      string
	width       int
	height      int
	duration    int
	fps         int
	device      string
	darkMode    bool
	blockAds    bool
	scroll      bool
	scrollDelay int
	scrollBack  bool
	out         string
}

var videoCmd = &cobra.Command{
	Use:   "video <url>",
	Short: "Record a video of a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		_, err = runVideo(ctx, env, videoOptions(args[0]), videoFlags.out)
		return err
	},
}

func videoOptions(url string) snapapi.VideoOptions {
	opts := snapapi.VideoOptions{
		URL:        url,
		Format:     snapapi.VideoFormat(videoFlags.format),
		Width:      videoFlags.width,
		Height:     videoFlags.height,
		Duration:   videoFlags.duration,
		FPS:        videoFlags.fps,
		Device:     videoFlags.device,
		DarkMode:   videoFlags.darkMode,
		BlockAds:   videoFlags.blockAds,
		Scroll:     videoFlags.scroll,
		ScrollBack: videoFlags.scrollBack,
	}
	if videoFlags.scroll && videoFlags.scrollDelay > 0 {
		opts.ScrollDelay = snapapi.Int(videoFlags.scrollDelay)
	}
	return opts
}

func runVideo(ctx context.Context, env *cliEnv, opts snapapi.VideoOptions, key string) (*store.Capture, error) {
	capture, err := env.Client.Video(ctx, opts)
	if err != nil {
		env.Recorder.RecordFailure(ctx, store.KindVideo, opts.URL, err)
		return nil, eris.Wrap(err, "video")
	}
	format := string(opts.Format)
	if format == "" {
		format = string(snapapi.VideoMP4)
	}
	return saveCapture(ctx, env, store.KindVideo, opts.URL, key, capture, format)
}

func init() {
	f := videoCmd.Flags()
	f.StringVar(&videoFlags.format, "format", "mp4", "mp4, webm or gif")
	f.IntVar(&videoFlags.width, "width", snapapi.DefaultVideoWidth, "viewport width")
	f.IntVar(&videoFlags.height, "height", snapapi.DefaultVideoHeight, "viewport height")
	f.IntVar(&videoFlags.duration, "duration", snapapi.DefaultVideoDuration, "recording length in ms")
	f.IntVar(&videoFlags.fps, "fps", snapapi.DefaultVideoFPS, "frames per second")
	f.StringVar(&videoFlags.device, "device", "", "device preset id")
	_ = videoCmd.RegisterFlagCompletionFunc("device", completeDevices)
	f.BoolVar(&videoFlags.darkMode, "dark-mode", false, "emulate prefers-color-scheme: dark")
	f.BoolVar(&videoFlags.blockAds, "block-ads", false, "block ads")
	f.BoolVar(&videoFlags.scroll, "scroll", false, "scroll the page while recording")
	f.IntVar(&videoFlags.scrollDelay, "scroll-delay", 0, "delay in ms before scrolling starts")
	f.BoolVar(&videoFlags.scrollBack, "scroll-back", false, "scroll back to the top at the end")
	f.StringVar(&videoFlags.out, "out", "", "storage key for the video (default derived from the URL)")
	rootCmd.AddCommand(videoCmd)
}
