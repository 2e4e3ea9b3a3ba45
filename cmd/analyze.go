package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/snapapi-go/internal/store"
	"github.com/sells-group/snapapi-go/pkg/snapapi"
)

var analyzeFlags struct {
	prompt     string
	provider   string
	model      string
	llmKey     string
	schemaFile string
	screenshot bool
	jsonOutput bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>",
	Short: "Ask an LLM a question about a rendered page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		opts := snapapi.AnalyzeOptions{
			URL:      args[0],
			Prompt:   analyzeFlags.prompt,
			Provider: analyzeFlags.provider,
			Model:    analyzeFlags.model,
			APIKey:   analyzeFlags.llmKey,
		}
		if analyzeFlags.screenshot {
			opts.IncludeScreenshot = snapapi.Bool(true)
		}
		if analyzeFlags.schemaFile != "" {
			schema, err := loadSchema(analyzeFlags.schemaFile)
			if err != nil {
				return err
			}
			opts.JSONSchema = schema
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return runAnalyze(ctx, env, opts, analyzeFlags.jsonOutput)
	},
}

func loadSchema(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read schema %s", path)
	}
	var schema map[string]any
	if err := json.Unmarshal(b, &schema); err != nil {
		return nil, eris.Wrapf(err, "parse schema %s", path)
	}
	return schema, nil
}

func runAnalyze(ctx context.Context, env *cliEnv, opts snapapi.AnalyzeOptions, asJSON bool) error {
	res, err := env.Client.Analyze(ctx, opts)
	if err != nil {
		env.Recorder.RecordFailure(ctx, store.KindAnalyze, opts.URL, err)
		return eris.Wrap(err, "analyze")
	}

	// Analyses produce no media, only a ledger entry.
	job, err := env.Recorder.Start(ctx, store.KindAnalyze, opts.URL, 1)
	if err == nil {
		err = env.Recorder.Finish(ctx, job, 1, 0, nil)
	}
	if err != nil {
		zap.L().Warn("record analyze job", zap.Error(err))
	}

	if asJSON {
		return printJSON(env.Out, res)
	}
	_, err = fmt.Fprintln(env.Out, res.Text())
	return err
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.prompt, "prompt", "", "question to ask about the page (required)")
	f.StringVar(&analyzeFlags.provider, "provider", "", "openai or anthropic")
	f.StringVar(&analyzeFlags.model, "model", "", "provider model name")
	f.StringVar(&analyzeFlags.llmKey, "llm-key", "", "provider API key (bring your own key)")
	f.StringVar(&analyzeFlags.schemaFile, "schema", "", "JSON schema file for structured output")
	f.BoolVar(&analyzeFlags.screenshot, "include-screenshot", false, "send a screenshot to the model")
	f.BoolVar(&analyzeFlags.jsonOutput, "json", false, "print the full JSON response")
	_ = analyzeCmd.MarkFlagRequired("prompt")
	rootCmd.AddCommand(analyzeCmd)
}
