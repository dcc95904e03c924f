// Command styletester runs the style analyzer and the reply generator on ad-hoc
// text, either with the local heuristics or against the configured Ark model.
//
//	styletester classify "This is AMAZING!!"
//	styletester reply --remote "Work was rough today"
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/voice-twin/backend/internal/analysis/style"
	"github.com/zhouzirui/voice-twin/backend/internal/config"
	"github.com/zhouzirui/voice-twin/backend/internal/model/voice"
	"github.com/zhouzirui/voice-twin/backend/internal/service/ai"
)

type options struct {
	remote  bool
	counts  bool
	timeout time.Duration
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "styletester",
		Short:         "Try the voice style analyzer and AI Twin replies from the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().BoolVar(&opts.remote, "remote", false, "use the configured Ark model instead of the heuristics")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 45*time.Second, "timeout for remote calls")

	classifyCmd := &cobra.Command{
		Use:   "classify [text...]",
		Short: "Print the style analysis of the text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, opts, strings.Join(args, " "))
		},
	}
	classifyCmd.Flags().BoolVar(&opts.counts, "counts", false, "also print the raw heuristic signals")

	replyCmd := &cobra.Command{
		Use:   "reply [text...]",
		Short: "Analyze the text and print the AI Twin reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReply(cmd, opts, strings.Join(args, " "))
		},
	}

	root.AddCommand(classifyCmd, replyCmd)
	return root
}

func runClassify(cmd *cobra.Command, opts *options, text string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	analyzer, _, err := buildServices(ctx, opts)
	if err != nil {
		return err
	}

	analysis, err := analyzer.Analyze(ctx, text)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	out := map[string]any{"voiceAnalysis": analysis}
	if opts.counts {
		out["counts"] = style.Count(text)
	}
	return printJSON(cmd, out)
}

func runReply(cmd *cobra.Command, opts *options, text string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	analyzer, responder, err := buildServices(ctx, opts)
	if err != nil {
		return err
	}

	analysis, err := analyzer.Analyze(ctx, text)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	reply, err := responder.Generate(ctx, text, analysis, nil)
	if err != nil {
		return fmt.Errorf("generate reply: %w", err)
	}

	return printJSON(cmd, struct {
		VoiceAnalysis voice.StyleAnalysis `json:"voiceAnalysis"`
		Reply         string              `json:"reply"`
	}{analysis, reply})
}

func buildServices(ctx context.Context, opts *options) (*ai.Analyzer, *ai.Responder, error) {
	var chatModel model.BaseChatModel
	aiOpts := ai.Options{Timeout: opts.timeout, Logger: zap.NewNop()}

	if opts.remote {
		cfg, err := config.Load()
		if err != nil {
			return nil, nil, fmt.Errorf("load configuration: %w", err)
		}
		if !cfg.AI.Enabled() {
			return nil, nil, fmt.Errorf("--remote needs ARK_MODEL and Ark credentials")
		}
		chatModel, err = cfg.AI.NewChatModel(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("init chat model: %w", err)
		}
		aiOpts.HistoryLimit = cfg.AI.HistoryLimit
	}

	return ai.NewAnalyzer(chatModel, aiOpts), ai.NewResponder(chatModel, aiOpts), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
