// Command trendctl runs pipeline stages from the terminal without Redis,
// Postgres or a session.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kapu/trendformats-go/internal/app"
	"github.com/kapu/trendformats-go/internal/catalog"
	"github.com/kapu/trendformats-go/internal/config"
	"github.com/kapu/trendformats-go/internal/domain"
	"github.com/kapu/trendformats-go/internal/service/hashtag"
	"github.com/kapu/trendformats-go/internal/service/trending"
	"github.com/kapu/trendformats-go/internal/util"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "trendctl",
		Short:         "Inspect the trend format pipeline",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline progress to stderr")

	newLogger := func() *zap.Logger {
		if !verbose {
			return zap.NewNop()
		}
		logger, err := util.NewLogger("debug", "", "console")
		if err != nil {
			return zap.NewNop()
		}
		return logger
	}

	rootCmd.AddCommand(newResolveCmd(newLogger))
	rootCmd.AddCommand(newFetchCmd(newLogger))
	rootCmd.AddCommand(newExtractCmd(newLogger))
	return rootCmd
}

func newResolveCmd(newLogger func() *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <niche>",
		Short: "Show the hashtags a niche resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load()
			if err != nil {
				return err
			}
			res := hashtag.NewResolver(cat, newLogger()).ResolveProfile(args[0])
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"niche":    args[0],
				"key":      res.Key,
				"source":   res.Source,
				"hashtags": res.Hashtags,
			})
		},
	}
}

func newFetchCmd(newLogger func() *zap.Logger) *cobra.Command {
	var platform string
	var count int

	cmd := &cobra.Command{
		Use:   "fetch <niche>",
		Short: "Fetch and filter videos for a niche",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok := domain.ParsePlatform(platform)
			if !ok {
				return fmt.Errorf("invalid platform %q: must be 'tiktok' or 'instagram'", platform)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Minute)
			defer cancel()

			pipeline, err := loadPipeline(ctx, newLogger())
			if err != nil {
				return err
			}
			videos, debug := pipeline.Fetcher.Fetch(ctx, args[0], p, count)
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"videos": videos,
				"debug":  debug,
			})
		},
	}

	cmd.Flags().StringVarP(&platform, "platform", "p", "tiktok", "Platform (tiktok, instagram)")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Desired number of videos (0 uses FETCH_TARGET_COUNT)")
	return cmd
}

func newExtractCmd(newLogger func() *zap.Logger) *cobra.Command {
	var platform string

	cmd := &cobra.Command{
		Use:   "extract <niche>",
		Short: "Run the full pipeline and print the trending payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok := domain.ParsePlatform(platform)
			if !ok {
				return fmt.Errorf("invalid platform %q: must be 'tiktok' or 'instagram'", platform)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			pipeline, err := loadPipeline(ctx, newLogger())
			if err != nil {
				return err
			}
			payload, debug, err := pipeline.Service.Run(ctx, trendingRequest(args[0], p, cmd.ErrOrStderr()))
			if err != nil {
				_ = writeJSON(cmd.ErrOrStderr(), debug)
				return err
			}
			return writeJSON(cmd.OutOrStdout(), payload)
		},
	}

	cmd.Flags().StringVarP(&platform, "platform", "p", "tiktok", "Platform (tiktok, instagram)")
	return cmd
}

// trendingRequest prints each stage to progress as it happens.
func trendingRequest(niche string, platform domain.Platform, progress io.Writer) trending.Request {
	return trending.Request{
		Niche:    niche,
		Platform: platform,
		Progress: func(ev trending.Event) {
			fmt.Fprintf(progress, "[%s] %s\n", ev.Stage, ev.Message)
		},
	}
}

func loadPipeline(ctx context.Context, logger *zap.Logger) (*app.Pipeline, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.BuildPipeline(ctx, cfg, logger, nil)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
