// Package main is the pollbot CLI.
//
// Usage:
//
//	pollbot post [index]   # post one poll from the polls file (default: first)
//	pollbot schedule       # run as a daemon, firing scheduled definitions
//	pollbot verify         # check credentials against the platform
//	pollbot history [n]    # show recently posted polls
//
// Configuration comes from the environment (optionally a .env file); see
// internal/config for the variables and their fallbacks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"pollbot/internal/bot"
	"pollbot/internal/config"
	"pollbot/internal/history"
	"pollbot/internal/media"
	"pollbot/internal/poll"
	"pollbot/internal/twitter"
	"pollbot/pkg/logx"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "pollbot",
	Short:         "Post Twitter polls, now or on a schedule",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(postCmd, scheduleCmd, verifyCmd, historyCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

// runtime bundles the pieces every subcommand needs.
type runtime struct {
	cfg      *config.Config
	log      logx.Logger
	client   *twitter.Client
	hist     *history.Store
	closeLog func() error
}

func newRuntime() (*runtime, error) {
	// A .env file is a convenience, not a requirement.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	log, closeLog := logx.New(logx.Config{
		Level: cfg.LogLevel,
		File:  logx.FileConfig{Enabled: cfg.LogFile != "", Path: cfg.LogFile},
	})

	rt := &runtime{cfg: cfg, log: log, closeLog: closeLog}
	rt.client = twitter.NewClient(cfg.Credentials, log.With(logx.String("comp", "twitter")))

	if cfg.HistoryDB != "" {
		rt.hist, err = history.Open(cfg.HistoryDB, log.With(logx.String("comp", "history")))
		if err != nil {
			_ = closeLog()
			return nil, err
		}
	}
	return rt, nil
}

func (rt *runtime) close() {
	_ = rt.hist.Close()
	_ = rt.closeLog()
}

func (rt *runtime) composer() *bot.Composer {
	up := media.NewUploader(rt.client, rt.log.With(logx.String("comp", "media")))
	return bot.New(rt.client, up, bot.Config{
		DefaultDurationHours: rt.cfg.DefaultDurationHours,
		History:              rt.hist,
	}, rt.log.With(logx.String("comp", "bot")))
}

func (rt *runtime) library() (*poll.Library, error) {
	return poll.Open(rt.cfg.PollsFile, rt.log.With(logx.String("comp", "polls")))
}

// parseIndex parses the optional positional poll index.
func parseIndex(arg string) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("poll index must be a non-negative integer, got %q", arg)
	}
	return i, nil
}
