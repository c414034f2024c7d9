package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pollbot/internal/retry"
	"pollbot/internal/twitter"

	"github.com/spf13/cobra"
)

var (
	postAttempts int
	postDelay    time.Duration
)

var postCmd = &cobra.Command{
	Use:   "post [index]",
	Short: "Post one poll from the polls file",
	Long: `Post posts a single poll immediately. The optional positional index
selects an entry from the polls file; without it the first entry is used.

The whole posting sequence is retried as a unit on failure.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index := -1
		if len(args) == 1 {
			i, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			index = i
		}

		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		lib, err := rt.library()
		if err != nil {
			return err
		}
		def, err := lib.Select(index)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		composer := rt.composer()
		tweetID, err := retry.Do(ctx, retry.Policy{Attempts: postAttempts, Delay: postDelay},
			rt.log, "post poll",
			func(ctx context.Context) (string, error) {
				return composer.CreatePoll(ctx, def)
			})
		if err != nil {
			// An interrupt mid-retry is a clean shutdown, not a failure.
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				rt.log.Info("interrupted, exiting")
				return nil
			}
			return describeFailure(err)
		}

		fmt.Println(tweetID)
		return nil
	},
}

func init() {
	postCmd.Flags().IntVar(&postAttempts, "attempts", retry.DefaultAttempts, "total attempts before giving up")
	postCmd.Flags().DurationVar(&postDelay, "delay", retry.DefaultDelay, "fixed delay between attempts")
}

// describeFailure keeps the original error but prefixes the common remote
// cases with something actionable for the terminal.
func describeFailure(err error) error {
	var rle *twitter.RateLimitError
	switch {
	case errors.Is(err, twitter.ErrInvalidCredentials):
		return fmt.Errorf("credentials rejected, check the TWITTER_* environment variables: %w", err)
	case errors.Is(err, twitter.ErrInsufficientPermissions):
		return fmt.Errorf("app lacks write permission, regenerate tokens with read+write access: %w", err)
	case errors.As(err, &rle):
		return fmt.Errorf("rate limited until %s: %w", rle.RateLimit.Reset.Format(time.RFC3339), err)
	default:
		return err
	}
}
