package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"pollbot/internal/config"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [n]",
	Short: "Show recently posted polls",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n := 10
		if len(args) == 1 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v <= 0 {
				return fmt.Errorf("history count must be a positive integer, got %q", args[0])
			}
			n = v
		}

		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		if rt.hist == nil {
			return errors.New("history is not configured, set " + config.EnvHistoryDB)
		}

		records, err := rt.hist.Recent(cmd.Context(), n)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("no polls posted yet")
			return nil
		}
		for _, r := range records {
			thread := ""
			if r.ReplyThread {
				thread = " [thread]"
			}
			fmt.Printf("%s  %s  %q  %d options, %dm%s\n",
				r.PostedAt.Local().Format(time.RFC3339), r.TweetID, r.Title,
				r.OptionCount, r.DurationMinutes, thread)
		}
		return nil
	},
}
