package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the configured credentials against the platform",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		user, err := rt.client.VerifyCredentials(cmd.Context())
		if err != nil {
			return describeFailure(err)
		}
		fmt.Printf("authenticated as @%s (%s, id %s)\n", user.Username, user.Name, user.ID)
		return nil
	},
}
