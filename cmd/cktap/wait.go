package cmd

import (
	"github.com/spf13/cobra"

	"cktap/output"
)

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Work through one step of the card's wrong-CVC backoff",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := connectCard()
		if err != nil {
			fail(err)
		}
		defer c.Close()
		authDelay, err := c.Wait()
		if err != nil {
			fail(err)
		}
		output.PrintSuccess("wait ok")
		cmd.Printf("auth delay remaining: %d\n", authDelay)
	},
}

func init() {
	rootCmd.AddCommand(waitCmd)
}
