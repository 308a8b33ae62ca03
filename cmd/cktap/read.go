package cmd

import (
	"github.com/spf13/cobra"

	"cktap/output"
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read the current slot's (or derived) pubkey, verified",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := connectCard()
		if err != nil {
			fail(err)
		}
		defer c.Close()
		pubkey, err := c.Read([]byte(cvcFlag))
		if err != nil {
			fail(err)
		}
		output.PrintReadResult(pubkey)
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
}
