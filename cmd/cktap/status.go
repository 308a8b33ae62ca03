package cmd

import (
	"github.com/spf13/cobra"

	"cktap/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show card identity and state",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := connectCard()
		if err != nil {
			fail(err)
		}
		defer c.Close()
		output.PrintStatus(c)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
