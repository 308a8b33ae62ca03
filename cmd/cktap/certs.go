package cmd

import (
	"github.com/spf13/cobra"

	"cktap/output"
)

var certsCmd = &cobra.Command{
	Use:   "certs",
	Short: "Verify the card's certificate chain recovers to the trust root",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := connectCard()
		if err != nil {
			fail(err)
		}
		defer c.Close()
		if err := c.VerifyAuthenticity(); err != nil {
			fail(err)
		}
		output.PrintSuccess("certificate chain verified against the trust root")
	},
}

func init() {
	rootCmd.AddCommand(certsCmd)
}
