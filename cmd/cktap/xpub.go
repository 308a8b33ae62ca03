package cmd

import (
	"github.com/spf13/cobra"

	"cktap/output"
)

var xpubMaster bool

var xpubCmd = &cobra.Command{
	Use:   "xpub",
	Short: "Fetch a TAPSIGNER's extended public key",
	Run: func(cmd *cobra.Command, args []string) {
		cvc, err := requireCVC()
		if err != nil {
			fail(err)
		}
		c, err := connectCard()
		if err != nil {
			fail(err)
		}
		defer c.Close()
		xpub, err := c.Xpub([]byte(cvc), xpubMaster)
		if err != nil {
			fail(err)
		}
		output.PrintXpub(xpub.String())
	},
}

func init() {
	xpubCmd.Flags().BoolVar(&xpubMaster, "master", false, "fetch the master xpub instead of the current derivation")
	rootCmd.AddCommand(xpubCmd)
}
