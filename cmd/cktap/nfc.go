package cmd

import (
	"github.com/spf13/cobra"
)

var nfcCmd = &cobra.Command{
	Use:   "nfc",
	Short: "Print the URL a phone's NFC tap against this card resolves to",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := connectCard()
		if err != nil {
			fail(err)
		}
		defer c.Close()
		url, err := c.NFC()
		if err != nil {
			fail(err)
		}
		cmd.Println(url)
	},
}

func init() {
	rootCmd.AddCommand(nfcCmd)
}
