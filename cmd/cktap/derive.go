package cmd

import (
	"github.com/spf13/cobra"

	"cktap/output"
)

var derivePath string

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Derive along a path on a TAPSIGNER, verified",
	Run: func(cmd *cobra.Command, args []string) {
		cvc, err := requireCVC()
		if err != nil {
			fail(err)
		}
		path, err := parsePath(derivePath)
		if err != nil {
			fail(err)
		}
		c, err := connectCard()
		if err != nil {
			fail(err)
		}
		defer c.Close()
		pubkey, chainCode, err := c.Derive([]byte(cvc), path)
		if err != nil {
			fail(err)
		}
		output.PrintDeriveResult(pubkey, chainCode)
	},
}

func init() {
	deriveCmd.Flags().StringVar(&derivePath, "path", "", "derivation path, e.g. 0/1")
	rootCmd.AddCommand(deriveCmd)
}
