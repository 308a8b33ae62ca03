package cmd

import (
	"encoding/hex"

	"github.com/spf13/cobra"

	"cktap/output"
)

var newChainCodeHex string

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Seal the next SATSCARD/SATSCHIP slot",
	Run: func(cmd *cobra.Command, args []string) {
		cvc, err := requireCVC()
		if err != nil {
			fail(err)
		}
		var chainCode []byte
		if newChainCodeHex != "" {
			chainCode, err = hex.DecodeString(newChainCodeHex)
			if err != nil {
				fail(err)
			}
		}
		c, err := connectCard()
		if err != nil {
			fail(err)
		}
		defer c.Close()
		slot, err := c.NewSlot(cvc, chainCode)
		if err != nil {
			fail(err)
		}
		output.PrintSuccess("sealed new slot")
		output.PrintStatus(c)
		cmd.Printf("current slot: %d\n", slot)
	},
}

func init() {
	newCmd.Flags().StringVar(&newChainCodeHex, "chain-code", "", "extra entropy to mix into the new slot's chain code, hex encoded (optional)")
	rootCmd.AddCommand(newCmd)
}
