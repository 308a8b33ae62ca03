package cmd

import (
	"github.com/spf13/cobra"

	"cktap/output"
)

var unsealSlot int

var unsealCmd = &cobra.Command{
	Use:   "unseal",
	Short: "Reveal a SATSCARD/SATSCHIP slot's master private key",
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
		info, err := c.Unseal(cvc, unsealSlot)
		if err != nil {
			fail(err)
		}
		output.PrintSlotInfo(info)
	},
}

func init() {
	unsealCmd.Flags().IntVar(&unsealSlot, "slot", 0, "slot index to unseal")
	rootCmd.AddCommand(unsealCmd)
}
