package cmd

import (
	"github.com/spf13/cobra"

	"cktap/output"
)

var dumpSlot int

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Read a slot's public (and, if authenticated as owner, private) data",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := connectCard()
		if err != nil {
			fail(err)
		}
		defer c.Close()
		info, err := c.Dump(cvcFlag, dumpSlot)
		if err != nil {
			fail(err)
		}
		output.PrintSlotInfo(info)
	},
}

func init() {
	dumpCmd.Flags().IntVar(&dumpSlot, "slot", 0, "slot index to dump")
	rootCmd.AddCommand(dumpCmd)
}
