package cmd

import (
	"github.com/spf13/cobra"

	"cktap/output"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Fetch and decrypt a TAPSIGNER's offline-recovery payload",
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
		data, err := c.Backup([]byte(cvc))
		if err != nil {
			fail(err)
		}
		output.PrintBackup(data)
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
}
