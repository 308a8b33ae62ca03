package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cktap/output"
)

var newCVCFlag string

var changeCmd = &cobra.Command{
	Use:   "change",
	Short: "Rotate a TAPSIGNER's CVC",
	Run: func(cmd *cobra.Command, args []string) {
		cvc, err := requireCVC()
		if err != nil {
			fail(err)
		}
		if newCVCFlag == "" {
			fail(fmt.Errorf("--new-cvc is required"))
		}
		c, err := connectCard()
		if err != nil {
			fail(err)
		}
		defer c.Close()
		if err := c.ChangeCVC([]byte(cvc), []byte(newCVCFlag)); err != nil {
			fail(err)
		}
		output.PrintSuccess("CVC changed")
	},
}

func init() {
	changeCmd.Flags().StringVar(&newCVCFlag, "new-cvc", "", "the new CVC to set (required)")
	rootCmd.AddCommand(changeCmd)
}
