package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"cktap/card"
	"cktap/output"
)

var (
	signDigestHex string
	signPath      string
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign a 32-byte digest",
	Run: func(cmd *cobra.Command, args []string) {
		cvc, err := requireCVC()
		if err != nil {
			fail(err)
		}
		digest, err := hex.DecodeString(signDigestHex)
		if err != nil {
			fail(err)
		}
		if len(digest) != card.DigestSize {
			fail(fmt.Errorf("--digest must be %d bytes hex-encoded, got %d", card.DigestSize, len(digest)))
		}
		path, err := parsePath(signPath)
		if err != nil {
			fail(err)
		}
		c, err := connectCard()
		if err != nil {
			fail(err)
		}
		defer c.Close()
		sig, pubkey, err := c.Sign([]byte(cvc), digest, path)
		if err != nil {
			fail(err)
		}
		output.PrintSignResult(sig, pubkey)
	},
}

func init() {
	signCmd.Flags().StringVar(&signDigestHex, "digest", "", "32-byte digest to sign, hex encoded (required)")
	signCmd.Flags().StringVar(&signPath, "path", "", "derivation sub-path, e.g. 0/1 (TAPSIGNER only)")
	rootCmd.AddCommand(signCmd)
}
