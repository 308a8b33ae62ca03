// Package cmd implements the cktap command-line front end: one
// subcommand per caller-surface operation, wired to the
// transport/ccid/apdu/cktap/card stack underneath.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"cktap/card"
	"cktap/output"
	"cktap/transport"
)

var (
	version = "1.0.0"

	simSocket string
	timeout   time.Duration
	cvcFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "cktap",
	Short: "Coinkite tap card (SATSCARD/TAPSIGNER/SATSCHIP) driver",
	Long: `cktap v` + version + `
Talks to a SATSCARD, TAPSIGNER, or SATSCHIP over USB CCID, or to
Coinkite's emulator over a Unix-domain socket when --sim is set.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&simSocket, "sim", os.Getenv(transport.EmulatorEnvVar),
		"path to the Coinkite emulator's Unix-domain socket (overrides "+transport.EmulatorEnvVar+")")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", transport.DefaultTimeout,
		"per-transfer timeout")
	rootCmd.PersistentFlags().StringVar(&cvcFlag, "cvc", os.Getenv("CKTAP_CVC"),
		"card verification code (overrides CKTAP_CVC)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// connectCard discovers and selects a card, over the emulator socket if
// --sim (or CKTAP_SIM) is set, or the first CCID USB reader otherwise.
func connectCard() (*card.Card, error) {
	if simSocket != "" {
		t, err := transport.DialEmulator(simSocket, timeout)
		if err != nil {
			return nil, fmt.Errorf("dial emulator: %w", err)
		}
		return card.OpenEmulated(t)
	}

	t, err := transport.OpenFirstCCID(timeout)
	if err != nil {
		return nil, fmt.Errorf("open USB reader: %w", err)
	}
	return card.OpenWithTransport(t)
}

// requireCVC returns the configured CVC or a usage error, for
// subcommands that cannot proceed without one.
func requireCVC() (string, error) {
	if cvcFlag == "" {
		return "", fmt.Errorf("no CVC given; set --cvc or the CKTAP_CVC environment variable")
	}
	return cvcFlag, nil
}

func fail(err error) {
	output.PrintError(err.Error())
	os.Exit(1)
}
