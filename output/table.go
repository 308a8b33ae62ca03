// Package output renders cktap results as tables and status lines for the
// cmd/cktap CLI.
package output

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"cktap/card"
)

var (
	colorHeader  = text.Colors{text.FgCyan, text.Bold}
	colorLabel   = text.Colors{text.FgYellow}
	colorValue   = text.Colors{text.FgWhite}
	colorSuccess = text.Colors{text.FgGreen}
	colorError   = text.Colors{text.FgRed}
	colorWarn    = text.Colors{text.FgYellow}
)

// getTableStyle returns the default table style.
func getTableStyle() table.Style {
	style := table.StyleRounded
	style.Color.Header = colorHeader
	style.Color.Row = text.Colors{text.FgWhite}
	style.Color.RowAlternate = text.Colors{text.FgHiWhite}
	style.Options.SeparateRows = false
	return style
}

// newTable creates a new table writer with default settings.
func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(getTableStyle())
	t.Style().Options.SeparateRows = false
	return t
}

func hx(b []byte) string {
	if len(b) == 0 {
		return "-"
	}
	return hex.EncodeToString(b)
}

// PrintStatus prints a card's identity and per-product state.
func PrintStatus(c *card.Card) {
	fmt.Println()
	t := newTable()
	t.SetTitle(fmt.Sprintf("%s STATUS", c.Kind))
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: colorLabel, WidthMin: 18},
		{Number: 2, Colors: colorValue, WidthMin: 50},
	})

	t.AppendRow(table.Row{"Proto", c.Proto})
	t.AppendRow(table.Row{"Version", c.Ver})
	t.AppendRow(table.Row{"Birth height", c.Birth})
	t.AppendRow(table.Row{"Pubkey", hx(c.Pubkey)})
	t.AppendRow(table.Row{"Card nonce", hx(c.CardNonce)})
	t.AppendRow(table.Row{"Auth delay", c.AuthDelay})
	t.AppendRow(table.Row{"NFC enabled", c.NFCEnabled})
	t.AppendRow(table.Row{"Num backups", c.NumBackups})

	switch c.Kind {
	case card.KindSatsCard, card.KindSatsChip:
		t.AppendRow(table.Row{"Current slot", c.CurrentSlot})
		t.AppendRow(table.Row{"Total slots", c.TotalSlots})
		if c.Addr != "" {
			t.AppendRow(table.Row{"Address", c.Addr})
		}
	case card.KindTapSigner:
		if len(c.Path) > 0 {
			t.AppendRow(table.Row{"Derivation path", c.Path})
		}
	}
	t.Render()
}

// PrintSlotInfo prints one SATSCARD/SATSCHIP slot's public and (if
// revealed) private state.
func PrintSlotInfo(info *card.SlotInfo) {
	fmt.Println()
	t := newTable()
	t.SetTitle(fmt.Sprintf("SLOT %d", info.Slot))
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: colorLabel, WidthMin: 18},
		{Number: 2, Colors: colorValue, WidthMin: 50},
	})

	t.AppendRow(table.Row{"State", info.State})
	if info.Addr != "" {
		t.AppendRow(table.Row{"Address", info.Addr})
	}
	t.AppendRow(table.Row{"Pubkey", hx(info.Pubkey)})
	if info.Privkey != nil {
		t.AppendRow(table.Row{"Privkey", hx(info.Privkey)})
		t.AppendRow(table.Row{"Master pubkey", hx(info.MasterPubkey)})
		t.AppendRow(table.Row{"Chain code", hx(info.ChainCode)})
	}
	t.Render()
}

// PrintReadResult prints a verified read pubkey.
func PrintReadResult(pubkey []byte) {
	fmt.Println()
	PrintSuccess("Signature verified")
	fmt.Printf("Pubkey: %s\n", hx(pubkey))
}

// PrintDeriveResult prints a verified derive pubkey and chain code.
func PrintDeriveResult(pubkey, chainCode []byte) {
	fmt.Println()
	PrintSuccess("Signature verified")
	fmt.Printf("Pubkey:     %s\n", hx(pubkey))
	fmt.Printf("Chain code: %s\n", hx(chainCode))
}

// PrintSignResult prints a raw signature and the pubkey it claims to be
// from, unverified.
func PrintSignResult(sig, pubkey []byte) {
	fmt.Println()
	PrintWarning("Signature NOT verified by the core; verify against Pubkey yourself if needed")
	fmt.Printf("Sig:    %s\n", hx(sig))
	fmt.Printf("Pubkey: %s\n", hx(pubkey))
}

// PrintXpub prints an extended public key string.
func PrintXpub(xpub string) {
	fmt.Println()
	fmt.Printf("Xpub: %s\n", xpub)
}

// PrintBackup prints the length of a decrypted backup payload without
// dumping its raw bytes to the terminal.
func PrintBackup(data []byte) {
	fmt.Println()
	PrintSuccess(fmt.Sprintf("Decrypted backup payload: %d bytes", len(data)))
}

// PrintError prints an error message.
func PrintError(msg string) {
	fmt.Println(colorError.Sprintf("✗ Error: %s", msg))
}

// PrintSuccess prints a success message.
func PrintSuccess(msg string) {
	fmt.Println(colorSuccess.Sprintf("✓ %s", msg))
}

// PrintWarning prints a warning message.
func PrintWarning(msg string) {
	fmt.Println(colorWarn.Sprintf("⚠ %s", msg))
}
