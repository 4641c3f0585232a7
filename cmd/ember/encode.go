package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ember/internal/pckbd"
	"ember/internal/tape"
)

var encodeOutput string

func init() {
	encodeCmd.Flags().StringVarP(&encodeOutput, "output", "o", "", "write the scancodes to a tape file instead of printing them")
}

var encodeCmd = &cobra.Command{
	Use:   "encode TEXT...",
	Short: "Encode text as the scancodes a US keyboard sends to type it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		codes := pckbd.EncodeString(strings.Join(args, " "))
		if encodeOutput != "" {
			t := tape.FromScancodes(codes)
			t.Layout = session.cfg.Keyboard.Layout
			return tape.Save(encodeOutput, t)
		}
		parts := make([]string, len(codes))
		for i, code := range codes {
			parts[i] = fmt.Sprintf("%02x", code)
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(parts, " "))
		return nil
	},
}
