package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ember/internal/pckbd"
)

var decodeCmd = &cobra.Command{
	Use:   "decode HEX...",
	Short: "Decode scancode set 1 bytes into key events",
	Long: `Decode scancode set 1 bytes the way the keyboard task does. Arguments are
hex bytes, alone or run together, with an optional 0x prefix:

  ember decode 1e 9e
  ember decode 0x2a1e9eaa`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		codes, err := parseHexArgs(args)
		if err != nil {
			return err
		}
		layout, err := session.cfg.Layout()
		if err != nil {
			return err
		}
		control, err := session.cfg.Control()
		if err != nil {
			return err
		}
		kb := pckbd.New(layout, control)
		out := cmd.OutOrStdout()
		for _, code := range codes {
			ev, ok, err := kb.AddByte(code)
			switch {
			case err != nil:
				fmt.Fprintf(out, "%02x  error: %v\n", code, err)
				continue
			case !ok:
				fmt.Fprintf(out, "%02x  ...\n", code)
				continue
			}
			line := fmt.Sprintf("%02x  %-14s %-4s", code, ev.Code, ev.State)
			if key, ok := kb.ProcessKeyEvent(ev); ok {
				line += "  " + key.String()
			}
			fmt.Fprintln(out, strings.TrimRight(line, " "))
		}
		return nil
	},
}

func parseHexArgs(args []string) ([]byte, error) {
	var out []byte
	for _, arg := range args {
		s := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(arg)), "0x")
		if len(s)%2 == 1 {
			s = "0" + s
		}
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid scancode %q: %w", arg, err)
		}
		out = append(out, b...)
	}
	return out, nil
}
