package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/amongo/amongo/internal/codes"
)

func codeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "code",
		Short: "Convert room codes to and from their wire numbers",
	}
	cmd.AddCommand(codeEncodeCmd(), codeDecodeCmd())
	return cmd
}

func codeEncodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode CODE",
		Short: "Print the number a room code is sent as",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := codes.CodeToNumber(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func codeDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode NUMBER",
		Short: "Print the room code for a wire number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.ParseInt(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid room number %q: %w", args[0], err)
			}
			code, err := codes.NumberToCode(int32(n))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), code)
			return nil
		},
	}
}
