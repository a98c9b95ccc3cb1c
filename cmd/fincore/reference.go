package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hypervisual/fincore/internal/money"
)

func referenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reference",
		Short: "Work with QR payment references",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate <reference>",
		Short: "Check a 27-digit payment reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return printJSON(map[string]interface{}{
				"reference": args[0],
				"valid":     money.ValidateReference(args[0]),
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "generate <26-digit-base>",
		Short: "Append the checksum digit to a reference base",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ref, err := money.GenerateReference(args[0])
			if err != nil {
				return err
			}
			fmt.Println(money.FormatReference(ref))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "iban <iban>",
		Short: "Validate an IBAN",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return printJSON(map[string]interface{}{
				"iban":  args[0],
				"valid": money.ValidateIBAN(args[0]),
			})
		},
	})

	return cmd
}
