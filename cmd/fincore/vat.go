package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hypervisual/fincore/internal/money"
)

func vatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vat",
		Short: "Compute a Swiss VAT breakdown",
		Long: `Compute VAT from a net or a gross amount for a given rate class
(normal, reduced, accommodation, exempt, export). All outputs are
rounded to 0.05 CHF.

Examples:
  fincore vat --net 13500 --class normal
  fincore vat --gross 1038 --class accommodation`,
		RunE: runVAT,
	}

	cmd.Flags().Float64("net", 0, "net amount")
	cmd.Flags().Float64("gross", 0, "gross amount")
	cmd.Flags().String("class", "normal", "rate class")
	return cmd
}

func runVAT(cmd *cobra.Command, _ []string) error {
	net, _ := cmd.Flags().GetFloat64("net")
	gross, _ := cmd.Flags().GetFloat64("gross")
	class, _ := cmd.Flags().GetString("class")

	if (net > 0) == (gross > 0) {
		return fmt.Errorf("pass exactly one of --net or --gross")
	}

	var breakdown money.Breakdown
	var err error
	if net > 0 {
		breakdown, err = money.VATFromNet(net, money.RateClass(class))
	} else {
		breakdown, err = money.VATFromGross(gross, money.RateClass(class))
	}
	if err != nil {
		return err
	}
	return printJSON(breakdown)
}
