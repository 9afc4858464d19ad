package main

import (
	"fmt"
	"text/tabwriter"

	d "github.com/M2labo/mm-lp-page/internal/domain"
	"github.com/M2labo/mm-lp-page/internal/pricing"
	"github.com/spf13/cobra"
)

func quoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Print the price breakdown of a configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			work, _ := cmd.Flags().GetString("work")
			color, _ := cmd.Flags().GetString("color")
			opts, _ := cmd.Flags().GetStringSlice("option")

			sel := d.Selection{Color: d.ColorKey(color), Work: d.WorkKey(work), Options: map[d.OptionKey]bool{}}
			for _, o := range opts {
				sel.Options[d.OptionKey(o)] = true
			}

			catalog := d.DefaultCatalog()
			if err := pricing.ValidateSelection(sel, catalog); err != nil {
				return err
			}
			lines, total, err := pricing.Breakdown(sel, catalog)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, l := range lines {
				mark := " "
				if l.Selected {
					mark = "x"
				}
				fmt.Fprintf(tw, "[%s]\t%s\t%s\t%d\n", mark, l.Kind, l.Key, l.Price)
			}
			fmt.Fprintf(tw, "\ttotal\t\t%d\n", total)
			return tw.Flush()
		},
	}

	cmd.Flags().StringP("work", "w", "mowing", "Work mode (mowing, spray, herbicide)")
	cmd.Flags().String("color", "leaf", "Body color")
	cmd.Flags().StringSliceP("option", "o", nil, "Selected option, repeatable (camera, tag, support)")

	return cmd
}
