package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sw33tLie/partscope/internal/utils"
	"github.com/sw33tLie/partscope/pkg/catalog"
	"github.com/sw33tLie/partscope/pkg/component"
)

// searchCmd talks to one catalog directly: no cache, no filtering, no
// scoring. Useful to check credentials and see what a vendor returns.
var searchCmd = &cobra.Command{
	Use:   "search <vendor>",
	Short: "Run a raw search against a single catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := requirementsFromFlags(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd, []string{args[0]})
		if err != nil {
			return err
		}
		defer a.Close()

		parts, err := a.catalogs[0].Search(context.Background(), req)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(parts)
		}
		printParts(parts)
		return nil
	},
}

var partCmd = &cobra.Command{
	Use:   "part <vendor> <part-number>",
	Short: "Look up a single part by manufacturer part number",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, []string{args[0]})
		if err != nil {
			return err
		}
		defer a.Close()

		lookup, ok := a.catalogs[0].(catalog.PartLookup)
		if !ok {
			return fmt.Errorf("%s does not support part lookup", a.catalogs[0].Name())
		}
		p, err := lookup.Lookup(context.Background(), args[1])
		if errors.Is(err, catalog.ErrPartNotFound) {
			return fmt.Errorf("%s has no part %q", a.catalogs[0].Name(), args[1])
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	},
}

func printParts(parts []component.Component) {
	if len(parts) == 0 {
		fmt.Println("No parts returned.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VENDOR\tPART\tMANUFACTURER\tCATEGORY\tRATING\tPRICE\tSTOCK\tPKG")
	for _, p := range parts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			p.Vendor, p.PartNumber, utils.Truncate(p.Manufacturer, 18), p.Category, rating(p.Spec),
			p.UnitPrice.StringFixed(2), p.Stock, utils.Truncate(p.Package, 14))
	}
	w.Flush()
}

func rating(spec component.Spec) string {
	var out string
	if v, ok := spec.(component.VoltageRated); ok && v.VoltageRating() > 0 {
		out = fmt.Sprintf("%gV", v.VoltageRating())
	}
	if c, ok := spec.(component.CurrentRated); ok && c.CurrentRating() > 0 {
		if out != "" {
			out += " "
		}
		out += fmt.Sprintf("%gA", c.CurrentRating())
	}
	if out == "" {
		return "-"
	}
	return out
}

func init() {
	rootCmd.AddCommand(searchCmd)
	addRequirementFlags(searchCmd)
	searchCmd.Flags().BoolP("json", "j", false, "Print parts as JSON")
	searchCmd.Flags().MarkHidden("vendors")

	rootCmd.AddCommand(partCmd)
}
