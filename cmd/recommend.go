package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sw33tLie/partscope/internal/utils"
	"github.com/sw33tLie/partscope/pkg/component"
	"github.com/sw33tLie/partscope/pkg/predesign"
	"github.com/sw33tLie/partscope/pkg/recommend"
	"github.com/sw33tLie/partscope/pkg/selector"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank catalog parts that meet a set of electrical requirements",
	Example: `  partscope recommend -c mosfet -V 400 -I 10
  partscope recommend -c capacitor -V 48 --max-esr 0.05 --min-capacitance 100e-6 --package radial
  partscope recommend -c inductor --predesign buck.yaml --weights cost=0.5,availability=0.5,efficiency=0,thermal=0`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := requirementsFromFlags(cmd)
		if err != nil {
			return err
		}

		vendors, _ := cmd.Flags().GetStringSlice("vendors")
		a, err := newApp(cmd, vendors)
		if err != nil {
			return err
		}
		defer a.Close()

		weights := a.cfg.Weights
		if raw, _ := cmd.Flags().GetString("weights"); raw != "" {
			if weights, err = component.ParseWeights(raw); err != nil {
				return err
			}
		}
		top := a.cfg.Recommend.Top
		if cmd.Flags().Changed("top") {
			top, _ = cmd.Flags().GetInt("top")
		}

		res, err := a.service.Recommend(context.Background(), recommend.Query{
			Requirements: req,
			Weights:      weights,
			Vendors:      vendors,
			Top:          top,
		})
		if err != nil {
			if errors.Is(err, recommend.ErrNoCandidatesAvailable) {
				return fmt.Errorf("%w\nno catalog returned data and nothing was cached; check credentials with 'partscope search'", err)
			}
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		printVendorStatus(res)
		printScores(req, res.Scores)
		return nil
	},
}

func requirementsFromFlags(cmd *cobra.Command) (component.Requirements, error) {
	rawCategory, _ := cmd.Flags().GetString("category")
	category, err := component.ParseCategory(rawCategory)
	if err != nil {
		return component.Requirements{}, err
	}

	var req component.Requirements
	if path, _ := cmd.Flags().GetString("predesign"); path != "" {
		pd, err := predesign.Load(path)
		if err != nil {
			return req, err
		}
		if req, err = pd.Requirements(category); err != nil {
			return req, err
		}
		utils.Log.Debugf("requirements from %s: %+v", path, req)
	} else {
		req = component.NewRequirements(category, 0, 0)
	}

	floats := map[string]*float64{
		"voltage":         &req.Voltage,
		"current":         &req.Current,
		"vmargin":         &req.VoltageMargin,
		"imargin":         &req.CurrentMargin,
		"max-esr":         &req.Constraints.MaxESR,
		"min-capacitance": &req.Constraints.MinCapacitance,
		"min-inductance":  &req.Constraints.MinInductance,
		"max-rds":         &req.Constraints.MaxOnResistance,
		"max-qg":          &req.Constraints.MaxGateCharge,
		"max-vf":          &req.Constraints.MaxForwardVoltage,
		"max-trr":         &req.Constraints.MaxRecoveryNs,
		"max-dcr":         &req.Constraints.MaxDCResistance,
	}
	for name, dst := range floats {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetFloat64(name)
		}
	}
	if cmd.Flags().Changed("package") {
		req.Constraints.Packages, _ = cmd.Flags().GetStringSlice("package")
	}
	return req, req.Validate()
}

func printVendorStatus(res *recommend.Result) {
	names := make([]string, 0, len(res.Vendors))
	for v := range res.Vendors {
		names = append(names, v)
	}
	sort.Strings(names)

	for _, v := range names {
		st := res.Vendors[v]
		switch {
		case st.Cached:
			utils.Log.Infof("%s: %d candidates (cached)", v, st.Candidates)
		case st.Status == recommend.StatusSuccess:
			utils.Log.Infof("%s: %d candidates in %s", v, st.Candidates, st.Duration.Round(time.Millisecond))
		default:
			utils.Log.Warnf("%s: %s: %s", v, st.Status, st.Error)
		}
	}
}

func printScores(req component.Requirements, scores []selector.ComponentScore) {
	if len(scores) == 0 {
		v, i := req.Derate()
		fmt.Printf("No %s meets %.4gV / %.4gA after derating with the given constraints.\n", req.Category, v, i)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tVENDOR\tPART\tMANUFACTURER\tPKG\tPRICE\tSTOCK\tCOST\tAVAIL\tEFF\tTHERM\tSCORE\tDATASHEET")
	for _, s := range scores {
		c := s.Component
		source, _ := utils.SourceDomain(c.DatasheetURL)
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.3f\t%s\n",
			s.Rank, c.Vendor, c.PartNumber, utils.Truncate(c.Manufacturer, 18), utils.Truncate(c.Package, 14),
			c.UnitPrice.StringFixed(2), c.Stock,
			s.Subscores.Cost, s.Subscores.Availability, s.Subscores.Efficiency, s.Subscores.Thermal,
			s.Composite, source)
	}
	w.Flush()
}

func addRequirementFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("category", "c", "", "Component category: switch (mosfet, igbt), diode, capacitor, inductor")
	cmd.Flags().Float64P("voltage", "V", 0, "Required voltage (V), before derating")
	cmd.Flags().Float64P("current", "I", 0, "Required current (A), before derating")
	cmd.Flags().Float64("vmargin", component.DefaultVoltageMargin, "Voltage safety margin factor")
	cmd.Flags().Float64("imargin", component.DefaultCurrentMargin, "Current safety margin factor")
	cmd.Flags().Float64("max-esr", 0, "Capacitor: maximum ESR (ohm)")
	cmd.Flags().Float64("min-capacitance", 0, "Capacitor: minimum capacitance (F)")
	cmd.Flags().Float64("min-inductance", 0, "Inductor: minimum inductance (H)")
	cmd.Flags().Float64("max-rds", 0, "Switch: maximum on-resistance (ohm)")
	cmd.Flags().Float64("max-qg", 0, "Switch: maximum gate charge (nC)")
	cmd.Flags().Float64("max-vf", 0, "Diode: maximum forward voltage (V)")
	cmd.Flags().Float64("max-trr", 0, "Diode: maximum reverse recovery time (ns)")
	cmd.Flags().Float64("max-dcr", 0, "Inductor: maximum DC resistance (ohm)")
	cmd.Flags().StringSlice("package", nil, "Allowed packages, e.g. TO-247,TO-220")
	cmd.Flags().StringP("predesign", "p", "", "Predesign YAML file to derive requirements from (flags override it)")
	cmd.Flags().StringSlice("vendors", nil, "Vendors to query (default: every configured catalog)")
	cmd.MarkFlagRequired("category")
}

func init() {
	rootCmd.AddCommand(recommendCmd)
	addRequirementFlags(recommendCmd)
	recommendCmd.Flags().String("weights", "", "Scoring weights, e.g. cost=0.4,availability=0.2,efficiency=0.2,thermal=0.2 (default from config)")
	recommendCmd.Flags().IntP("top", "n", 5, "Number of results to show (0 for all)")
	recommendCmd.Flags().BoolP("json", "j", false, "Print the full result as JSON")
}
