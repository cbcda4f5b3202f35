package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"customerSegments/business/segmentation"
	"customerSegments/domain"

	"github.com/spf13/cobra"
)

var (
	customerID string
	scoreAxis  string
)

func init() {
	scoreCmd.Flags().StringVar(&tenantID, "tenant", "", "tenant of the customer (required)")
	scoreCmd.Flags().StringVar(&customerID, "customer", "", "customer to score (required)")
	_ = scoreCmd.MarkFlagRequired("tenant")
	_ = scoreCmd.MarkFlagRequired("customer")

	segmentsCmd.Flags().StringVar(&tenantID, "tenant", "", "tenant to list (required)")
	segmentsCmd.Flags().StringVar(&scoreAxis, "axis", "", "only this axis")
	_ = segmentsCmd.MarkFlagRequired("tenant")
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score one customer against the stored segments",
	Long: `Recompute one customer's memberships on every axis using the stored
segments and their scalers, and save the profile.

Examples:
  segmentctl score --tenant acme --customer c-1042`,
	RunE: runScore,
}

var segmentsCmd = &cobra.Command{
	Use:   "segments",
	Short: "List stored segments",
	RunE:  runSegments,
}

func runScore(cmd *cobra.Command, args []string) error {
	d, err := buildDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	profile, err := d.scoring.ScoreCustomer(cmd.Context(), tenantID, customerID, time.Now())
	if err != nil {
		return err
	}
	return writeProfile(cmd.OutOrStdout(), profile, jsonOutput)
}

func runSegments(cmd *cobra.Command, args []string) error {
	d, err := buildDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	segs, err := d.scoring.Segments(cmd.Context(), tenantID, scoreAxis)
	if err != nil {
		return err
	}
	if jsonOutput {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(segs)
	}
	for axis, list := range segmentation.GroupByAxis(segs) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", axis)
		for _, s := range list {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-40s %6d  %5.1f%%  depth %d\n", s.Name, s.PopulationCount, s.PopulationPct, s.Depth)
		}
	}
	return nil
}

func writeProfile(w io.Writer, p domain.CustomerMultiAxisProfile, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}

	axes := make([]string, 0, len(p.Axes))
	for axis := range p.Axes {
		axes = append(axes, axis)
	}
	sort.Strings(axes)

	fmt.Fprintf(w, "customer %s (%s)\n", p.CustomerID, p.TenantID)
	for _, axis := range axes {
		ap := p.Axes[axis]
		fmt.Fprintf(w, "  %-20s %-30s %-8s top: %s\n", axis, ap.DominantSegment, ap.Strength, strings.Join(ap.TopSegments, ", "))
	}
	if p.Interpretation != "" {
		fmt.Fprintf(w, "%s\n", p.Interpretation)
	}
	return nil
}
