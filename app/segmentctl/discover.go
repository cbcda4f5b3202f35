package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"customerSegments/business/segmentation"
	"customerSegments/pkg/dbctx"

	"github.com/spf13/cobra"
)

var (
	dryRun          bool
	discoverTimeout time.Duration
)

func init() {
	discoverCmd.Flags().StringVar(&tenantID, "tenant", "", "tenant to run discovery for (required)")
	discoverCmd.Flags().BoolVar(&dryRun, "dry-run", false, "discover and report without persisting anything")
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", 2*time.Hour, "abort the run after this long")
	_ = discoverCmd.MarkFlagRequired("tenant")
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run a full segment discovery for one tenant",
	Long: `Run feature extraction and clustering on every axis for one tenant,
replace the stored segments and rescore every customer.

Examples:
  # Discover and persist
  segmentctl discover --tenant acme

  # Inspect cluster quality without touching stored segments
  segmentctl discover --tenant acme --dry-run`,
	RunE: runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	d, err := buildDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), discoverTimeout)
	defer cancel()

	out := cmd.OutOrStdout()
	if dryRun {
		histories, err := d.histories.TenantHistories(dbctx.New(ctx), tenantID)
		if err != nil {
			return err
		}
		res, err := d.discovery.Discover(ctx, tenantID, histories, time.Now())
		if err != nil {
			return err
		}
		return writeDiagnostics(out, res, jsonOutput)
	}

	rep, runErr := d.job.Run(ctx, tenantID)
	if rep != nil && rep.Result != nil {
		if err := writeDiagnostics(out, rep.Result, jsonOutput); err != nil {
			return err
		}
		if !jsonOutput {
			fmt.Fprintf(out, "axes replaced: %d  profiles written: %d\n", len(rep.AxesReplaced), rep.ProfilesWritten)
		}
	}
	return runErr
}

// writeDiagnostics prints one line per axis in run order.
func writeDiagnostics(w io.Writer, res *segmentation.DiscoveryResult, asJSON bool) error {
	diags := make([]segmentation.AxisDiagnostics, 0, len(res.AxisOrder))
	for _, axis := range res.AxisOrder {
		if ar, ok := res.Axes[axis]; ok {
			diags = append(diags, ar.Diagnostics)
		}
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"run_id":    res.RunID,
			"tenant_id": res.TenantID,
			"customers": len(res.CustomerIDs),
			"axes":      diags,
		})
	}

	fmt.Fprintf(w, "run %s  tenant %s  customers %d\n", res.RunID, res.TenantID, len(res.CustomerIDs))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "AXIS\tSTATUS\tK\tSILHOUETTE\tLARGEST\tSMALLEST\tLEAVES\tERROR")
	for _, dg := range diags {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.3f\t%.1f%%\t%.1f%%\t%d\t%s\n",
			dg.Axis, dg.Status, dg.K, dg.Silhouette, dg.LargestShare*100, dg.SmallestShare*100, dg.Leaves, dg.Error)
	}
	return tw.Flush()
}
