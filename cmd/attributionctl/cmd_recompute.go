package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/pipeline"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/report"
)

var recomputeFlags struct {
	campaignID string
	all        bool
}

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Recompute attribution and ROI for one or all campaigns",
	RunE:  runRecompute,
}

func init() {
	f := recomputeCmd.Flags()
	f.StringVar(&recomputeFlags.campaignID, "campaign", "", "Campaign ID to recompute")
	f.BoolVar(&recomputeFlags.all, "all", false, "Recompute every registered campaign")
}

func validateRecompute(campaignID string, all bool) error {
	if (campaignID == "") == !all {
		return errors.New("exactly one of --campaign or --all is required")
	}
	return nil
}

func runRecompute(cmd *cobra.Command, _ []string) error {
	if err := validateRecompute(recomputeFlags.campaignID, recomputeFlags.all); err != nil {
		return err
	}
	format, err := report.ParseFormat(rootFlags.format)
	if err != nil {
		return err
	}

	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()

	ctx := cmd.Context()
	p, err := e.pipeline(ctx)
	if err != nil {
		return fmt.Errorf("init pipeline: %w", err)
	}

	var reports []*pipeline.RunReport
	if recomputeFlags.all {
		reports, err = p.RunAll(ctx)
		if err != nil {
			return fmt.Errorf("recompute all: %w", err)
		}
	} else {
		r, err := p.Run(ctx, recomputeFlags.campaignID)
		if r != nil {
			reports = append(reports, r)
		}
		if err != nil {
			if len(reports) > 0 {
				_ = report.RunReports(cmd.OutOrStdout(), reports, format)
			}
			return fmt.Errorf("recompute %s: %w", recomputeFlags.campaignID, err)
		}
	}

	if err := report.RunReports(cmd.OutOrStdout(), reports, format); err != nil {
		return err
	}

	failed := 0
	for _, r := range reports {
		if r.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d campaigns failed to recompute", failed, len(reports))
	}
	return nil
}
