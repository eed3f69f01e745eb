package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/attribution"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/report"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/repository"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/repository/postgres"
)

var roiFlags struct {
	campaignID string
	model      string
}

var roiCmd = &cobra.Command{
	Use:   "roi",
	Short: "Show the stored ROI of a campaign",
	RunE:  runROI,
}

func init() {
	f := roiCmd.Flags()
	f.StringVar(&roiFlags.campaignID, "campaign", "", "Campaign ID (required)")
	f.StringVar(&roiFlags.model, "model", "linear", "Attribution model")

	_ = roiCmd.MarkFlagRequired("campaign")
}

func runROI(cmd *cobra.Command, _ []string) error {
	model, err := attribution.ParseModel(roiFlags.model)
	if err != nil {
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
	pg, err := e.postgres(ctx)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}

	roi, err := postgres.NewResultStore(pg, e.log).GetCampaignROI(ctx, roiFlags.campaignID, model)
	if errors.Is(err, repository.ErrNotFound) {
		fmt.Fprintf(cmd.OutOrStdout(), "No %s ROI stored for campaign %s\n", model, roiFlags.campaignID)
		fmt.Fprintf(cmd.OutOrStdout(), "Run 'attributionctl recompute --campaign %s' first.\n", roiFlags.campaignID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load roi: %w", err)
	}
	return report.CampaignROI(cmd.OutOrStdout(), roi, format)
}
