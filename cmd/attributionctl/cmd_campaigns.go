package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/campaignfile"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/repository/postgres"
)

var campaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "Manage the campaign registry",
}

var campaignsImportFlags struct {
	file   string
	dryRun bool
}

var campaignsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Create or replace campaigns from a YAML file",
	RunE:  runCampaignsImport,
}

var campaignsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered campaign IDs",
	RunE:  runCampaignsList,
}

func init() {
	f := campaignsImportCmd.Flags()
	f.StringVarP(&campaignsImportFlags.file, "file", "f", "", "Campaign YAML file (required)")
	f.BoolVar(&campaignsImportFlags.dryRun, "dry-run", false, "Validate the file without writing")
	_ = campaignsImportCmd.MarkFlagRequired("file")

	campaignsCmd.AddCommand(campaignsImportCmd)
	campaignsCmd.AddCommand(campaignsListCmd)
}

func runCampaignsImport(cmd *cobra.Command, _ []string) error {
	file, err := os.Open(campaignsImportFlags.file)
	if err != nil {
		return fmt.Errorf("open campaign file: %w", err)
	}
	defer file.Close()

	campaigns, err := campaignfile.Load(file)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if campaignsImportFlags.dryRun {
		fmt.Fprintf(out, "%d campaigns are valid\n", len(campaigns))
		return nil
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
	registry := postgres.NewCampaignRegistry(pg, e.log)

	for i := range campaigns {
		c := &campaigns[i]
		if err := registry.UpsertCampaign(ctx, c); err != nil {
			return fmt.Errorf("upsert campaign %s: %w", c.ID, err)
		}
		fmt.Fprintf(out, "Imported %s (%d promo codes)\n", c.ID, len(c.PromoCodes))
	}
	return nil
}

func runCampaignsList(cmd *cobra.Command, _ []string) error {
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

	ids, err := postgres.NewCampaignRegistry(pg, e.log).ListCampaignIDs(ctx)
	if err != nil {
		return fmt.Errorf("list campaigns: %w", err)
	}
	for _, id := range ids {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}
