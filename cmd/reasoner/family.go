package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/silli-ai/reasoner/pkg/gating"
)

func newFamilyCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "family",
		Short: "Manage per-family cloud reasoning flags",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List known families and their flags",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := openFamilyStore(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			families, err := store.List(context.Background())
			if err != nil {
				return err
			}
			if len(families) == 0 {
				fmt.Println("No families stored.")
				return nil
			}

			fmt.Printf("%-30s %-10s %-20s\n", "FAMILY ID", "CLOUD", "UPDATED")
			fmt.Println(strings.Repeat("-", 62))
			for _, f := range families {
				cloud := "off"
				if f.CloudReasoning {
					cloud = "on"
				}
				fmt.Printf("%-30s %-10s %-20s\n", f.ID, cloud, f.UpdatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	enableCmd := &cobra.Command{
		Use:   "enable <family-id>",
		Short: "Allow cloud reasoning for a family",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setFlag(configPath, args[0], true)
		},
	}

	disableCmd := &cobra.Command{
		Use:   "disable <family-id>",
		Short: "Block cloud reasoning for a family",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setFlag(configPath, args[0], false)
		},
	}

	cmd.AddCommand(listCmd, enableCmd, disableCmd)
	return cmd
}

func setFlag(configPath, familyID string, enabled bool) error {
	store, cleanup, err := openFamilyStore(configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := store.SetCloudReasoning(context.Background(), familyID, enabled); err != nil {
		return err
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Printf("Cloud reasoning %s for %s.\n", state, familyID)
	return nil
}

func openFamilyStore(configPath string) (*gating.SQLiteFamilyStore, func(), error) {
	cfg, err := resolveConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	store, err := gating.NewFamilyStore(cfg.DBPath, cfg.Gating.DefaultOn)
	if err != nil {
		return nil, nil, fmt.Errorf("open family store: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}
