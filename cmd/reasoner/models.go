package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/silli-ai/reasoner/pkg/ollama"
	"github.com/silli-ai/reasoner/pkg/resolver"
)

func newModelsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List available models and show which one would serve",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(configPath)
			if err != nil {
				return err
			}

			client := ollama.New(cfg.Ollama.Host, cfg.Ollama.Timeout)
			available, err := client.ListModels(context.Background())
			if err != nil {
				return fmt.Errorf("list models: %w", err)
			}

			fmt.Printf("Host: %s\n", cfg.Ollama.Host)
			fmt.Printf("Hint: %s (fallback %v)\n\n", cfg.Model.Hint, cfg.Model.AllowFallback)
			for _, m := range available {
				fmt.Printf("  %s\n", m)
			}

			r := resolver.New(cfg.Model.FallbackOrder)
			model, err := r.Resolve(cfg.Model.Hint, available, cfg.Model.AllowFallback)
			if err != nil {
				fmt.Printf("\nResolution: %v\n", err)
				return nil
			}
			fmt.Printf("\nResolution: %s\n", model)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	return cmd
}
