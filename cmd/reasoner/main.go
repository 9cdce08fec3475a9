package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/silli-ai/reasoner/pkg/config"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "reasoner",
		Short:   "Silli reasoner — behavioral telemetry to caregiver guidance",
		Version: version,
	}

	root.AddCommand(
		newServeCmd(),
		newModelsCmd(),
		newCacheCmd(),
		newFamilyCmd(),
		newAuditCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveConfig returns defaults, overlaid with a YAML file when one is
// given.
func resolveConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
