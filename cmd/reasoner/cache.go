package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/silli-ai/reasoner/pkg/models"
)

// The response cache is in-process, so cache commands talk to a running
// server over its admin endpoints rather than opening state directly.
func newCacheCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the response cache of a running server",
	}
	cmd.PersistentFlags().StringVar(&addr, "addr", "http://localhost:5001", "server address")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Get(addr + "/cache/stats")
			if err != nil {
				return fmt.Errorf("reach server: %w", err)
			}
			defer resp.Body.Close()

			var stats models.CacheStats
			if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
				return fmt.Errorf("decode stats: %w", err)
			}

			fmt.Printf("Entries:   %d / %d\n", stats.Size, stats.MaxSize)
			fmt.Printf("Hits:      %d\n", stats.Hits)
			fmt.Printf("Misses:    %d\n", stats.Misses)
			fmt.Printf("Evictions: %d\n", stats.Evictions)
			fmt.Printf("Hit rate:  %.1f%%\n", stats.HitRate*100)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear every cached response",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Post(addr+"/cache/clear", "application/json", nil)
			if err != nil {
				return fmt.Errorf("reach server: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("clear failed: %s", resp.Status)
			}
			fmt.Println("Cache cleared.")
			return nil
		},
	}

	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}
