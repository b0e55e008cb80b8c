package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tarkov-debrief/debrief/internal/catalog"
)

var mapsCmd = &cobra.Command{
	Use:   "maps",
	Short: "List the bundled maps",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printEntries(catalog.Maps())
	},
}

var markersCmd = &cobra.Command{
	Use:   "markers",
	Short: "List the bundled marker icons",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printEntries(catalog.Markers())
	},
}

func init() {
	rootCmd.AddCommand(mapsCmd)
	rootCmd.AddCommand(markersCmd)
}

func printEntries(entries []catalog.Entry) {
	base := cfg.AssetBaseURL
	for _, e := range entries {
		fmt.Printf("  %-12s %-14s %s\n", e.ID, e.Name, e.URL(base))
	}
}
