package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ludarr",
	Short: "Game release discovery and acquisition engine",
	Long: `Ludarr watches a catalog of monitored games, searches release
indexers and passive feeds for matching releases, scores candidates with
heuristics plus a trained match model, and hands accepted releases to a
download client.`,
	SilenceUsage: true,
}

func main() {
	// A .env file is optional; environment beats config file either way.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(trainCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
