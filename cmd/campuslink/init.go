package main

import (
	"fmt"

	campuslink "github.com/campuslink/campuslink-go"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init [base-url]",
	Short: "Create ~/.campuslink/config.toml",
	Long:  "Initialize the CampusLink CLI configuration, optionally pointing it at a non-default API base URL.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if len(args) == 1 {
			cfg.Default.BaseURL = args[0]
		} else if cfg.Default.BaseURL == "" {
			cfg.Default.BaseURL = campuslink.DefaultBaseURL
		}

		if err := saveConfig(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		path, _ := configPath()
		fmt.Printf("Configuration saved to %s\n", path)
		fmt.Println("Run 'campuslink login' or 'campuslink register' to sign in.")
		return nil
	},
}
