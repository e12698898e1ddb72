package main

import (
	"fmt"
	"os"

	campuslink "github.com/campuslink/campuslink-go"
)

// getClient creates a client authenticated with the stored session.
func getClient() *campuslink.Client {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Auth.Token == "" || cfg.Auth.UserID == "" {
		fmt.Fprintln(os.Stderr, "Not signed in. Run 'campuslink login' first.")
		os.Exit(1)
	}

	var opts []campuslink.ClientOption
	if cfg.Default.BaseURL != "" {
		opts = append(opts, campuslink.WithBaseURL(cfg.Default.BaseURL))
	}

	client := campuslink.NewClient(cfg.Auth.Token, opts...)
	client.SetSession(cfg.Auth.Token, cfg.Auth.UserID)
	return client
}

// getAnonClient creates an unauthenticated client for login and registration.
func getAnonClient() *campuslink.Client {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var opts []campuslink.ClientOption
	if cfg.Default.BaseURL != "" {
		opts = append(opts, campuslink.WithBaseURL(cfg.Default.BaseURL))
	}
	return campuslink.NewClient("", opts...)
}
