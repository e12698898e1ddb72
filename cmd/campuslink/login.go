package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	campuslink "github.com/campuslink/campuslink-go"
	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string

	registerUsername string
	registerEmail    string
	registerPassword string
	registerBranch   string
	registerSkills   string
)

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("password")

	registerCmd.Flags().StringVar(&registerUsername, "username", "", "display username")
	registerCmd.Flags().StringVar(&registerEmail, "email", "", "account email")
	registerCmd.Flags().StringVar(&registerPassword, "password", "", "account password")
	registerCmd.Flags().StringVar(&registerBranch, "branch", "", "campus branch")
	registerCmd.Flags().StringVar(&registerSkills, "skills", "", "comma-separated skills")
	_ = registerCmd.MarkFlagRequired("username")
	_ = registerCmd.MarkFlagRequired("email")
	_ = registerCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

// storeSession persists a session and resolves the username for display.
func storeSession(ctx context.Context, client *campuslink.Client, sess *campuslink.Session) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Auth.Token = sess.Token
	cfg.Auth.UserID = sess.UserID

	client.SetSession(sess.Token, sess.UserID)
	if me, err := client.Auth.Me(ctx); err == nil {
		cfg.Auth.Username = me.Username
	}

	return saveConfig(cfg)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getAnonClient()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		sess, err := client.Auth.Login(ctx, &campuslink.LoginOptions{
			Email:    loginEmail,
			Password: loginPassword,
		})
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		if err := storeSession(ctx, client, sess); err != nil {
			return fmt.Errorf("failed to store session: %w", err)
		}

		fmt.Printf("Signed in as %s\n", sess.UserID)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and store the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getAnonClient()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		var skills []string
		for _, s := range strings.Split(registerSkills, ",") {
			if s = strings.TrimSpace(s); s != "" {
				skills = append(skills, s)
			}
		}

		sess, err := client.Auth.Register(ctx, &campuslink.RegisterOptions{
			Username: registerUsername,
			Email:    registerEmail,
			Password: registerPassword,
			Branch:   registerBranch,
			Skills:   skills,
		})
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}

		if err := storeSession(ctx, client, sess); err != nil {
			return fmt.Errorf("failed to store session: %w", err)
		}

		fmt.Printf("Registered and signed in as %s\n", registerUsername)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.Auth = ConfigAuth{}
		if err := saveConfig(cfg); err != nil {
			return err
		}
		fmt.Println("Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		me, err := client.Auth.Me(ctx)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		fmt.Printf("Username: %s\n", me.Username)
		fmt.Printf("Email:    %s\n", me.Email)
		if me.Branch != "" {
			fmt.Printf("Branch:   %s\n", me.Branch)
		}
		if len(me.Skills) > 0 {
			fmt.Printf("Skills:   %s\n", strings.Join(me.Skills, ", "))
		}
		return nil
	},
}
