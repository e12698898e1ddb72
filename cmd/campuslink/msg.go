package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	campuslink "github.com/campuslink/campuslink-go"
	"github.com/spf13/cobra"
)

var (
	msgWatchOpen      string
	msgWatchHighlight string
)

func init() {
	msgWatchCmd.Flags().StringVar(&msgWatchOpen, "open", "", "acquaintance id to open on start")
	msgWatchCmd.Flags().StringVar(&msgWatchHighlight, "message", "", "message id to jump to (requires --open)")

	msgCmd.AddCommand(msgConversationsCmd)
	msgCmd.AddCommand(msgHistoryCmd)
	msgCmd.AddCommand(msgSendCmd)
	msgCmd.AddCommand(msgWatchCmd)
	rootCmd.AddCommand(msgCmd)
}

var msgCmd = &cobra.Command{
	Use:   "msg",
	Short: "Direct messaging commands",
	Long:  "List conversations, read history, send messages, or open a live chat session.",
}

func printConversations(convs []campuslink.Conversation) {
	if len(convs) == 0 {
		fmt.Println("No conversations available")
		return
	}
	for _, conv := range convs {
		line := fmt.Sprintf("%-24s %s", conv.Acquaintance.ID, conv.Acquaintance.Username)
		if conv.LatestMessage != nil {
			line += fmt.Sprintf("  | %s  %s",
				conv.LatestMessage.CreatedAt.Local().Format("Jan 02 15:04"),
				conv.LatestMessage.Content)
		}
		fmt.Println(line)
	}
}

var msgConversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "List conversations, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()
		m := campuslink.NewMessenger(client.Messages, client.Users, client.UserID())

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := m.LoadDirectory(ctx); err != nil {
			return err
		}
		printConversations(m.Conversations())
		return nil
	},
}

var msgHistoryCmd = &cobra.Command{
	Use:   "history <acquaintance-id>",
	Short: "Show the message history with one user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()
		m := campuslink.NewMessenger(client.Messages, client.Users, client.UserID())

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := m.SelectConversation(ctx, args[0]); err != nil {
			return err
		}
		for _, msg := range m.History() {
			printMessage(client.UserID(), msg)
		}
		return nil
	},
}

var msgSendCmd = &cobra.Command{
	Use:   "send <acquaintance-id> <content>",
	Short: "Send a direct message",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		msg, err := client.Messages.Send(ctx, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return fmt.Errorf("send failed: %w", err)
		}
		fmt.Printf("Sent %s at %s\n", msg.ID, msg.CreatedAt.Local().Format(time.Kitchen))
		return nil
	},
}

func printMessage(selfID string, msg campuslink.Message) {
	arrow := "<-"
	if msg.SenderID == selfID {
		arrow = "->"
	}
	fmt.Printf("%s %s  %s\n", arrow, msg.CreatedAt.Local().Format("15:04:05"), msg.Content)
}

var msgWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open a live chat session",
	Long: "Connect the push channel and keep conversations synchronized in real time.\n" +
		"Type to send to the open conversation, '/open <id>' to switch, '/list' for the\n" +
		"sidebar, '/quit' to exit.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client := getClient()
		m := campuslink.NewMessenger(client.Messages, client.Users, client.UserID())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		push := campuslink.NewPushClient(client.BaseURL(), &campuslink.PushConfig{
			Token:         cfg.Auth.Token,
			UserID:        cfg.Auth.UserID,
			AutoReconnect: true,
		})

		offMsg := push.OnMessage(func(msg campuslink.Message) {
			if err := m.HandleMessage(ctx, msg); err != nil {
				fmt.Fprintf(os.Stderr, "sync error: %v\n", err)
			}
			if sel, ok := m.Selected(); ok && (msg.SenderID == sel.ID || msg.ReceiverID == sel.ID) {
				printMessage(client.UserID(), msg)
			}
		})
		defer offMsg()

		offNote := push.OnNotification(func(n campuslink.Notification) {
			if err := m.HandleNotification(ctx, n); err != nil {
				fmt.Fprintf(os.Stderr, "sync error: %v\n", err)
			}
		})
		defer offNote()

		if err := push.Connect(ctx); err != nil {
			return fmt.Errorf("push channel: %w", err)
		}
		defer push.Close()

		if err := m.LoadDirectory(ctx); err != nil {
			return err
		}

		if msgWatchOpen != "" {
			if err := m.OpenConversation(ctx, msgWatchOpen, msgWatchHighlight); err != nil {
				// Deep link could not be honored; fall back to the sidebar.
				fmt.Fprintf(os.Stderr, "cannot open %s: %v\n", msgWatchOpen, err)
				printConversations(m.Conversations())
			} else {
				for _, msg := range m.History() {
					printMessage(client.UserID(), msg)
				}
				if id, ok := m.TakeHighlight(); ok {
					fmt.Printf("** jumped to message %s **\n", id)
				}
			}
		} else {
			printConversations(m.Conversations())
		}

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			switch {
			case line == "/quit":
				return nil
			case line == "/list":
				printConversations(m.Conversations())
			case strings.HasPrefix(line, "/open "):
				id := strings.TrimSpace(strings.TrimPrefix(line, "/open "))
				if err := m.OpenConversation(ctx, id, ""); err != nil {
					fmt.Fprintf(os.Stderr, "cannot open %s: %v\n", id, err)
					continue
				}
				for _, msg := range m.History() {
					printMessage(client.UserID(), msg)
				}
			case line == "":
				continue
			default:
				if _, err := m.SendMessage(ctx, line); err != nil {
					fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
				}
			}
		}
		return scanner.Err()
	},
}
