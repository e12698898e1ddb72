package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	campuslink "github.com/campuslink/campuslink-go"
	"github.com/spf13/cobra"
)

var feedListUser string

func init() {
	feedListCmd.Flags().StringVar(&feedListUser, "user", "", "list a single user's posts ('me' for your own)")

	feedCmd.AddCommand(feedListCmd)
	feedCmd.AddCommand(feedPostCmd)
	feedCmd.AddCommand(feedLikeCmd)
	feedCmd.AddCommand(feedDislikeCmd)
	feedCmd.AddCommand(feedCommentCmd)
	feedCmd.AddCommand(feedDeleteCmd)
	rootCmd.AddCommand(feedCmd)
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Post feed commands",
}

func printPost(p campuslink.Post) {
	fmt.Printf("%s  %s (%s)\n", p.ID, p.Author.Username, p.CreatedAt.Local().Format("Jan 02 15:04"))
	fmt.Printf("  %s\n", p.Content)
	fmt.Printf("  likes: %d  dislikes: %d  comments: %d\n", len(p.Likes), len(p.Dislikes), len(p.Comments))
}

var feedListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the post feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		var (
			posts []campuslink.Post
			err   error
		)
		if feedListUser != "" {
			posts, err = client.Posts.ByUser(ctx, feedListUser)
		} else {
			posts, err = client.Posts.Feed(ctx)
		}
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		if len(posts) == 0 {
			fmt.Println("No posts yet.")
			return nil
		}
		for _, p := range posts {
			printPost(p)
		}
		return nil
	},
}

var feedPostCmd = &cobra.Command{
	Use:   "post <content>",
	Short: "Create a post",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		post, err := client.Posts.Create(ctx, &campuslink.CreatePostOptions{
			Content: strings.Join(args, " "),
		})
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		fmt.Printf("Posted %s\n", post.ID)
		return nil
	},
}

var feedLikeCmd = &cobra.Command{
	Use:   "like <post-id>",
	Short: "Like a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		post, err := client.Posts.Like(ctx, args[0])
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		fmt.Printf("Likes: %d\n", len(post.Likes))
		return nil
	},
}

var feedDislikeCmd = &cobra.Command{
	Use:   "dislike <post-id>",
	Short: "Dislike a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		post, err := client.Posts.Dislike(ctx, args[0])
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		fmt.Printf("Dislikes: %d\n", len(post.Dislikes))
		return nil
	},
}

var feedCommentCmd = &cobra.Command{
	Use:   "comment <post-id> <text>",
	Short: "Comment on a post",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		post, err := client.Posts.Comment(ctx, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		fmt.Printf("Comments: %d\n", len(post.Comments))
		return nil
	},
}

var feedDeleteCmd = &cobra.Command{
	Use:   "delete <post-id>",
	Short: "Delete one of your posts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := client.Posts.Delete(ctx, args[0]); err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		fmt.Println("Deleted.")
		return nil
	},
}
