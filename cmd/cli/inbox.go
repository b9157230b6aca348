package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/hirewire/backend/internal/auth"
	"github.com/hirewire/backend/internal/messaging"
	"github.com/hirewire/backend/internal/models"
	"github.com/hirewire/backend/internal/search"
	"github.com/hirewire/backend/internal/util"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login <email> <password>",
	Short: "Log in and print a token to export as HIREWIRE_TOKEN",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(false)
		if err != nil {
			return err
		}
		var resp auth.AuthResponse
		r, err := client.R().
			SetBody(auth.LoginRequest{Email: args[0], Password: args[1]}).
			SetResult(&resp).
			Post("/auth/login")
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		if r.IsError() {
			return parseError(r)
		}
		if output == "json" {
			return printJSON(resp)
		}
		printSuccess("Logged in as @%s (token expires %s)", resp.User.Username, resp.ExpiresAt.Local().Format(time.RFC1123))
		fmt.Printf("export HIREWIRE_TOKEN=%s\n", resp.Token)
		return nil
	},
}

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "List conversations, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Conversations []messaging.Conversation `json:"conversations"`
		}
		if err := call(http.MethodGet, "/messages/conversations", nil, &resp); err != nil {
			return err
		}
		if output == "json" {
			return printJSON(resp)
		}
		if len(resp.Conversations) == 0 {
			faint.Println("No conversations yet.")
			return nil
		}
		for _, conv := range resp.Conversations {
			name := conv.PartnerID
			if conv.Partner != nil {
				name = "@" + conv.Partner.Username
			}
			line := fmt.Sprintf("%-24s %s", name, util.Truncate(conv.LastMessage.Content, 60))
			if conv.UnreadCount > 0 {
				bold.Printf("%s  ", line)
				cyan.Printf("(%d unread)\n", conv.UnreadCount)
			} else {
				fmt.Println(line)
			}
			faint.Printf("  %s  %s\n", conv.PartnerID, conv.LastMessage.CreatedAt.Local().Format(time.Stamp))
		}
		return nil
	},
}

var threadCmd = &cobra.Command{
	Use:   "thread <user>",
	Short: "Show the conversation with a user (id or username), oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		partner, err := resolveUser(args[0])
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		path := fmt.Sprintf("/messages/%s?limit=%s&offset=%s", partner.ID, strconv.Itoa(limit), strconv.Itoa(offset))
		var resp struct {
			Messages []models.Message `json:"messages"`
		}
		if err := call(http.MethodGet, path, nil, &resp); err != nil {
			return err
		}
		if output == "json" {
			return printJSON(resp)
		}
		if len(resp.Messages) == 0 {
			faint.Printf("No messages with @%s.\n", partner.Username)
			return nil
		}
		for _, msg := range resp.Messages {
			who := "you"
			if msg.SenderID == partner.ID {
				who = "@" + partner.Username
			}
			faint.Printf("[%s] ", msg.CreatedAt.Local().Format(time.Stamp))
			bold.Printf("%s: ", who)
			fmt.Println(msg.Content)
			if msg.AttachmentURL != nil {
				cyan.Printf("    attachment: %s\n", *msg.AttachmentURL)
			}
		}
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <user> <message...>",
	Short: "Send a direct message",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		recipient, err := resolveUser(args[0])
		if err != nil {
			return err
		}
		var resp struct {
			Message models.Message `json:"message"`
		}
		body := map[string]string{
			"recipient_id": recipient.ID,
			"content":      strings.Join(args[1:], " "),
		}
		if err := call(http.MethodPost, "/messages", body, &resp); err != nil {
			return err
		}
		if output == "json" {
			return printJSON(resp)
		}
		printSuccess("Sent to @%s (%s)", recipient.Username, resp.Message.ID)
		return nil
	},
}

var readCmd = &cobra.Command{
	Use:   "read <user>",
	Short: "Mark every message from a user as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		partner, err := resolveUser(args[0])
		if err != nil {
			return err
		}
		var resp struct {
			MarkedRead int64 `json:"marked_read"`
		}
		if err := call(http.MethodPut, "/messages/"+partner.ID+"/read", nil, &resp); err != nil {
			return err
		}
		if output == "json" {
			return printJSON(resp)
		}
		printSuccess("Marked %d message(s) from @%s as read", resp.MarkedRead, partner.Username)
		return nil
	},
}

var unreadCmd = &cobra.Command{
	Use:   "unread",
	Short: "Show unread message and notification counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		var messages, notifications struct {
			UnreadCount int64 `json:"unread_count"`
		}
		if err := call(http.MethodGet, "/messages/unread-count", nil, &messages); err != nil {
			return err
		}
		if err := call(http.MethodGet, "/notifications/unread-count", nil, &notifications); err != nil {
			return err
		}
		if output == "json" {
			return printJSON(map[string]int64{
				"messages":      messages.UnreadCount,
				"notifications": notifications.UnreadCount,
			})
		}
		fmt.Printf("Messages:      %s\n", countColor(messages.UnreadCount))
		fmt.Printf("Notifications: %s\n", countColor(notifications.UnreadCount))
		return nil
	},
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "List notifications, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		unreadOnly, _ := cmd.Flags().GetBool("unread")
		markRead, _ := cmd.Flags().GetBool("mark-read")
		limit, _ := cmd.Flags().GetInt("limit")

		path := fmt.Sprintf("/notifications?limit=%d&unread=%t", limit, unreadOnly)
		var resp struct {
			Notifications []models.Notification `json:"notifications"`
			UnreadCount   int64                 `json:"unread_count"`
		}
		if err := call(http.MethodGet, path, nil, &resp); err != nil {
			return err
		}
		if output == "json" {
			if err := printJSON(resp); err != nil {
				return err
			}
		} else {
			if len(resp.Notifications) == 0 {
				faint.Println("Nothing new.")
			}
			for _, n := range resp.Notifications {
				marker := " "
				if !n.Read {
					marker = cyan.Sprint("•")
				}
				fmt.Printf("%s %s  ", marker, faint.Sprint(n.CreatedAt.Local().Format(time.Stamp)))
				bold.Printf("%-20s ", n.Type)
				fmt.Println(n.Message)
			}
		}

		if markRead && resp.UnreadCount > 0 {
			var marked struct {
				MarkedRead int64 `json:"marked_read"`
			}
			if err := call(http.MethodPut, "/notifications/read-all", nil, &marked); err != nil {
				return err
			}
			if output != "json" {
				printSuccess("Marked %d notification(s) as read", marked.MarkedRead)
			}
		}
		return nil
	},
}

func init() {
	threadCmd.Flags().IntP("limit", "l", 0, "Maximum number of messages (0 shows the whole thread)")
	threadCmd.Flags().Int("offset", 0, "Skip this many of the oldest messages")

	notificationsCmd.Flags().Bool("unread", false, "Only unread notifications")
	notificationsCmd.Flags().Bool("mark-read", false, "Mark all notifications read after listing")
	notificationsCmd.Flags().IntP("limit", "l", util.DefaultPageSize, "Maximum number of notifications")
}

// resolveUser accepts an id or a username, with or without a leading @. Usernames are
// looked up through search so the lookup does not count as a profile view.
func resolveUser(idOrUsername string) (*models.User, error) {
	key := strings.TrimPrefix(idOrUsername, "@")
	if _, err := uuid.Parse(key); err == nil {
		return &models.User{ID: key, Username: key}, nil
	}

	var resp struct {
		Results search.Results `json:"results"`
	}
	path := "/search?type=users&limit=" + strconv.Itoa(util.MaxPageSize) + "&q=" + url.QueryEscape(key)
	if err := call(http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Results.Users {
		if strings.EqualFold(resp.Results.Users[i].Username, key) {
			return &resp.Results.Users[i], nil
		}
	}
	return nil, fmt.Errorf("no user named @%s", key)
}

func countColor(n int64) string {
	if n == 0 {
		return faint.Sprint(0)
	}
	return color.New(color.FgCyan, color.Bold).Sprint(n)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
