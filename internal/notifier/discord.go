// Package notifier delivers blog post announcements to a Discord channel
// through the REST API.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/twhitfield/ghost-discord-bot/internal/ghost"
	"github.com/twhitfield/ghost-discord-bot/internal/util"
)

const (
	defaultAPIBase = "https://discord.com/api/v10"

	embedColor    = 0x7289da // Discord blurple
	previewLength = 200
)

type Client struct {
	token   string
	apiBase string
	client  *http.Client
}

func New(botToken string) *Client {
	return &Client{
		token:   botToken,
		apiBase: defaultAPIBase,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Internal structures

type discordMessagePayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbedImage struct {
	URL string `json:"url,omitempty"`
}

type discordEmbedAuthor struct {
	Name    string `json:"name,omitempty"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}

type discordEmbed struct {
	Title       string             `json:"title,omitempty"`
	Description string             `json:"description,omitempty"`
	URL         string             `json:"url,omitempty"`
	Timestamp   string             `json:"timestamp,omitempty"`
	Color       int                `json:"color,omitempty"`
	Image       discordEmbedImage  `json:"image,omitempty"`
	Author      discordEmbedAuthor `json:"author,omitempty"`
	Footer      discordEmbedFooter `json:"footer,omitempty"`
}

// AnnouncePost delivers a new-post announcement to the given channel.
func (c *Client) AnnouncePost(ctx context.Context, channelID string, post ghost.Post) error {
	payload := discordMessagePayload{
		Content: "📢 **New Blog Post Published!**",
		Embeds:  []discordEmbed{formatPostEmbed(post)},
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/channels/%s/messages", c.apiBase, channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bot "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return fmt.Errorf("discord status: %s, body: %s", resp.Status, string(bodyBytes))
}

func formatPostEmbed(post ghost.Post) discordEmbed {
	description := post.Excerpt
	if description == "" {
		description = post.Plaintext
	}
	if description == "" && post.HTML != "" {
		description = util.PlainText(post.HTML)
	}
	description = util.Truncate(description, previewLength)

	var isoTimestamp string
	if post.PublishedAt != nil {
		isoTimestamp = post.PublishedAt.Format(time.RFC3339)
	}

	var author discordEmbedAuthor
	if len(post.Authors) > 0 {
		author = discordEmbedAuthor{
			Name:    post.Authors[0].Name,
			URL:     post.Authors[0].URL,
			IconURL: post.Authors[0].ProfileImage,
		}
	}

	footerText := "🤖 Auto-posted"
	if tags := post.PublicTags(); len(tags) > 0 {
		names := make([]string, 0, len(tags))
		for _, t := range tags {
			names = append(names, t.Name)
		}
		footerText += " • Tags: " + strings.Join(names, ", ")
	}

	return discordEmbed{
		Title:       post.Title,
		Description: description,
		URL:         post.URL,
		Timestamp:   isoTimestamp,
		Color:       embedColor,
		Image:       discordEmbedImage{URL: post.FeatureImage},
		Author:      author,
		Footer:      discordEmbedFooter{Text: footerText},
	}
}
