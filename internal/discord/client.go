package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://discord.com/api/v10"

// Client is a minimal Discord REST client covering command registration and
// followup edits to already-acknowledged interactions.
type Client struct {
	HTTP     *http.Client
	BotToken string
	BaseURL  string
	Log      zerolog.Logger
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultBaseURL
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// RegisterCommand creates or updates a global application command.
func (c *Client) RegisterCommand(ctx context.Context, applicationID string, cmd ApplicationCommand) error {
	url := fmt.Sprintf("%s/applications/%s/commands", c.baseURL(), applicationID)
	return c.postCommand(ctx, url, cmd)
}

// RegisterGuildCommand creates or updates an application command scoped to a
// single guild.
func (c *Client) RegisterGuildCommand(ctx context.Context, applicationID, guildID string, cmd ApplicationCommand) error {
	url := fmt.Sprintf("%s/applications/%s/guilds/%s/commands", c.baseURL(), applicationID, guildID)
	return c.postCommand(ctx, url, cmd)
}

func (c *Client) postCommand(ctx context.Context, url string, cmd ApplicationCommand) error {
	body, err := json.Marshal(cmd)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bot "+c.BotToken)

	if err := c.do(req); err != nil {
		return fmt.Errorf("registering command %q: %w", cmd.Name, err)
	}
	c.Log.Info().Str("command", cmd.Name).Msg("command updated")
	return nil
}

// EditOriginalResponse edits the original reply of an interaction using its
// followup token. The webhook endpoint is authenticated by the token itself.
func (c *Client) EditOriginalResponse(ctx context.Context, applicationID, token, content string) error {
	url := fmt.Sprintf("%s/webhooks/%s/%s/messages/@original", c.baseURL(), applicationID, token)
	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	if err := c.do(req); err != nil {
		return fmt.Errorf("editing original response: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request) error {
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord returned %d: %s", resp.StatusCode, detail)
	}
	return nil
}
