package iris

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/annko/keiba-bot-go/pkg/errors"
)

// Client talks to the Iris HTTP bridge running next to KakaoTalk.
type Client struct {
	client *resty.Client
	logger *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json")
	return &Client{client: client, logger: logger}
}

func (c *Client) GetConfig(ctx context.Context) (*Config, error) {
	var config Config
	if err := c.doRequest(ctx, resty.MethodGet, "/config", nil, &config); err != nil {
		c.logger.Error("Failed to get Iris config", zap.Error(err))
		return nil, err
	}
	return &config, nil
}

func (c *Client) SendMessage(ctx context.Context, room, message string) error {
	req := ReplyRequest{
		Type: "text",
		Room: room,
		Data: message,
	}

	if err := c.doRequest(ctx, resty.MethodPost, "/reply", req, nil); err != nil {
		c.logger.Error("Failed to send message",
			zap.Error(err),
			zap.String("room", room),
		)
		return err
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) bool {
	_, err := c.GetConfig(ctx)
	return err == nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, reqBody, respBody any) error {
	req := c.client.R().SetContext(ctx)
	if reqBody != nil {
		req.SetBody(reqBody)
	}
	if respBody != nil {
		req.SetResult(respBody)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return errors.NewAPIError("request failed", 500, map[string]any{
			"path": path,
		}).WithCause(err)
	}

	if resp.IsError() {
		return errors.NewAPIError(
			fmt.Sprintf("Iris API error: %s", resp.Status()),
			resp.StatusCode(),
			map[string]any{
				"path": path,
				"body": resp.String(),
			},
		)
	}
	return nil
}
