package line

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/annko/keiba-bot-go/internal/constants"
	"github.com/annko/keiba-bot-go/internal/util"
	"github.com/annko/keiba-bot-go/pkg/errors"
)

// LINE rejects replies with more than five messages or texts over 5000 characters.
const (
	maxReplyMessages = 5
	maxTextRunes     = 5000
)

// Client sends replies through the Messaging API.
type Client struct {
	client   *resty.Client
	replyURL string
	logger   *zap.Logger
}

func NewClient(accessToken string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetTimeout(10*time.Second).
		SetAuthToken(accessToken).
		SetHeader("Content-Type", "application/json")
	return &Client{client: client, replyURL: constants.URLs.LineReply, logger: logger}
}

// WithReplyURL points the client at another endpoint.
func (c *Client) WithReplyURL(url string) *Client {
	c.replyURL = url
	return c
}

// Reply answers one webhook event. Extra texts beyond the API limit are dropped.
func (c *Client) Reply(ctx context.Context, replyToken string, texts ...string) error {
	if replyToken == "" {
		return errors.NewValidationError("reply token is empty", "replyToken", replyToken)
	}
	if len(texts) > maxReplyMessages {
		c.logger.Warn("Dropping reply messages over the limit", zap.Int("count", len(texts)))
		texts = texts[:maxReplyMessages]
	}

	req := ReplyRequest{ReplyToken: replyToken, Messages: make([]TextMessage, 0, len(texts))}
	for _, text := range texts {
		req.Messages = append(req.Messages, TextMessage{Type: "text", Text: truncate(text)})
	}

	resp, err := c.client.R().SetContext(ctx).SetBody(req).Post(c.replyURL)
	if err != nil {
		c.logger.Error("Failed to send LINE reply", zap.Error(err))
		return errors.NewAPIError("LINE reply failed", 500, map[string]any{"url": c.replyURL}).WithCause(err)
	}
	if resp.IsError() {
		c.logger.Error("LINE reply rejected",
			zap.Int("status", resp.StatusCode()),
			zap.String("body", resp.String()),
		)
		return errors.NewAPIError(fmt.Sprintf("LINE API error: %s", resp.Status()), resp.StatusCode(), map[string]any{
			"url":  c.replyURL,
			"body": resp.String(),
		})
	}
	return nil
}

func truncate(text string) string {
	if len([]rune(text)) <= maxTextRunes {
		return text
	}
	return util.TruncateString(text, maxTextRunes-3)
}
