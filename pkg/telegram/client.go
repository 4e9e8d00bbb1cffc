package telegram

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"contract-announcer/internal/entity"
	"contract-announcer/pkg/apperror"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Publisher posts a formatted message to the channel.
type Publisher interface {
	Publish(ctx context.Context, text string) (entity.PublishReceipt, error)
}

// Config holds the bot credentials and target chat.
type Config struct {
	BotToken    string
	ChatID      int64
	APIEndpoint string // defaults to tgbotapi.APIEndpoint
	Timeout     time.Duration
}

// Client is the Telegram implementation of Publisher.
type Client struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewClient authenticates the bot (getMe) and returns a publisher for the configured chat.
// Credential failures are reported with apperror.KindAuth.
func NewClient(cfg Config) (*Client, error) {
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, classify("telegram.get_me", err)
	}
	return &Client{bot: bot, chatID: cfg.ChatID}, nil
}

// Username returns the bot account name confirmed by getMe.
func (c *Client) Username() string {
	return c.bot.Self.UserName
}

// Publish sends text as a plain message, with link preview enabled for the listing URL.
func (c *Client) Publish(ctx context.Context, text string) (entity.PublishReceipt, error) {
	if err := ctx.Err(); err != nil {
		return entity.PublishReceipt{}, err
	}

	msg := tgbotapi.NewMessage(c.chatID, text)
	sent, err := c.bot.Send(msg)
	if err != nil {
		return entity.PublishReceipt{}, classify("telegram.send", err)
	}

	publishedAt := time.Unix(int64(sent.Date), 0).UTC()
	if sent.Date == 0 {
		publishedAt = time.Now().UTC()
	}
	return entity.PublishReceipt{
		MessageID:   strconv.Itoa(sent.MessageID),
		PublishedAt: publishedAt,
	}, nil
}

// classify maps bot API and transport failures onto apperror kinds. A timeout after the request
// left the process is ambiguous: Telegram may have posted the message.
func classify(op string, err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return apperror.New(apperror.KindAuth, op, err)
		case apiErr.Code == http.StatusTooManyRequests:
			return apperror.New(apperror.KindRateLimited, op, fmt.Errorf("%w (retry after %ds)", err, apiErr.RetryAfter))
		case apiErr.Code >= 500:
			return apperror.New(apperror.KindTransient, op, err)
		default:
			return apperror.New(apperror.KindRejected, op, err)
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return apperror.New(apperror.KindTransient, op, err)
		}
		if urlErr.Timeout() {
			return apperror.New(apperror.KindAmbiguous, op, err)
		}
		return apperror.New(apperror.KindTransient, op, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.New(apperror.KindAmbiguous, op, err)
	}
	return apperror.New(apperror.KindTransient, op, err)
}
