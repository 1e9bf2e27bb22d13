package notifier

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"StockSentinel/pkg/errors"
	"StockSentinel/pkg/logger"
)

// MaxMessageLength is Telegram's limit for a single text message.
const MaxMessageLength = 4096

// Pusher delivers text to a chat. An empty chatID means the default chat.
type Pusher interface {
	Push(ctx context.Context, chatID, text string) error
}

// TelegramConfig configures the bot client.
type TelegramConfig struct {
	Token         string
	DefaultChatID string
	Proxy         string
	Endpoint      string // defaults to tgbotapi.APIEndpoint
	Timeout       time.Duration
	Backoff       time.Duration // first retry delay, doubled per attempt
	MaxRetries    int
}

// TelegramNotifier sends HTML messages via the Telegram Bot API.
type TelegramNotifier struct {
	api         *tgbotapi.BotAPI
	defaultChat string
	limiter     *rate.Limiter
	backoff     time.Duration
	maxRetries  int
	log         *logger.Logger
}

// NewTelegramNotifier authorizes the bot (one getMe call) with optional proxy support.
func NewTelegramNotifier(cfg TelegramConfig, log *logger.Logger) (*TelegramNotifier, error) {
	if cfg.Token == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "telegram bot token is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if log == nil {
		log = logger.Get()
	}

	transport := &http.Transport{}
	if cfg.Proxy != "" {
		if u, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	client := &http.Client{Timeout: cfg.Timeout, Transport: transport}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.Endpoint, client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create telegram bot")
	}

	t := &TelegramNotifier{
		api:         api,
		defaultChat: cfg.DefaultChatID,
		// Telegram allows roughly one message per second per chat.
		limiter:    rate.NewLimiter(rate.Limit(1), 3),
		backoff:    cfg.Backoff,
		maxRetries: cfg.MaxRetries,
		log:        log.With("component", "telegram"),
	}
	t.log.Infow("telegram authorized", "bot", api.Self.UserName)
	return t, nil
}

// Send sends a message, split into chunks when longer than MaxMessageLength.
func (t *TelegramNotifier) Send(ctx context.Context, chatID, text string) error {
	id, err := t.chat(chatID)
	if err != nil {
		return err
	}
	for _, chunk := range splitMessage(text, MaxMessageLength) {
		if err := t.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "rate limiter telegram")
		}
		msg := tgbotapi.NewMessage(id, chunk)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if _, err := t.api.Send(msg); err != nil {
			return errors.Wrap(err, "send telegram message")
		}
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, chatID, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := t.Send(ctx, chatID, text)
		if err == nil {
			return nil
		}
		lastErr = err
		if errors.Is(err, errors.ErrInvalidInput) || i == maxRetries {
			break
		}
		backoff := t.backoff << uint(i)
		t.log.Warnw("telegram send failed, retrying", "attempt", i+1, "max", maxRetries+1, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return errors.Wrapf(lastErr, "all %d attempts exhausted", maxRetries+1)
}

// Push implements Pusher using the configured retry budget.
func (t *TelegramNotifier) Push(ctx context.Context, chatID, text string) error {
	return t.SendWithRetry(ctx, chatID, text, t.maxRetries)
}

func (t *TelegramNotifier) chat(chatID string) (int64, error) {
	if chatID == "" {
		chatID = t.defaultChat
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrInvalidInput, "chat id %q", chatID)
	}
	return id, nil
}

// splitMessage cuts text into chunks of at most limit bytes, preferring line breaks.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit], '\n')
		if cut <= 0 {
			cut = limit
			// don't split a multi-byte rune
			for cut > 0 && !isRuneStart(text[cut]) {
				cut--
			}
		}
		chunks = append(chunks, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
