// Package notification delivers signal events to chat sinks. Delivery is
// fire-and-forget; a failed send is logged and never affects signal
// state.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"signal-scanner/internal/storage"
)

// Notifier is one delivery channel.
type Notifier interface {
	Name() string
	Send(ctx context.Context, title, message string) error
}

// Manager fans signal events out to every configured channel.
type Manager struct {
	notifiers []Notifier
	timeout   time.Duration
	log       zerolog.Logger
}

// NewManager creates a manager with no channels; add them with
// AddNotifier.
func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{
		timeout: 10 * time.Second,
		log:     logger.With().Str("component", "NotificationManager").Logger(),
	}
}

// AddNotifier registers a delivery channel.
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
	m.log.Info().Str("channel", n.Name()).Msg("notification channel added")
}

// NotifySignal formats and dispatches a lifecycle event. It returns
// immediately; sends run in the background.
func (m *Manager) NotifySignal(event string, rec storage.SignalRecord) {
	if len(m.notifiers) == 0 {
		return
	}
	title, message := formatSignal(event, rec)
	for _, n := range m.notifiers {
		go func(n Notifier) {
			ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
			defer cancel()
			if err := n.Send(ctx, title, message); err != nil {
				m.log.Warn().Err(err).Str("channel", n.Name()).Str("event", event).
					Msg("notification send failed")
			}
		}(n)
	}
}

func formatSignal(event string, rec storage.SignalRecord) (string, string) {
	setup := rec.Signal.Setup
	title := fmt.Sprintf("%s: %s %s", prettyEvent(event), strings.ToUpper(string(setup.Direction)), rec.Signal.Symbol)
	message := fmt.Sprintf(
		"%s %s (%s)\nEntry: %.5f\nStop: %.5f\nTarget: %.5f\nR:R %.2f, confidence %d",
		strings.ToUpper(string(setup.Direction)), rec.Signal.Symbol, setup.EntryType,
		setup.EntryPrice, setup.StopLoss, setup.TakeProfit, setup.RiskReward, setup.Confidence,
	)
	return title, message
}

func prettyEvent(event string) string {
	return strings.ReplaceAll(strings.TrimPrefix(event, "signal_"), "_", " ")
}

// TelegramNotifier posts messages through the Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	client   *http.Client
}

// NewTelegramNotifier creates the channel.
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

func (t *TelegramNotifier) Send(ctx context.Context, title, message string) error {
	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", title+"\n\n"+message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram send: status %d", resp.StatusCode)
	}
	return nil
}

// DiscordNotifier posts messages to a webhook.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordNotifier creates the channel.
func NewDiscordNotifier(webhookURL string) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordNotifier) Name() string { return "discord" }

func (d *DiscordNotifier) Send(ctx context.Context, title, message string) error {
	payload, err := json.Marshal(map[string]string{
		"content": "**" + title + "**\n" + message,
	})
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("discord send: status %d", resp.StatusCode)
	}
	return nil
}

var (
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = (*DiscordNotifier)(nil)
)
