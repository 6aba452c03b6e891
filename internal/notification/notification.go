package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Notifier is a delivery channel for alert text.
type Notifier interface {
	Send(text string) error
	Name() string
	IsEnabled() bool
}

// Manager fans alert messages out to all enabled providers. Delivery
// failures are logged, never propagated into the pipeline.
type Manager struct {
	notifiers []Notifier
	enabled   bool
	log       zerolog.Logger
}

func NewManager(enabled bool, log zerolog.Logger) *Manager {
	return &Manager{enabled: enabled, log: log}
}

func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Send delivers the message to every enabled provider.
func (m *Manager) Send(text string) {
	if !m.enabled {
		return
	}
	for _, n := range m.notifiers {
		if !n.IsEnabled() {
			continue
		}
		if err := n.Send(text); err != nil {
			m.log.Error().Err(err).Str("notifier", n.Name()).Msg("notification delivery failed")
		}
	}
}

// TelegramNotifier sends messages through the Telegram bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	enabled  bool
	client   *http.Client
}

type TelegramConfig struct {
	BotToken string
	ChatID   string
	Enabled  bool
}

func NewTelegramNotifier(config TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: config.BotToken,
		chatID:   config.ChatID,
		enabled:  config.Enabled && config.BotToken != "" && config.ChatID != "",
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Name() string {
	return "telegram"
}

func (t *TelegramNotifier) IsEnabled() bool {
	return t.enabled
}

func (t *TelegramNotifier) Send(text string) error {
	if !t.enabled {
		return nil
	}

	payload := map[string]interface{}{
		"chat_id": t.chatID,
		"text":    text,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	resp, err := t.client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}
