package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// TelegramSink delivers events as messages through the Telegram Bot API.
type TelegramSink struct {
	botToken string
	chatID   string
	client   *http.Client
}

func NewTelegramSink(botToken, chatID string) *TelegramSink {
	return &TelegramSink{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *TelegramSink) Publish(ev Event) error {
	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	payload := map[string]string{
		"chat_id": t.chatID,
		"text":    formatMessage(ev),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	resp, err := t.client.Post(apiURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func formatMessage(ev Event) string {
	var b strings.Builder
	switch ev.Severity {
	case SeverityError:
		b.WriteString("ERROR ")
	case SeverityWarning:
		b.WriteString("WARN ")
	}
	b.WriteString(strings.ReplaceAll(string(ev.Type), "_", " "))
	if ev.Day != "" {
		fmt.Fprintf(&b, " (%s)", ev.Day)
	}

	keys := make([]string, 0, len(ev.Fields))
	for k := range ev.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %v", k, ev.Fields[k])
	}
	return b.String()
}
