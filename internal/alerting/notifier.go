package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"hotel-rate-intel/internal/domain"
)

// Notification 封装一次刷新产生的高紧急度机会。
type Notification struct {
	RunID         string
	GeneratedAt   time.Time
	Opportunities []domain.Opportunity
	Channels      []string
	AdditionalMsg string
}

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送摘要。
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    RenderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}

	n.logger.Info().Str("run_id", note.RunID).
		Int("opportunities", len(note.Opportunities)).
		Str("channels", strings.Join(note.Channels, ",")).
		Msg("告警已发送 (Telegram)")
	return nil
}

// RenderMessage 生成纯文本摘要。
func RenderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[Hotel Perfect Day Alert]\n")
	builder.WriteString(fmt.Sprintf("Generated: %s UTC\n", note.GeneratedAt.UTC().Format(time.RFC3339)))
	for _, o := range note.Opportunities {
		builder.WriteString(fmt.Sprintf("\n%s (%s)\n", o.HotelName, o.Origin))
		builder.WriteString(fmt.Sprintf("Date: %s\n", o.Date.Format("Mon 02 Jan 2006")))
		builder.WriteString(fmt.Sprintf("Rate: %s vs avg %s (-%s%%)\n",
			decimal.NewFromFloat(o.CurrentRate).StringFixed(0),
			decimal.NewFromFloat(o.AverageRate).StringFixed(0),
			decimal.NewFromFloat(o.SavingsPercentage).StringFixed(1)))
		builder.WriteString(fmt.Sprintf("Urgency: %s, confidence %s\n", o.Urgency, decimal.NewFromFloat(o.ConfidenceScore).StringFixed(2)))
		if len(o.Reasons) > 0 {
			builder.WriteString(fmt.Sprintf("Why: %s\n", strings.Join(o.Reasons, "; ")))
		}
	}
	if len(note.Channels) > 0 {
		builder.WriteString(fmt.Sprintf("\nChannels: %s\n", strings.Join(note.Channels, ",")))
	}
	if note.RunID != "" {
		builder.WriteString(fmt.Sprintf("Run: %s\n", note.RunID))
	}
	if note.AdditionalMsg != "" {
		builder.WriteString(note.AdditionalMsg)
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
