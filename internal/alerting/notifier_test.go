package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"hotel-rate-intel/internal/domain"
)

func sampleNote() Notification {
	return Notification{
		RunID:       "run-1",
		GeneratedAt: time.Date(2026, 10, 16, 6, 0, 0, 0, time.UTC),
		Opportunities: []domain.Opportunity{{
			HotelID:           "bcn-arts",
			HotelName:         "Hotel Arts Barcelona",
			Date:              time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
			CurrentRate:       370,
			AverageRate:       536,
			SavingsPercentage: 31,
			ConfidenceScore:   0.975,
			Urgency:           domain.UrgencyHigh,
			Reasons:           []string{"post-summer dip"},
			Origin:            domain.OriginSeasonal,
		}},
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Errorf("路径应包含 sendMessage, 实际 %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("解析请求体失败: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleNote()); err != nil {
		t.Fatalf("Telegram Notify 应成功: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("chat_id 不正确: %#v", received)
	}
	text := received["text"]
	for _, want := range []string{"Hotel Arts Barcelona", "370 vs avg 536 (-31.0%)", "Urgency: high", "Run: run-1"} {
		if !strings.Contains(text, want) {
			t.Fatalf("消息应包含 %q:\n%s", want, text)
		}
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleNote()); err == nil {
		t.Fatal("ok=false 应报错")
	}
}

func TestDeduperCooldown(t *testing.T) {
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	d := NewDeduper(12*time.Hour, func() time.Time { return now })
	opps := sampleNote().Opportunities

	got := d.Pending(opps)
	if len(got) != 1 {
		t.Fatalf("首次应发送，实际 %d", len(got))
	}
	d.MarkSent(got)
	now = now.Add(6 * time.Hour)
	if got := d.Pending(opps); len(got) != 0 {
		t.Fatalf("冷却期内不应重复发送，实际 %d", len(got))
	}
	now = now.Add(6 * time.Hour)
	if got := d.Pending(opps); len(got) != 1 {
		t.Fatalf("冷却期结束后应再次发送，实际 %d", len(got))
	}
}

func TestDeduperPendingDoesNotRecord(t *testing.T) {
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	d := NewDeduper(12*time.Hour, func() time.Time { return now })
	opps := sampleNote().Opportunities

	// 未调用 MarkSent（例如发送失败）时，下一轮仍应重试。
	for i := 0; i < 2; i++ {
		if got := d.Pending(opps); len(got) != 1 {
			t.Fatalf("第 %d 次: 未确认送达的告警应保持待发送，实际 %d", i+1, len(got))
		}
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
