package alerting

import (
	"sync"
	"time"

	"hotel-rate-intel/internal/domain"
)

// Deduper 在冷却期内屏蔽同一酒店同一日期的重复告警。
type Deduper struct {
	mu       sync.Mutex
	cooldown time.Duration
	now      func() time.Time
	sent     map[string]time.Time
}

// NewDeduper 构造去重器，cooldown <= 0 时不做去重。
func NewDeduper(cooldown time.Duration, now func() time.Time) *Deduper {
	if now == nil {
		now = time.Now
	}
	return &Deduper{cooldown: cooldown, now: now, sent: make(map[string]time.Time)}
}

// Pending returns the opportunities not delivered within the cooldown. It does
// not record anything; call MarkSent once delivery succeeded.
func (d *Deduper) Pending(opps []domain.Opportunity) []domain.Opportunity {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for key, at := range d.sent {
		if now.Sub(at) >= d.cooldown {
			delete(d.sent, key)
		}
	}

	var out []domain.Opportunity
	for _, o := range opps {
		if _, recent := d.sent[alertKey(o)]; recent && d.cooldown > 0 {
			continue
		}
		out = append(out, o)
	}
	return out
}

// MarkSent 记录已成功送达的告警，冷却期从现在开始计算。
func (d *Deduper) MarkSent(opps []domain.Opportunity) {
	if d.cooldown <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for _, o := range opps {
		d.sent[alertKey(o)] = now
	}
}

func alertKey(o domain.Opportunity) string {
	return o.HotelID + "|" + o.Date.Format("2006-01-02")
}
