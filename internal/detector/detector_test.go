package detector

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"hotel-rate-intel/internal/catalog"
	"hotel-rate-intel/internal/domain"
	"hotel-rate-intel/internal/seasonal"
)

var now = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	mk := func(id string, min, max float64) domain.Hotel {
		return domain.Hotel{
			ID: id, Name: strings.ToUpper(id), City: "Paris", StarRating: 4,
			PriceRange: domain.PriceRange{Min: min, Max: max, Currency: "EUR"},
		}
	}
	c, err := catalog.New("test", []domain.Hotel{
		mk("h1", 400, 1200),
		mk("h2", 200, 400),
		mk("h3", 100, 300),
		mk("h4", 80, 160),
	})
	if err != nil {
		t.Fatalf("测试目录应能构建: %v", err)
	}
	return c
}

func emptyModel(c *catalog.Catalog) seasonal.Model {
	return seasonal.NewPattern(nil, c.Hotels(), seasonal.WithClock(clock))
}

func seasonalModel(t *testing.T, c *catalog.Catalog) seasonal.Model {
	t.Helper()
	doc := `
version: test
entries:
  - {hotel_id: h2, month: 10, average_rate: 300, low_rate: 200, high_rate: 400, perfect_day_rate: 210, perfect_day: 24, factors: [a, b]}
  - {hotel_id: h3, month: 11, average_rate: 200, low_rate: 120, high_rate: 300, perfect_day_rate: 150, perfect_day: 5}
  - {hotel_id: h4, month: 6, average_rate: 120, low_rate: 80, high_rate: 160, perfect_day_rate: 60, perfect_day: 5}
`
	table, err := seasonal.LoadTable(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("季节表应能加载: %v", err)
	}
	return seasonal.NewPattern(table, c.Hotels(), seasonal.WithClock(clock))
}

func newDetector(c *catalog.Catalog) *Detector {
	return New(c, Options{Now: clock}, zerolog.Nop())
}

func live(id string, avg, current, confidence float64) domain.RateObservation {
	return domain.RateObservation{
		HotelID: id, AveragePrice: avg, CurrentPrice: current,
		ObservedAt: now, StayDate: domain.StartOfDay(now), Confidence: confidence,
	}
}

func checkProperties(t *testing.T, opps []domain.Opportunity) {
	t.Helper()
	for _, o := range opps {
		if o.ConfidenceScore < 0 || o.ConfidenceScore > 1 {
			t.Fatalf("%s 置信度越界: %.3f", o.HotelID, o.ConfidenceScore)
		}
		if o.Origin == domain.OriginSeasonal && o.SavingsPercentage < 25 {
			t.Fatalf("季节性机会折扣应 >= 25: %+v", o)
		}
		if o.Origin == domain.OriginRealtime && o.SavingsPercentage < 10 {
			t.Fatalf("实时机会折扣应 >= 10: %+v", o)
		}
		if math.Abs(o.SavingsPercentage-domain.SavingsPercentage(o.AverageRate, o.CurrentRate)) > 0.1 {
			t.Fatalf("折扣与价格不一致: %+v", o)
		}
		if o.SavingsPercentage >= 35 && o.Urgency == domain.UrgencyLow {
			t.Fatalf("折扣 >= 35 不应为 low: %+v", o)
		}
	}
}

func TestDetectScenarioA(t *testing.T) {
	c := testCatalog(t)
	d := newDetector(c)

	got := d.Detect(context.Background(), []domain.RateObservation{live("h1", 800, 450, 0.8)}, emptyModel(c), 0)
	if len(got) != 1 {
		t.Fatalf("应返回 1 个机会，实际 %d", len(got))
	}
	o := got[0]
	if math.Abs(o.SavingsPercentage-43.75) > 0.1 {
		t.Fatalf("折扣应约为 43.75，实际 %.2f", o.SavingsPercentage)
	}
	if o.Urgency != domain.UrgencyHigh || o.Origin != domain.OriginRealtime || o.ConfidenceScore != 0.8 {
		t.Fatalf("场景 A 结果错误: %+v", o)
	}
	if o.HotelName != "H1" {
		t.Fatalf("应填充酒店名称，实际 %q", o.HotelName)
	}
	checkProperties(t, got)
}

func TestDetectRealtimeThresholds(t *testing.T) {
	c := testCatalog(t)
	d := newDetector(c)

	obs := []domain.RateObservation{
		live("h1", 100, 50, 0.1),   // synthetic, dropped
		live("h2", 100, 90.1, 0.9), // 9.9%, dropped
		live("h3", 100, 84, 0.6),   // 16%, medium
		live("h4", 100, 88, 0.8),   // 12%, low
	}
	got := d.Detect(context.Background(), obs, emptyModel(c), 0)
	if len(got) != 2 {
		t.Fatalf("应保留 2 个实时机会，实际 %d: %+v", len(got), got)
	}
	if got[0].HotelID != "h3" || got[0].Urgency != domain.UrgencyMedium {
		t.Fatalf("第一个应为 h3/medium: %+v", got[0])
	}
	if got[1].HotelID != "h4" || got[1].Urgency != domain.UrgencyLow {
		t.Fatalf("第二个应为 h4/low: %+v", got[1])
	}
	checkProperties(t, got)
}

func TestDetectSeasonalFirst(t *testing.T) {
	c := testCatalog(t)
	d := newDetector(c)

	obs := []domain.RateObservation{
		live("h1", 800, 400, 0.8), // 50%
		live("h4", 100, 85, 0.8),  // 15%
	}
	got := d.Detect(context.Background(), obs, seasonalModel(t, c), 0)
	if len(got) != 4 {
		t.Fatalf("应有 2 个季节性 + 2 个实时机会，实际 %d: %+v", len(got), got)
	}
	wantOrder := []struct {
		id     string
		origin domain.Origin
	}{
		{"h2", domain.OriginSeasonal},
		{"h3", domain.OriginSeasonal},
		{"h1", domain.OriginRealtime},
		{"h4", domain.OriginRealtime},
	}
	for i, w := range wantOrder {
		if got[i].HotelID != w.id || got[i].Origin != w.origin {
			t.Fatalf("第 %d 位应为 %s/%s，实际 %s/%s", i, w.id, w.origin, got[i].HotelID, got[i].Origin)
		}
	}
	checkProperties(t, got)

	limited := d.Detect(context.Background(), obs, seasonalModel(t, c), 3)
	if len(limited) != 3 || limited[2].HotelID != "h1" {
		t.Fatalf("limit=3 应截断到前 3 个: %+v", limited)
	}
}

func TestDetectSeasonalHorizon(t *testing.T) {
	c := testCatalog(t)
	d := New(c, Options{Now: clock, SeasonalHorizon: 10 * 24 * time.Hour}, zerolog.Nop())

	got := d.Detect(context.Background(), nil, seasonalModel(t, c), 0)
	if len(got) != 1 || got[0].HotelID != "h2" {
		t.Fatalf("10 天窗口内只应有 h2: %+v", got)
	}
}

func TestDetectScenarioBFallback(t *testing.T) {
	c := testCatalog(t)
	d := newDetector(c)

	var obs []domain.RateObservation
	for _, h := range c.Hotels() {
		obs = append(obs, domain.RateObservation{
			HotelID: h.ID, AveragePrice: h.PriceRange.Midpoint(), CurrentPrice: h.PriceRange.Min,
			ObservedAt: now, Confidence: 0.1, Synthetic: true, FailureReason: "blocked",
		})
	}
	got := d.Detect(context.Background(), obs, emptyModel(c), 0)
	if len(got) == 0 || len(got) > 3 {
		t.Fatalf("兜底应返回 1 到 3 个机会，实际 %d", len(got))
	}
	for i, o := range got {
		if o.ConfidenceScore != 0.3 && o.ConfidenceScore != 0.1 {
			t.Fatalf("兜底置信度应为 0.1 或 0.3: %+v", o)
		}
		if o.HotelID != c.Hotels()[i].ID {
			t.Fatalf("兜底应取目录前几家酒店: %s", o.HotelID)
		}
		if o.SavingsPercentage != 15 || o.Urgency != domain.UrgencyLow {
			t.Fatalf("兜底折扣应为 15 且 urgency=low: %+v", o)
		}
	}
	checkProperties(t, got)
}

type panickingModel struct{ seasonal.Model }

func (panickingModel) PerfectDaysForHotel(string) ([]domain.Opportunity, error) {
	panic("corrupt table")
}

func TestDetectRecoversFromFault(t *testing.T) {
	c := testCatalog(t)
	d := newDetector(c)

	got := d.Detect(context.Background(), []domain.RateObservation{live("h1", 800, 450, 0.8)}, panickingModel{}, 0)
	if len(got) != 3 {
		t.Fatalf("内部错误时应返回兜底机会，实际 %d", len(got))
	}
	for _, o := range got {
		if o.ConfidenceScore != 0.3 {
			t.Fatalf("兜底置信度应为 0.3: %+v", o)
		}
	}
}

func TestRealtimeUrgencyMonotonic(t *testing.T) {
	for _, conf := range []float64{0.5, 0.6, 0.7, 0.8, 1} {
		prev := domain.UrgencyLow
		rank := map[domain.Urgency]int{domain.UrgencyLow: 0, domain.UrgencyMedium: 1, domain.UrgencyHigh: 2}
		for s := 10.0; s <= 60; s += 0.5 {
			u := RealtimeUrgency(s, conf)
			if rank[u] < rank[prev] {
				t.Fatalf("urgency 应随折扣单调: conf=%.1f s=%.1f", conf, s)
			}
			if s >= 35 && u == domain.UrgencyLow {
				t.Fatalf("折扣 %.1f 不应为 low", s)
			}
			prev = u
		}
	}
}
