package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hotel-rate-intel/internal/domain"
)

func testHotel(url string) domain.Hotel {
	return domain.Hotel{
		ID:         "bcn-arts",
		Name:       "Hotel Arts",
		City:       "Barcelona",
		StarRating: 5,
		PriceRange: domain.PriceRange{Min: 320, Max: 780, Currency: "EUR"},
		URL:        url,
	}
}

func TestPageSourceFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "rateintel-test" {
			t.Errorf("应使用配置的 User-Agent，实际 %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte(`<html><body>
			<span class="price">€412</span>
			<span class="price">€389,00</span>
			<span class="price">$500</span>
		</body></html>`))
	}))
	defer srv.Close()

	src := NewPageSource(PageOptions{UserAgent: "rateintel-test", Timeout: time.Second}, noopLogger())
	q, err := src.Fetch(context.Background(), testHotel(srv.URL))
	if err != nil {
		t.Fatalf("成功响应不应报错: %v", err)
	}
	if q.Currency != "EUR" || len(q.Prices) != 2 {
		t.Fatalf("应返回 2 个 EUR 价格: %+v", q)
	}
	if q.Prices[0] != 412 || q.Prices[1] != 389 {
		t.Fatalf("价格解析错误: %+v", q.Prices)
	}
}

func TestPageSourceErrors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"rate limited", http.StatusTooManyRequests, "slow down", ErrScrapeBlocked},
		{"forbidden", http.StatusForbidden, "", ErrScrapeBlocked},
		{"captcha", http.StatusOK, "<h1>Please complete the CAPTCHA</h1>", ErrScrapeBlocked},
		{"no price", http.StatusOK, "<h1>Sold out</h1>", ErrNoPrice},
		{"wrong currency", http.StatusOK, "<b>$300</b>", ErrCurrencyMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			src := NewPageSource(PageOptions{Timeout: time.Second}, noopLogger())
			if _, err := src.Fetch(context.Background(), testHotel(srv.URL)); !errors.Is(err, tc.wantErr) {
				t.Fatalf("期望 %v，实际 %v", tc.wantErr, err)
			}
		})
	}
}

func TestPageSourceServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewPageSource(PageOptions{Timeout: time.Second}, noopLogger())
	_, err := src.Fetch(context.Background(), testHotel(srv.URL))
	if err == nil || Reason(err) != "error" {
		t.Fatalf("HTTP 500 应返回普通错误，实际 %v", err)
	}
}

func TestPageSourceTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	src := NewPageSource(PageOptions{Timeout: 5 * time.Second}, noopLogger())
	if _, err := src.Fetch(ctx, testHotel(srv.URL)); !errors.Is(err, ErrScrapeTimeout) {
		t.Fatalf("超时应返回 ErrScrapeTimeout，实际 %v", err)
	}
}

func TestPageSourceURLTemplate(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte("<p>350 EUR</p>"))
	}))
	defer srv.Close()

	src := NewPageSource(PageOptions{URLTemplate: srv.URL + "/rates/{city}/{id}", Timeout: time.Second}, noopLogger())
	if _, err := src.Fetch(context.Background(), testHotel("")); err != nil {
		t.Fatalf("模板 URL 应可用: %v", err)
	}
	if gotPath != "/rates/barcelona/bcn-arts" {
		t.Fatalf("模板替换错误: %s", gotPath)
	}

	bare := NewPageSource(PageOptions{}, noopLogger())
	if _, err := bare.Fetch(context.Background(), testHotel("")); err == nil {
		t.Fatal("没有 URL 也没有模板时应报错")
	}
}

func TestMockSource(t *testing.T) {
	m := NewMockSource()
	m.SetPrices("a", "EUR", 120, 110)
	m.SetError("b", ErrScrapeBlocked)

	ctx := context.Background()
	if q, err := m.Fetch(ctx, domain.Hotel{ID: "a"}); err != nil || len(q.Prices) != 2 {
		t.Fatalf("a 应返回预设报价: %+v %v", q, err)
	}
	if _, err := m.Fetch(ctx, domain.Hotel{ID: "b"}); !errors.Is(err, ErrScrapeBlocked) {
		t.Fatalf("b 应返回预设错误，实际 %v", err)
	}
	if _, err := m.Fetch(ctx, domain.Hotel{ID: "c"}); !errors.Is(err, ErrNoPrice) {
		t.Fatalf("未登记的酒店应返回 ErrNoPrice，实际 %v", err)
	}
	if calls := m.Calls(); len(calls) != 3 || calls[0] != "a" || calls[2] != "c" {
		t.Fatalf("调用记录错误: %v", calls)
	}

	m.Simulate = true
	h := testHotel("")
	q1, err := m.Fetch(ctx, h)
	if err != nil {
		t.Fatalf("模拟模式不应报错: %v", err)
	}
	q2, _ := m.Fetch(ctx, h)
	if q1.Prices[0] != q2.Prices[0] {
		t.Fatal("模拟价格应稳定")
	}
	if q1.Prices[0] < h.PriceRange.Min || q1.Prices[0] > h.PriceRange.Max {
		t.Fatalf("模拟价格应在区间内: %.2f", q1.Prices[0])
	}
}
