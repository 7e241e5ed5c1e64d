package catalog

import (
	"errors"
	"strings"
	"testing"

	"hotel-rate-intel/internal/domain"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("内置目录应能加载: %v", err)
	}
	if len(c.Hotels()) == 0 {
		t.Fatal("内置目录不应为空")
	}
	for _, h := range c.Hotels() {
		if h.PriceRange.Min <= 0 || h.PriceRange.Max < h.PriceRange.Min {
			t.Fatalf("酒店 %s 价格区间非法: %+v", h.ID, h.PriceRange)
		}
	}
	if _, ok := c.Lookup("par-le-meurice"); !ok {
		t.Fatal("目录中应包含 par-le-meurice")
	}
	if got := c.ByCity("  paris "); len(got) != 3 {
		t.Fatalf("巴黎应有 3 家酒店，实际 %d", len(got))
	}
}

func TestLoadRejectsInvalidPriceRange(t *testing.T) {
	doc := `
version: test
hotels:
  - id: h1
    name: Broken
    city: Nowhere
    star_rating: 3
    price_range: {min: 300, max: 100, currency: EUR}
`
	if _, err := Load(strings.NewReader(doc)); err == nil {
		t.Fatal("max 小于 min 时应报错")
	}
}

func TestNewRejectsEmptyAndDuplicates(t *testing.T) {
	if _, err := New("v", nil); !errors.Is(err, ErrEmpty) {
		t.Fatalf("空目录应返回 ErrEmpty，实际 %v", err)
	}

	h := domain.Hotel{ID: "a", Name: "A", City: "X", StarRating: 3, PriceRange: domain.PriceRange{Min: 10, Max: 20, Currency: "EUR"}}
	if _, err := New("v", []domain.Hotel{h, h}); err == nil {
		t.Fatal("重复 id 应报错")
	}
}

func TestHotelsReturnsCopy(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	hs := c.Hotels()
	hs[0].Name = "mutated"
	if c.Hotels()[0].Name == "mutated" {
		t.Fatal("Hotels 不应暴露内部切片")
	}
}
