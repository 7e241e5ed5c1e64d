package seasonal

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"hotel-rate-intel/internal/domain"
)

//go:embed data/seasonal.yaml
var embeddedTable []byte

// ErrInvalidTable is wrapped by every dataset validation failure.
var ErrInvalidTable = errors.New("seasonal: invalid table")

const savingsTolerance = 0.1

// Table is a versioned, read-only dataset of monthly rate statistics.
type Table struct {
	Version         string                     `yaml:"version"`
	CityMultipliers map[string][]float64       `yaml:"city_multipliers"`
	Entries         []domain.SeasonalRateEntry `yaml:"entries"`
}

// DefaultTable returns the dataset compiled into the binary.
func DefaultTable() (*Table, error) {
	return LoadTable(bytes.NewReader(embeddedTable))
}

// LoadTableFile reads a dataset from disk, or the embedded one when path is empty.
func LoadTableFile(path string) (*Table, error) {
	if path == "" {
		return DefaultTable()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seasonal table: %w", err)
	}
	defer f.Close()
	return LoadTable(f)
}

// LoadTable decodes and validates a dataset.
func LoadTable(r io.Reader) (*Table, error) {
	var t Table
	if err := yaml.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("decode seasonal table: %w", err)
	}
	if err := t.normalize(); err != nil {
		return nil, err
	}
	return &t, nil
}

// normalize checks every entry and derives savings that were left blank.
func (t *Table) normalize() error {
	if strings.TrimSpace(t.Version) == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidTable)
	}

	seen := make(map[string]bool, len(t.Entries))
	for i := range t.Entries {
		e := &t.Entries[i]
		if e.HotelID == "" {
			return fmt.Errorf("%w: entry %d has no hotel id", ErrInvalidTable, i)
		}
		if e.Month < time.January || e.Month > time.December {
			return fmt.Errorf("%w: %s month %d out of range", ErrInvalidTable, e.HotelID, e.Month)
		}
		key := entryKey(e.HotelID, e.Month)
		if seen[key] {
			return fmt.Errorf("%w: duplicate entry %s", ErrInvalidTable, key)
		}
		seen[key] = true

		if e.AverageRate <= 0 || e.PerfectDayRate <= 0 {
			return fmt.Errorf("%w: %s rates must be positive", ErrInvalidTable, key)
		}
		if e.LowRate > e.AverageRate || e.AverageRate > e.HighRate {
			return fmt.Errorf("%w: %s expects low <= average <= high", ErrInvalidTable, key)
		}
		if e.PerfectDayRate > e.AverageRate {
			return fmt.Errorf("%w: %s perfect day rate above average", ErrInvalidTable, key)
		}
		if e.PerfectDay < 1 || e.PerfectDay > 31 {
			return fmt.Errorf("%w: %s perfect day %d out of range", ErrInvalidTable, key, e.PerfectDay)
		}

		computed := domain.SavingsPercentage(e.AverageRate, e.PerfectDayRate)
		if e.SavingsPercentage == 0 {
			e.SavingsPercentage = computed
		} else if math.Abs(e.SavingsPercentage-computed) > savingsTolerance {
			return fmt.Errorf("%w: %s savings %.1f does not match rates (%.1f)", ErrInvalidTable, key, e.SavingsPercentage, computed)
		}
		e.SavingsPercentage = computed

		if e.Recommendation == "" {
			e.Recommendation = gradeSavings(computed)
		}
		if !e.Recommendation.Valid() {
			return fmt.Errorf("%w: %s unknown recommendation %q", ErrInvalidTable, key, e.Recommendation)
		}
	}

	for city, months := range t.CityMultipliers {
		if len(months) != 12 {
			return fmt.Errorf("%w: city %s needs 12 multipliers, got %d", ErrInvalidTable, city, len(months))
		}
	}
	return nil
}

func gradeSavings(s float64) domain.Recommendation {
	switch {
	case s >= 35:
		return domain.RecommendationExcellent
	case s >= 25:
		return domain.RecommendationGood
	case s >= 15:
		return domain.RecommendationFair
	default:
		return domain.RecommendationAvoid
	}
}

func entryKey(hotelID string, month time.Month) string {
	return fmt.Sprintf("%s/%02d", hotelID, int(month))
}
