package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"hotel-rate-intel/internal/domain"
)

//go:embed data/hotels.yaml
var embeddedHotels []byte

// ErrEmpty is returned when a dataset lists no hotels.
var ErrEmpty = errors.New("catalog: no hotels defined")

// Source supplies the fixed list of monitored hotels.
type Source interface {
	Hotels() []domain.Hotel
	Lookup(id string) (domain.Hotel, bool)
}

// Catalog is an immutable, validated set of hotels.
type Catalog struct {
	version string
	hotels  []domain.Hotel
	byID    map[string]int
}

type document struct {
	Version string         `yaml:"version"`
	Hotels  []domain.Hotel `yaml:"hotels"`
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(embeddedHotels))
}

// LoadFile reads a catalog from a YAML file, or the embedded dataset when path is empty.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a catalog document.
func Load(r io.Reader) (*Catalog, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(doc.Version, doc.Hotels)
}

// New validates hotels and builds a Catalog.
func New(version string, hotels []domain.Hotel) (*Catalog, error) {
	if len(hotels) == 0 {
		return nil, ErrEmpty
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	byID := make(map[string]int, len(hotels))
	for i, h := range hotels {
		if err := validate.Struct(h); err != nil {
			return nil, fmt.Errorf("hotel %q invalid: %w", h.ID, err)
		}
		if _, dup := byID[h.ID]; dup {
			return nil, fmt.Errorf("duplicate hotel id %q", h.ID)
		}
		byID[h.ID] = i
	}

	copied := make([]domain.Hotel, len(hotels))
	copy(copied, hotels)
	return &Catalog{version: version, hotels: copied, byID: byID}, nil
}

// Version identifies the dataset revision.
func (c *Catalog) Version() string { return c.version }

// Hotels returns a copy of all hotels in catalog order.
func (c *Catalog) Hotels() []domain.Hotel {
	out := make([]domain.Hotel, len(c.hotels))
	copy(out, c.hotels)
	return out
}

// Lookup finds a hotel by id.
func (c *Catalog) Lookup(id string) (domain.Hotel, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Hotel{}, false
	}
	return c.hotels[i], true
}

// ByCity lists hotels located in city, matched case-insensitively.
func (c *Catalog) ByCity(city string) []domain.Hotel {
	var out []domain.Hotel
	for _, h := range c.hotels {
		if strings.EqualFold(h.City, strings.TrimSpace(city)) {
			out = append(out, h)
		}
	}
	return out
}

var _ Source = (*Catalog)(nil)
