// Package menu holds the static cafeteria catalog. It is loaded once at
// startup and never mutated afterwards.
package menu

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"cafeteria-storefront/internal/domain"
)

//go:embed menu.yaml
var builtin []byte

type Catalog struct {
	items []domain.MenuItem
	byID  map[string]int
}

type fileItem struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	Price         string `yaml:"price"`
	Category      string `yaml:"category"`
	TimeAvailable string `yaml:"timeAvailable"`
	Description   string `yaml:"description"`
}

type file struct {
	Items []fileItem `yaml:"items"`
}

// Default returns the built-in catalog. It panics only if the embedded file is broken.
func Default() *Catalog {
	c, err := Load(bytes.NewReader(builtin))
	if err != nil {
		panic(fmt.Sprintf("menu: built-in catalog: %v", err))
	}
	return c
}

func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open menu: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) (*Catalog, error) {
	var raw file
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode menu: %w", err)
	}
	if len(raw.Items) == 0 {
		return nil, errors.New("menu has no items")
	}

	c := &Catalog{byID: make(map[string]int, len(raw.Items))}
	for i, it := range raw.Items {
		if it.ID == "" || it.Name == "" {
			return nil, fmt.Errorf("item %d: id and name are required", i)
		}
		if _, dup := c.byID[it.ID]; dup {
			return nil, fmt.Errorf("item %q: duplicate id", it.ID)
		}
		price, err := decimal.NewFromString(it.Price)
		if err != nil {
			return nil, fmt.Errorf("item %q: bad price %q: %w", it.ID, it.Price, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("item %q: negative price", it.ID)
		}
		cat := domain.Category(it.Category)
		if !cat.Valid() {
			return nil, fmt.Errorf("item %q: unknown category %q", it.ID, it.Category)
		}
		c.byID[it.ID] = len(c.items)
		c.items = append(c.items, domain.MenuItem{
			ID:            it.ID,
			Name:          it.Name,
			Price:         price,
			Category:      cat,
			TimeAvailable: it.TimeAvailable,
			Description:   it.Description,
		})
	}
	return c, nil
}

func (c *Catalog) Items() []domain.MenuItem {
	out := make([]domain.MenuItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Catalog) Get(id string) (domain.MenuItem, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.MenuItem{}, false
	}
	return c.items[i], true
}

func (c *Catalog) ByCategory(cat domain.Category) []domain.MenuItem {
	var out []domain.MenuItem
	for _, it := range c.items {
		if it.Category == cat {
			out = append(out, it)
		}
	}
	return out
}

func (c *Catalog) Categories() []domain.Category {
	out := make([]domain.Category, len(domain.Categories))
	copy(out, domain.Categories)
	return out
}

// DefaultCategory picks the category to show first for the local time of day.
func DefaultCategory(t time.Time) domain.Category {
	switch h := t.Hour(); {
	case h >= 7 && h < 11:
		return domain.CategoryBreakfast
	case h >= 11 && h < 17:
		return domain.CategoryLunch
	case h >= 17 && h < 21:
		return domain.CategoryDinner
	default:
		return domain.CategoryBreakfast
	}
}
