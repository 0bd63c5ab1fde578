package repository

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"storefront/internal/cart"
	"storefront/internal/domain"
)

// MaxProductPrice is the largest unit price the catalog accepts, the
// processor's single-charge ceiling in cents.
const MaxProductPrice int64 = 99_999_999

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Products []domain.Product `yaml:"products"`
}

// MemoryCatalog is built once at startup and never written afterwards,
// so readers need no locking.
type MemoryCatalog struct {
	ordered []domain.Product
	byID    map[string]domain.Product
}

// Ensure interfaces
var _ ProductRepository = (*MemoryCatalog)(nil)

// NewMemoryCatalog validates products and indexes them by id.
func NewMemoryCatalog(products []domain.Product) (*MemoryCatalog, error) {
	if len(products) == 0 {
		return nil, fmt.Errorf("catalog: no products")
	}
	c := &MemoryCatalog{
		ordered: make([]domain.Product, 0, len(products)),
		byID:    make(map[string]domain.Product, len(products)),
	}
	for i, p := range products {
		switch {
		case p.ID == "":
			return nil, fmt.Errorf("catalog: product #%d has no id", i+1)
		case p.Name == "":
			return nil, fmt.Errorf("catalog: product %q has no name", p.ID)
		case p.Price < 0:
			return nil, fmt.Errorf("catalog: product %q has negative price", p.ID)
		case p.Price > MaxProductPrice:
			return nil, fmt.Errorf("catalog: product %q price exceeds %d", p.ID, MaxProductPrice)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate product id %q", p.ID)
		}
		c.byID[p.ID] = p
		c.ordered = append(c.ordered, p)
	}
	return c, nil
}

// LoadCatalog parses a YAML catalog document.
func LoadCatalog(data []byte) (*MemoryCatalog, error) {
	var f catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	return NewMemoryCatalog(f.Products)
}

// LoadCatalogFile reads the catalog from path, or the embedded default
// catalog when path is empty.
func LoadCatalogFile(path string) (*MemoryCatalog, error) {
	if path == "" {
		return LoadCatalog(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return LoadCatalog(data)
}

func (m *MemoryCatalog) GetByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	// return copy
	cp := p
	return &cp, nil
}

// List keeps catalog order.
func (m *MemoryCatalog) List(_ context.Context, f ProductFilter) ([]domain.Product, error) {
	out := make([]domain.Product, 0)
	for _, p := range m.ordered {
		if !containsIgnoreCase(p.Name, f.NameSubstring) {
			continue
		}
		if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
			continue
		}
		if f.MinPrice != nil && p.Price < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && p.Price > *f.MaxPrice {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// PriceOf lets the catalog price carts directly.
func (m *MemoryCatalog) PriceOf(id string) (int64, bool) {
	p, ok := m.byID[id]
	return p.Price, ok
}

// MemoryCarts keeps one cart store per session in process memory.
type MemoryCarts struct {
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*cartSession
}

type cartSession struct {
	store    *cart.Store
	lastSeen time.Time
}

var _ CartSessions = (*MemoryCarts)(nil)

// NewMemoryCarts creates an empty session table. Sessions idle longer than
// ttl are dropped by Sweep; ttl <= 0 disables expiry.
func NewMemoryCarts(ttl time.Duration) *MemoryCarts {
	return &MemoryCarts{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*cartSession),
	}
}

func (mc *MemoryCarts) Create(_ context.Context) (string, *cart.Store, error) {
	id := uuid.NewString()
	s := &cartSession{store: cart.NewStore(), lastSeen: mc.now()}
	mc.mu.Lock()
	mc.sessions[id] = s
	mc.mu.Unlock()
	return id, s.store, nil
}

func (mc *MemoryCarts) Get(_ context.Context, id string) (*cart.Store, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	s, ok := mc.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.lastSeen = mc.now()
	return s.store, nil
}

func (mc *MemoryCarts) Delete(_ context.Context, id string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if _, ok := mc.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(mc.sessions, id)
	return nil
}

// Len reports the number of live sessions.
func (mc *MemoryCarts) Len() int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return len(mc.sessions)
}

// Sweep drops sessions idle since before now-ttl and returns how many.
func (mc *MemoryCarts) Sweep(now time.Time) int {
	if mc.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-mc.ttl)
	mc.mu.Lock()
	defer mc.mu.Unlock()
	n := 0
	for id, s := range mc.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(mc.sessions, id)
			n++
		}
	}
	return n
}
