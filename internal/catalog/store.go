package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"orderintake/internal"
)

// Snapshot is an immutable view of the catalog. A request resolves its
// snapshot once and uses it for every match and validation in that
// request, so a concurrent reload can never mix catalog versions.
type Snapshot struct {
	Products []internal.Product
	Index    *Index
	Version  int64
	LoadedAt time.Time
}

// Product returns the snapshot's product for a SKU.
func (s *Snapshot) Product(sku string) (internal.Product, bool) {
	p, ok := s.Index.BySKU[sku]
	return p, ok
}

// Store holds the current catalog snapshot and swaps it atomically on
// reload. Readers never block each other.
type Store struct {
	mu      sync.RWMutex
	current *Snapshot
	version int64
}

func NewStore(products []internal.Product) (*Store, error) {
	s := &Store{}
	if err := s.Replace(products); err != nil {
		return nil, err
	}
	return s, nil
}

// Replace validates the product set and installs it as the new snapshot.
// In-flight requests keep the snapshot they already hold.
func (s *Store) Replace(products []internal.Product) error {
	if len(products) == 0 {
		return fmt.Errorf("catalog: refusing to install an empty product set")
	}

	cleaned := make([]internal.Product, 0, len(products))
	seen := map[string]struct{}{}
	for _, p := range products {
		p.SKU = strings.TrimSpace(p.SKU)
		p.Name = strings.TrimSpace(p.Name)
		if p.SKU == "" {
			return fmt.Errorf("catalog: product with empty SKU (name=%q)", p.Name)
		}
		if p.Name == "" {
			return fmt.Errorf("catalog: product %s has empty name", p.SKU)
		}
		if _, dup := seen[p.SKU]; dup {
			return fmt.Errorf("catalog: duplicate SKU %s", p.SKU)
		}
		seen[p.SKU] = struct{}{}
		if p.MinOrderQty < 1 {
			p.MinOrderQty = 1
		}
		if p.Stock < 0 {
			p.Stock = 0
		}
		cleaned = append(cleaned, p)
	}
	sort.Slice(cleaned, func(i, j int) bool { return cleaned[i].SKU < cleaned[j].SKU })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	s.current = &Snapshot{
		Products: cleaned,
		Index:    BuildIndex(cleaned),
		Version:  s.version,
		LoadedAt: time.Now().UTC(),
	}
	return nil
}

// Snapshot returns the current catalog view.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
