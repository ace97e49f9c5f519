package client

import (
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cached resource names.
const (
	ResCompanies  = "companies"
	ResLines      = "lines"
	ResSets       = "sets"
	ResTypes      = "types"
	ResCategories = "categories"
	ResTags       = "tags"
	ResMinis      = "minis"
	ResBaseSizes  = "base-sizes"
	ResPaintedBy  = "painted-by"
	ResSettings   = "settings"
	ResDashboard  = "dashboard"
)

// catalogResources lists every resource the dashboard aggregates.
var catalogResources = []string{
	ResCompanies, ResLines, ResSets, ResTypes, ResCategories,
	ResTags, ResMinis, ResBaseSizes, ResPaintedBy,
}

// Cache memoizes reads per resource and key. Invalidating a resource drops
// its entries and, transitively, those of every resource declared to depend
// on it. Cached values are shared between callers and must not be mutated.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]map[string]any
	gens       map[string]uint64
	epoch      uint64
	dependents map[string]map[string]bool
	group      singleflight.Group
}

// NewCache returns an empty cache with no dependencies declared.
func NewCache() *Cache {
	return &Cache{
		entries:    make(map[string]map[string]any),
		gens:       make(map[string]uint64),
		dependents: make(map[string]map[string]bool),
	}
}

// NewCatalogCache returns a cache with the dependency graph of the
// MiniatureDB API declared.
func NewCatalogCache() *Cache {
	c := NewCache()
	// Company rows show a line count; line rows show the company name.
	c.DependsOn(ResCompanies, ResLines)
	c.DependsOn(ResLines, ResCompanies, ResSets)
	// Set rows show line and company names and a mini count.
	c.DependsOn(ResSets, ResLines, ResCompanies, ResMinis)
	// Type rows show a category count; categories list their types.
	c.DependsOn(ResTypes, ResCategories)
	c.DependsOn(ResCategories, ResTypes)
	c.DependsOn(ResTags, ResMinis)
	c.DependsOn(ResMinis, ResSets, ResTags, ResTypes, ResCategories,
		ResBaseSizes, ResPaintedBy, ResCompanies, ResLines)
	c.DependsOn(ResDashboard, catalogResources...)
	return c
}

// DependsOn declares that resource is derived from each upstream resource.
func (c *Cache) DependsOn(resource string, upstream ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range upstream {
		if c.dependents[u] == nil {
			c.dependents[u] = make(map[string]bool)
		}
		c.dependents[u][resource] = true
	}
}

// Invalidate drops every entry of resource and of its transitive
// dependents, and bumps their generations so that reads already in flight
// are not stored.
func (c *Cache) Invalidate(resource string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := map[string]bool{resource: true}
	queue := []string{resource}
	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]
		delete(c.entries, r)
		c.gens[r]++
		for d := range c.dependents[r] {
			if !seen[d] {
				seen[d] = true
				queue = append(queue, d)
			}
		}
	}
}

// Clear drops every entry and starts a new epoch, so no read in flight
// before the call is stored, whatever its resource.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.entries = make(map[string]map[string]any)
}

// Get returns the cached value for resource and key.
func (c *Cache) Get(resource, key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[resource][key]
	return v, ok
}

// Load returns the cached value or calls fetch. Concurrent loads of the
// same resource, key and generation share one fetch; a load that starts
// after an invalidation never joins a fetch that started before it. The
// result is stored only if the resource was not invalidated or cleared
// while fetch ran.
func (c *Cache) Load(resource, key string, fetch func() (any, error)) (any, error) {
	c.mu.Lock()
	if v, ok := c.entries[resource][key]; ok {
		c.mu.Unlock()
		return v, nil
	}
	gen, epoch := c.gens[resource], c.epoch
	c.mu.Unlock()

	flight := resource + "\x00" + key + "\x00" +
		strconv.FormatUint(epoch, 10) + "." + strconv.FormatUint(gen, 10)
	v, err, _ := c.group.Do(flight, func() (any, error) {
		v, err := fetch()
		if err != nil {
			return nil, err
		}
		c.store(resource, key, gen, epoch, v)
		return v, nil
	})
	return v, err
}

func (c *Cache) store(resource, key string, gen, epoch uint64, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[resource] != gen || c.epoch != epoch {
		return
	}
	if c.entries[resource] == nil {
		c.entries[resource] = make(map[string]any)
	}
	c.entries[resource][key] = v
}
