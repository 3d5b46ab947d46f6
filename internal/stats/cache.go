package stats

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"

	"github.com/Raventwist88/ontrakk/internal/telemetry"
)

const minCacheBytes = 512 * 1024

// Cache keeps the last computed Stats per query as whole JSON blobs.
// Each Set replaces the previous blob, so readers never see partial data.
// Every Invalidate bumps the generation; a result computed under an older
// generation is never stored.
type Cache struct {
	cache *freecache.Cache
	instr *telemetry.Instrumentation

	mu         sync.Mutex
	generation uint64
}

func NewCache(sizeMB int, instr *telemetry.Instrumentation) *Cache {
	size := sizeMB * 1024 * 1024
	if size < minCacheBytes {
		size = minCacheBytes
	}
	return &Cache{
		cache: freecache.NewCache(size),
		instr: instr,
	}
}

// cacheKey identifies one computation. A nil Stats is cached too, as JSON null.
func cacheKey(q Query, prefs Preferences) []byte {
	loc := "UTC"
	if prefs.Location != nil {
		loc = prefs.Location.String()
	}
	calorieGoal, weightGoal := "-", "-"
	if prefs.CalorieGoal != nil {
		calorieGoal = fmt.Sprint(*prefs.CalorieGoal)
	}
	if prefs.WeightGoal != nil {
		weightGoal = fmt.Sprint(*prefs.WeightGoal)
	}
	return []byte(fmt.Sprintf("stats::%s::%d::%s::%s::%s", q.Window, q.ProjectionDays, loc, calorieGoal, weightGoal))
}

func (c *Cache) Get(key []byte) (*Stats, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.cache.Get(key)
	if err != nil {
		c.instr.StatsCache(false)
		return nil, false
	}
	var st *Stats
	if err := json.Unmarshal(data, &st); err != nil {
		log.Errorf("stats cache: unmarshal %s: %s", key, err)
		c.instr.StatsCache(false)
		return nil, false
	}
	c.instr.StatsCache(true)
	return st, true
}

// Generation returns the current invalidation count. Take it before
// reading the store and pass it to Set.
func (c *Cache) Generation() uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Set stores st unless the cache was invalidated after generation gen.
// It reports whether the value was stored.
func (c *Cache) Set(key []byte, st *Stats, gen uint64) bool {
	if c == nil {
		return false
	}
	data, err := json.Marshal(st)
	if err != nil {
		log.Errorf("stats cache: marshal %s: %s", key, err)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		log.Debugf("stats cache: drop stale %s (generation %d, current %d)", key, gen, c.generation)
		return false
	}
	if err := c.cache.Set(key, data, 0); err != nil {
		log.Debugf("stats cache: set %s: %s", key, err)
		return false
	}
	return true
}

// Invalidate drops every cached computation.
func (c *Cache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.generation++
	c.cache.Clear()
	c.mu.Unlock()
	log.Trace("stats cache cleared")
}
