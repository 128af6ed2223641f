package analysis

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/ianlancetaylor/demangle"
)

// Demangler caches demangled symbol names.
type Demangler struct {
	mu    sync.RWMutex
	cache map[string]string
	hits  map[string]int
}

// NewDemangler creates an empty cache.
func NewDemangler() *Demangler {
	return &Demangler{
		cache: make(map[string]string),
		hits:  make(map[string]int),
	}
}

// Demangle returns the demangled form of name, or name itself when it is not
// a mangled C++ symbol.
func (d *Demangler) Demangle(name string) string {
	d.mu.RLock()
	cached, ok := d.cache[name]
	d.mu.RUnlock()
	if ok {
		d.mu.Lock()
		d.hits[name]++
		d.mu.Unlock()
		return cached
	}

	demangled := demangle.Filter(name, demangle.NoClones)

	d.mu.Lock()
	d.cache[name] = demangled
	d.mu.Unlock()
	return demangled
}

// Stats returns the number of cached names, total cache hits and the most
// requested names.
func (d *Demangler) Stats() (entries int, hits int, top []string) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	type symbolHit struct {
		symbol string
		count  int
	}
	var symbols []symbolHit
	for sym, count := range d.hits {
		hits += count
		symbols = append(symbols, symbolHit{sym, count})
	}
	slices.SortFunc(symbols, func(a, b symbolHit) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(a.symbol, b.symbol)
	})

	for i := 0; i < 5 && i < len(symbols); i++ {
		top = append(top, fmt.Sprintf("%s (%d hits)", symbols[i].symbol, symbols[i].count))
	}
	return len(d.cache), hits, top
}
