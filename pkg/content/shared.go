package content

import (
	"sync"
	"time"

	"github.com/macropower/rulecat/pkg/cache"
)

var (
	sharedCache   *cache.Cache[Rule]
	sharedCacheMu sync.Mutex
)

// SharedCache returns the process-wide rule cache, creating it with ttl on
// first use. Later calls return the same cache regardless of ttl.
func SharedCache(ttl time.Duration) *cache.Cache[Rule] {
	sharedCacheMu.Lock()
	defer sharedCacheMu.Unlock()

	if sharedCache == nil {
		sharedCache = cache.New[Rule](ttl)
	}

	return sharedCache
}

// ResetSharedCache discards the process-wide rule cache.
func ResetSharedCache() {
	sharedCacheMu.Lock()
	defer sharedCacheMu.Unlock()

	sharedCache = nil
}
