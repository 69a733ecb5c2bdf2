package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ChatAccess is what a turn needs to know about its chat before touching it.
type ChatAccess struct {
	OwnerId     uuid.UUID
	IsTemporary bool
}

// ChatAccessCache remembers chat ownership so each turn skips the lookup
// after the first one. Entries are evicted when a chat is deleted.
type ChatAccessCache struct {
	cache *cache.Cache
}

func NewChatAccessCache(ttl time.Duration) *ChatAccessCache {
	return &ChatAccessCache{
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *ChatAccessCache) Lookup(chatID uuid.UUID) (ChatAccess, bool) {
	if x, found := c.cache.Get(chatID.String()); found {
		return x.(ChatAccess), true
	}
	return ChatAccess{}, false
}

func (c *ChatAccessCache) Remember(chatID uuid.UUID, access ChatAccess) {
	c.cache.Set(chatID.String(), access, cache.DefaultExpiration)
}

// MarkTitled records that the chat is no longer temporary.
func (c *ChatAccessCache) MarkTitled(chatID uuid.UUID) {
	if access, ok := c.Lookup(chatID); ok {
		access.IsTemporary = false
		c.Remember(chatID, access)
	}
}

func (c *ChatAccessCache) Evict(chatID uuid.UUID) {
	c.cache.Delete(chatID.String())
}
