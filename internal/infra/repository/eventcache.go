package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/veriport/veriport"
	"github.com/veriport/veriport/internal/domain"
)

const eventCacheTTL = 300 // seconds

// EventCacheRepository persists scanned creation-log prefixes in memcached
// so repeat listings only scan blocks past the cached head. Log entries are
// immutable once emitted, which is what makes caching them safe; record
// state is never cached.
type EventCacheRepository struct {
	mc *memcache.Client
}

func NewEventCacheRepository(mc *memcache.Client) *EventCacheRepository {
	return &EventCacheRepository{mc: mc}
}

type cachedLog struct {
	Events []veriport.CreationEvent `json:"events"`
	Head   uint64                   `json:"head"`
}

func cacheKey(party domain.Party, address string) string {
	return fmt.Sprintf("veriport:log:%s:%s", party, strings.ToLower(address))
}

func (r *EventCacheRepository) Load(ctx context.Context, party domain.Party, address string) ([]veriport.CreationEvent, uint64, bool) {
	item, err := r.mc.Get(cacheKey(party, address))
	if err != nil {
		if err != memcache.ErrCacheMiss {
			slog.WarnContext(ctx, "event cache read failed",
				slog.String("error", err.Error()),
				slog.String("module", "eventcache"),
			)
		}
		return nil, 0, false
	}

	var cached cachedLog
	if err := json.Unmarshal(item.Value, &cached); err != nil {
		return nil, 0, false
	}
	return cached.Events, cached.Head, true
}

func (r *EventCacheRepository) Store(ctx context.Context, party domain.Party, address string, events []veriport.CreationEvent, head uint64) error {
	value, err := json.Marshal(cachedLog{Events: events, Head: head})
	if err != nil {
		return err
	}
	return r.mc.Set(&memcache.Item{
		Key:        cacheKey(party, address),
		Value:      value,
		Expiration: eventCacheTTL,
	})
}
