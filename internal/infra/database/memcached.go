package database

import (
	"github.com/bradfitz/gomemcache/memcache"
)

// NewMemcached connects the creation-log cache backend.
func NewMemcached(addr string) *memcache.Client {
	return memcache.New(addr)
}
