package ml

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCacheKeyString tests cache key string representation
func TestCacheKeyString(t *testing.T) {
	key := CacheKey{CategoryID: "best_picture", CandidateID: "Hamnet", ModelVersion: "v2", Features: EncodeFeatures([]float64{9, 0.25, 1})}

	keyStr := key.String()
	assert.Equal(t, "best_picture|Hamnet|v2|9,0.25,1", keyStr)
}

// TestPredictionCacheGetMiss tests cache Get on an empty cache
func TestPredictionCacheGetMiss(t *testing.T) {
	cache := NewPredictionCache(time.Hour, 100)
	defer cache.Clear()

	_, ok := cache.Get(CacheKey{CategoryID: "best_picture", CandidateID: "Hamnet", ModelVersion: "v1"})
	assert.False(t, ok)

	hits, misses, ratio := cache.Stats()
	assert.Equal(t, uint64(0), hits)
	assert.Equal(t, uint64(1), misses)
	assert.Zero(t, ratio)
}

// TestPredictionCacheSet tests cache Set then Get
func TestPredictionCacheSet(t *testing.T) {
	cache := NewPredictionCache(time.Hour, 100)
	defer cache.Clear()

	key := CacheKey{CategoryID: "best_picture", CandidateID: "Hamnet", ModelVersion: "v1"}
	cache.Set(key, 0.75)

	p, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, 0.75, p)

	_, _, ratio := cache.Stats()
	assert.Equal(t, 1.0, ratio)
}

// TestPredictionCacheExpiration tests cache TTL expiration
func TestPredictionCacheExpiration(t *testing.T) {
	cache := NewPredictionCache(50*time.Millisecond, 100)
	defer cache.Clear()

	key := CacheKey{CategoryID: "best_director", CandidateID: "pta", ModelVersion: "v1"}
	cache.Set(key, 0.4)

	time.Sleep(120 * time.Millisecond)
	_, ok := cache.Get(key)
	assert.False(t, ok)
}

// TestPredictionCacheMaxSize tests that a full cache stops accepting entries
func TestPredictionCacheMaxSize(t *testing.T) {
	cache := NewPredictionCache(time.Hour, 2)
	defer cache.Clear()

	cache.Set(CacheKey{CategoryID: "c", CandidateID: "a"}, 0.1)
	cache.Set(CacheKey{CategoryID: "c", CandidateID: "b"}, 0.2)
	cache.Set(CacheKey{CategoryID: "c", CandidateID: "d"}, 0.3)

	assert.Equal(t, 2, cache.ItemCount())
}

// TestCacheKeyDependsOnFeatures tests that changed inputs produce a new key
func TestCacheKeyDependsOnFeatures(t *testing.T) {
	a := CacheKey{CategoryID: "best_picture", CandidateID: "Hamnet", ModelVersion: "v1", Features: EncodeFeatures([]float64{9, 0.5})}
	b := a
	b.Features = EncodeFeatures([]float64{1, 0.1})
	assert.NotEqual(t, a.String(), b.String())
}
