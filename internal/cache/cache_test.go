package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetAndGet(t *testing.T) {
	c := New()

	c.Set("quotations:list", []string{"q-1", "q-2"}, 10*time.Second)
	val, exists := c.Get("quotations:list")
	assert.True(t, exists)
	assert.Equal(t, []string{"q-1", "q-2"}, val)

	val, exists = c.Get("quotations:missing")
	assert.False(t, exists)
	assert.Nil(t, val)
}

func TestGetRemovesExpired(t *testing.T) {
	c := New()

	c.Set("quotations:list", "stale", 50*time.Millisecond)

	val, exists := c.Get("quotations:list")
	assert.True(t, exists)
	assert.Equal(t, "stale", val)

	time.Sleep(80 * time.Millisecond)

	val, exists = c.Get("quotations:list")
	assert.False(t, exists)
	assert.Nil(t, val)

	c.mutex.RLock()
	_, still := c.items["quotations:list"]
	c.mutex.RUnlock()
	assert.False(t, still)
}

func TestSetOverwrites(t *testing.T) {
	c := New()

	c.Set("quotations:list", "first", 10*time.Second)
	c.Set("quotations:list", "second", 10*time.Second)

	val, exists := c.Get("quotations:list")
	assert.True(t, exists)
	assert.Equal(t, "second", val)
}

func TestDelete(t *testing.T) {
	c := New()

	c.Set("quotations:list", "cached", 10*time.Second)
	c.Delete("quotations:list")

	_, exists := c.Get("quotations:list")
	assert.False(t, exists)

	// deleting an absent key is a no-op
	c.Delete("quotations:missing")
}

func TestClear(t *testing.T) {
	c := New()

	c.Set("quotations:list", "a", 10*time.Second)
	c.Set("quotations:q-1:audit", "b", 10*time.Second)

	c.Clear()

	_, exists := c.Get("quotations:list")
	assert.False(t, exists)
	_, exists = c.Get("quotations:q-1:audit")
	assert.False(t, exists)

	c.mutex.RLock()
	assert.Empty(t, c.items)
	c.mutex.RUnlock()
}

func TestNonPositiveTTLExpiresImmediately(t *testing.T) {
	c := New()

	c.Set("zero", "value", 0)
	c.Set("negative", "value", -time.Second)

	time.Sleep(5 * time.Millisecond)

	_, exists := c.Get("zero")
	assert.False(t, exists)
	_, exists = c.Get("negative")
	assert.False(t, exists)
}

func TestNilValueIsCacheable(t *testing.T) {
	c := New()

	c.Set("empty-list", nil, 10*time.Second)
	val, exists := c.Get("empty-list")
	assert.True(t, exists)
	assert.Nil(t, val)
}

func TestConcurrentAccess(t *testing.T) {
	c := New()
	const iterations = 100
	var wg sync.WaitGroup

	wg.Add(iterations * 3)
	for i := 0; i < iterations; i++ {
		go func(n int) {
			defer wg.Done()
			c.Set("quotations:list", n, 10*time.Second)
		}(i)
		go func() {
			defer wg.Done()
			c.Get("quotations:list")
		}()
		go func(n int) {
			defer wg.Done()
			if n%10 == 0 {
				c.Delete("quotations:list")
			}
		}(i)
	}
	wg.Wait()

	c.Set("final", "value", 10*time.Second)
	val, exists := c.Get("final")
	assert.True(t, exists)
	assert.Equal(t, "value", val)
}

func BenchmarkGet(b *testing.B) {
	c := New()
	c.Set("quotations:list", "value", 10*time.Second)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get("quotations:list")
	}
}
