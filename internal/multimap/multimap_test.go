package multimap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndFind(t *testing.T) {
	m := NewString[string]()

	inserted := m.Insert("cluster-1", "group-a", time.Minute)
	assert.True(t, inserted)

	inserted = m.Insert("cluster-1", "group-a", time.Minute)
	assert.False(t, inserted, "re-inserting an existing value should report false")

	values := m.Find("cluster-1")
	require.Len(t, values, 1)
	assert.Equal(t, "group-a", values[0])
	assert.True(t, m.ContainsValue("cluster-1", "group-a"))
	assert.Equal(t, 1, m.Count("cluster-1"))
}

func TestInsertOrAssignIdempotent(t *testing.T) {
	m := NewString[string]()

	first := m.InsertOrAssign("k", "v", time.Minute)
	second := m.InsertOrAssign("k", "v", time.Minute)

	assert.True(t, first)
	assert.False(t, second)
	assert.Equal(t, 1, m.Count("k"))
}

func TestCountValue(t *testing.T) {
	m := NewString[string]()
	m.Insert("cluster-1", "group-a", time.Minute)

	assert.Equal(t, 1, m.CountValue("cluster-1", "group-a"))
	assert.Equal(t, 0, m.CountValue("cluster-1", "group-b"))
	assert.Equal(t, 0, m.CountValue("cluster-2", "group-a"))
}

func TestEraseValueLeavesOtherValues(t *testing.T) {
	m := NewString[string]()
	m.Insert("k", "a", time.Minute)
	m.Insert("k", "b", time.Minute)

	removed := m.EraseValue("k", "a")
	assert.Equal(t, 1, removed)
	assert.True(t, m.Contains("k"))
	assert.False(t, m.ContainsValue("k", "a"))
	assert.True(t, m.ContainsValue("k", "b"))
}

func TestEraseValueRemovesEmptyCategory(t *testing.T) {
	m := NewString[string]()
	m.Insert("k", "a", time.Minute)

	m.EraseValue("k", "a")
	assert.False(t, m.Contains("k"))
}

func TestErase(t *testing.T) {
	m := NewString[string]()
	m.Insert("k", "a", time.Minute)
	m.Insert("k", "b", time.Minute)

	n := m.Erase("k")
	assert.Equal(t, 2, n)
	assert.False(t, m.Contains("k"))
}

func TestExpiryIsPerCategory(t *testing.T) {
	m := NewString[string]()
	m.Insert("k", "a", time.Millisecond)
	m.InsertOrAssign("k", "b", time.Hour) // refreshes the whole category's expiry

	time.Sleep(5 * time.Millisecond)

	// Because expiry is category-level, "a" is still visible: the second
	// insert refreshed the shared expiry for the whole key.
	assert.True(t, m.Contains("k"))
	assert.True(t, m.ContainsValue("k", "a"))
}

func TestUpdateExpirationRefreshesReads(t *testing.T) {
	m := NewString[string]()
	m.Insert("k", "a", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	require.False(t, m.Contains("k"))

	// once expired the category is gone, so refreshing a missing key fails
	ok := m.UpdateExpiration("k", time.Minute)
	assert.False(t, ok)

	m.Insert("k", "a", time.Minute)
	ok = m.UpdateExpiration("k", time.Hour)
	assert.True(t, ok)
	assert.True(t, m.Contains("k"))
}

func TestConcurrentDistinctKeys(t *testing.T) {
	m := NewString[int]()
	done := make(chan struct{})
	for i := 0; i < 50; i++ {
		i := i
		go func() {
			m.Insert("key", i, time.Minute)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 50; i++ {
		<-done
	}
	assert.Equal(t, 50, m.Count("key"))
}
