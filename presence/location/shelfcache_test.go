package location_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openshelf/presence-engine/presence"
	"github.com/openshelf/presence-engine/presence/location"
	"github.com/openshelf/presence-engine/testutil/helper"
)

func Test_ShelfCache_GetReturnsWhatWasSet(t *testing.T) {
	// arrange
	cache := location.NewShelfCache()
	readerID := helper.GivenUniqueID(t)
	shelf := presence.ShelfLocation{ShelfID: helper.GivenUniqueID(t), ShelfCode: "B-03"}

	// act
	cache.Set(readerID, shelf)
	cached, ok := cache.Get(readerID)

	// assert
	assert.True(t, ok)
	assert.Equal(t, shelf, cached)
}

func Test_ShelfCache_MissForUnknownReader(t *testing.T) {
	// arrange
	cache := location.NewShelfCache()

	// act
	_, ok := cache.Get(helper.GivenUniqueID(t))

	// assert
	assert.False(t, ok)
}

func Test_ShelfCache_EntryExpiresAfterTTL(t *testing.T) {
	// arrange
	current := time.Date(2025, 6, 16, 10, 0, 0, 0, time.UTC)
	cache := location.NewShelfCache(
		location.WithShelfCacheTTL(time.Hour),
		location.WithShelfCacheClock(func() time.Time { return current }),
	)
	readerID := helper.GivenUniqueID(t)
	cache.Set(readerID, presence.ShelfLocation{ShelfCode: "B-03"})

	// act + assert - still cached just inside the TTL
	current = current.Add(59 * time.Minute)
	_, ok := cache.Get(readerID)
	assert.True(t, ok)

	// act + assert - expired beyond the TTL
	current = current.Add(2 * time.Minute)
	_, ok = cache.Get(readerID)
	assert.False(t, ok)
}

func Test_ShelfCache_InvalidateEvictsOnlyThatReader(t *testing.T) {
	// arrange
	cache := location.NewShelfCache()
	firstReaderID := helper.GivenUniqueID(t)
	secondReaderID := helper.GivenUniqueID(t)
	cache.Set(firstReaderID, presence.ShelfLocation{ShelfCode: "A-01"})
	cache.Set(secondReaderID, presence.ShelfLocation{ShelfCode: "A-02"})

	// act
	cache.Invalidate(firstReaderID)

	// assert
	_, firstOK := cache.Get(firstReaderID)
	_, secondOK := cache.Get(secondReaderID)
	assert.False(t, firstOK)
	assert.True(t, secondOK)
}

func Test_ShelfCache_SetOverwritesAndRefreshesEntry(t *testing.T) {
	// arrange
	current := time.Date(2025, 6, 16, 10, 0, 0, 0, time.UTC)
	cache := location.NewShelfCache(
		location.WithShelfCacheTTL(time.Hour),
		location.WithShelfCacheClock(func() time.Time { return current }),
	)
	readerID := helper.GivenUniqueID(t)
	cache.Set(readerID, presence.ShelfLocation{ShelfCode: "A-01"})

	// act - reassigned to another shelf 50 minutes later
	current = current.Add(50 * time.Minute)
	cache.Set(readerID, presence.ShelfLocation{ShelfCode: "C-07"})
	current = current.Add(30 * time.Minute)
	cached, ok := cache.Get(readerID)

	// assert - the rewrite reset the TTL clock
	assert.True(t, ok)
	assert.Equal(t, "C-07", cached.ShelfCode)
}
