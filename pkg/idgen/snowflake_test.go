package idgen

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextIDUnique(t *testing.T) {
	const goroutines = 8
	const perGoroutine = 1000

	var mu sync.Mutex
	seen := make(map[int64]bool, goroutines*perGoroutine)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]int64, 0, perGoroutine)
			for i := 0; i < perGoroutine; i++ {
				ids = append(ids, NextID())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range ids {
				assert.False(t, seen[id], "ID重复: %d", id)
				seen[id] = true
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*perGoroutine)
}

func TestBusinessNoPrefix(t *testing.T) {
	assert.True(t, strings.HasPrefix(GenerateEntryNo(), "LGR"))
	assert.True(t, strings.HasPrefix(GenerateDepositNo(), "DEP"))
	assert.True(t, strings.HasPrefix(GenerateWithdrawalNo(), "WDR"))
	assert.True(t, strings.HasPrefix(GenerateCompetitionNo(), "CMP"))
}
