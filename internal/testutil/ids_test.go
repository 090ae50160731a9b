package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceGenerator(t *testing.T) {
	g := NewSequenceGenerator("")
	assert.Equal(t, "audit-0001", g.Generate())
	assert.Equal(t, "audit-0002", g.Generate())

	other := NewSequenceGenerator("run")
	assert.Equal(t, "run-0001", other.Generate(), "generators are independent")
}

func TestSequenceGenerator_ConcurrentUnique(t *testing.T) {
	g := NewSequenceGenerator("x")
	var mu sync.Mutex
	seen := map[string]bool{}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := g.Generate()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 50)
}
