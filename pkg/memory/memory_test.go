package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemory(t *testing.T) {
	t.Run("keeps insertion order under capacity", func(t *testing.T) {
		m := NewMemory[int](5)
		for i := 1; i <= 3; i++ {
			m.Store(i)
		}
		assert.Equal(t, []int{1, 2, 3}, m.GetAll())
		assert.Equal(t, 3, m.Len())
	})

	t.Run("drops oldest when full", func(t *testing.T) {
		m := NewMemory[string](2)
		m.Store("a")
		m.Store("b")
		m.Store("c")
		assert.Equal(t, []string{"b", "c"}, m.GetAll())
		assert.Equal(t, 2, m.Capacity())
	})

	t.Run("last n", func(t *testing.T) {
		m := NewMemory[int](10)
		for i := 0; i < 6; i++ {
			m.Store(i)
		}
		assert.Equal(t, []int{3, 4, 5}, m.Last(3))
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, m.Last(50))
		assert.Empty(t, m.Last(0))
	})

	t.Run("copies are detached", func(t *testing.T) {
		m := NewMemory[int](3)
		m.Store(1)
		got := m.GetAll()
		got[0] = 99
		assert.Equal(t, []int{1}, m.GetAll())
	})

	t.Run("clear", func(t *testing.T) {
		m := NewMemory[int](3)
		m.Store(1)
		m.Clear()
		assert.Zero(t, m.Len())
	})

	t.Run("concurrent stores", func(t *testing.T) {
		m := NewMemory[int](1000)
		var wg sync.WaitGroup
		for g := 0; g < 10; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					m.Store(i)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 500, m.Len())
	})
}
