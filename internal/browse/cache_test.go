package browse

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageCache_PutGet(t *testing.T) {
	c := NewPageCache()

	_, ok := c.Get("cloudreve://my", 1)
	assert.False(t, ok)

	c.Put("cloudreve://my", 1, "tok-1")
	tok, ok := c.Get("cloudreve://my", 1)
	assert.True(t, ok)
	assert.Equal(t, "tok-1", tok)

	_, ok = c.Get("cloudreve://my/other", 1)
	assert.False(t, ok)
}

func TestPageCache_IgnoresEmptyToken(t *testing.T) {
	c := NewPageCache()
	c.Put("cloudreve://my", 1, "")

	assert.Equal(t, 0, c.Len())
}

func TestPageCache_Forget(t *testing.T) {
	c := NewPageCache()
	c.Put("a", 1, "x")
	c.Put("a", 2, "y")
	c.Put("b", 1, "z")

	c.Forget("a")

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("a", 1)
	assert.False(t, ok)
	_, ok = c.Get("b", 1)
	assert.True(t, ok)
}

func TestPageCache_ConcurrentAccess(t *testing.T) {
	c := NewPageCache()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()
			c.Put("p", i, "tok")
			c.Get("p", i)
		}()
	}

	wg.Wait()
	assert.Equal(t, 20, c.Len())
}
