package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMap_PreservesOrder(t *testing.T) {
	p := NewPool(3)
	items := []int{5, 1, 4, 2, 3}

	out := Map(context.Background(), p, items, func(_ context.Context, v int) int {
		time.Sleep(time.Duration(v) * time.Millisecond)
		return v * 10
	})

	assert.Equal(t, []int{50, 10, 40, 20, 30}, out)
}

func TestMap_BoundsConcurrency(t *testing.T) {
	p := NewPool(2)
	var active, peak int32

	Map(context.Background(), p, make([]struct{}, 8), func(context.Context, struct{}) bool {
		n := atomic.AddInt32(&active, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return true
	})

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestMap_Empty(t *testing.T) {
	out := Map(context.Background(), NewPool(4), []string(nil), func(context.Context, string) int { return 1 })
	assert.Empty(t, out)
	assert.NotNil(t, out)
}

func TestNewPool_Default(t *testing.T) {
	assert.Equal(t, DefaultWorkers, NewPool(0).Workers())
}
