package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScheduleFires(t *testing.T) {
	q := New()
	defer q.Stop()

	var fired int32
	q.Schedule(1100*time.Millisecond, func() { atomic.StoreInt32(&fired, 1) })
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fired) == 1
	}, 4*time.Second, 50*time.Millisecond)
}

func TestCancelPreventsFire(t *testing.T) {
	q := New()
	defer q.Stop()

	var fired int32
	h := q.Schedule(1100*time.Millisecond, func() { atomic.StoreInt32(&fired, 1) })
	q.Cancel(h)
	time.Sleep(2500 * time.Millisecond)
	require.EqualValues(t, 0, atomic.LoadInt32(&fired))
}

func TestSameTickOrdering(t *testing.T) {
	q := New()
	defer q.Stop()

	var order []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		q.Schedule(1100*time.Millisecond, func() {
			order = append(order, i)
			if len(order) == 5 {
				close(done)
			}
		})
	}
	select {
	case <-done:
	case <-time.After(4 * time.Second):
		t.Fatal("tasks did not fire in time")
	}
	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}
