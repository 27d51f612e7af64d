package app

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChatLimiter_SerializesChat(t *testing.T) {
	l := NewChatLimiter()
	var inside, maxInside, done int32
	for i := 0; i < 50; i++ {
		l.Go(1, func() {
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			atomic.AddInt32(&done, 1)
			atomic.AddInt32(&inside, -1)
		})
	}
	l.Wait()
	assert.Equal(t, int32(50), done)
	assert.Equal(t, int32(1), maxInside)
}
