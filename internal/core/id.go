package core

import (
	"sync/atomic"
	"time"
)

var lastID atomic.Int64

// NextID returns the current Unix-millisecond timestamp as an identifier,
// strictly monotonic within the process: a clock that has not advanced past
// the previous ID yields previous+1.
func NextID() int64 {
	for {
		id := time.Now().UnixMilli()
		prev := lastID.Load()
		if id <= prev {
			id = prev + 1
		}
		if lastID.CompareAndSwap(prev, id) {
			return id
		}
	}
}
