package app

import (
	"sync"
	"time"

	"pondo/internal/core"
)

const (
	NoticeSuccess = "success"
	NoticeError   = "error"
)

// Notice is a short-lived user-visible message.
type Notice struct {
	ID      int64  `json:"id"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Notices is a bounded queue of notices. Each notice auto-expires after the
// TTL; expiry checks existence first, so racing an explicit dismiss is a safe
// double-remove no-op.
type Notices struct {
	mu    sync.Mutex
	items []Notice
	ttl   time.Duration
	limit int
}

func NewNotices(ttl time.Duration, limit int) *Notices {
	return &Notices{ttl: ttl, limit: limit}
}

// Push enqueues a notice and schedules its expiry. The oldest notice is
// dropped when the queue is full.
func (n *Notices) Push(kind, message string) Notice {
	n.mu.Lock()
	defer n.mu.Unlock()

	notice := Notice{ID: core.NextID(), Kind: kind, Message: message}
	n.items = append(n.items, notice)
	if len(n.items) > n.limit {
		n.items = n.items[len(n.items)-n.limit:]
	}

	if n.ttl > 0 {
		time.AfterFunc(n.ttl, func() { n.Dismiss(notice.ID) })
	}
	return notice
}

// Dismiss removes a notice by ID. Unknown IDs are a no-op.
func (n *Notices) Dismiss(id int64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, notice := range n.items {
		if notice.ID == id {
			n.items = append(n.items[:i], n.items[i+1:]...)
			return true
		}
	}
	return false
}

// Active returns the current notices, oldest first.
func (n *Notices) Active() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notice, len(n.items))
	copy(out, n.items)
	return out
}
