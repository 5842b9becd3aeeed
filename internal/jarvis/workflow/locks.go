package workflow

import (
	"context"
	"sync"
)

// chatLocks serializes turns per chat. Entries are dropped once nobody holds
// or waits for them.
type chatLocks struct {
	mu    sync.Mutex
	locks map[uint]*chatLock
}

type chatLock struct {
	ch   chan struct{}
	refs int
}

func newChatLocks() *chatLocks {
	return &chatLocks{locks: make(map[uint]*chatLock)}
}

// Lock blocks until the chat is free or ctx is done. The returned func releases it.
func (l *chatLocks) Lock(ctx context.Context, chatID uint) (func(), error) {
	l.mu.Lock()
	cl, ok := l.locks[chatID]
	if !ok {
		cl = &chatLock{ch: make(chan struct{}, 1)}
		l.locks[chatID] = cl
	}
	cl.refs++
	l.mu.Unlock()

	select {
	case cl.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-cl.ch
				l.release(chatID, cl)
			})
		}, nil
	case <-ctx.Done():
		l.release(chatID, cl)
		return nil, ctx.Err()
	}
}

func (l *chatLocks) release(chatID uint, cl *chatLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cl.refs--
	if cl.refs == 0 {
		delete(l.locks, chatID)
	}
}

func (l *chatLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
