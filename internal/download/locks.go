package download

import (
	"context"
	"path/filepath"
	"sync"
)

// pathLocks hands out one writer slot per destination path.
type pathLocks struct {
	mu   sync.Mutex
	held map[string]*pathLock
}

type pathLock struct {
	slot chan struct{}
	refs int
}

func newPathLocks() *pathLocks {
	return &pathLocks{held: make(map[string]*pathLock)}
}

// lock blocks until path is free or ctx ends. The returned func releases it.
func (l *pathLocks) lock(ctx context.Context, path string) (func(), error) {
	key := filepath.Clean(path)

	l.mu.Lock()
	pl, ok := l.held[key]
	if !ok {
		pl = &pathLock{slot: make(chan struct{}, 1)}
		l.held[key] = pl
	}
	pl.refs++
	l.mu.Unlock()

	select {
	case pl.slot <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-pl.slot
				l.release(key, pl)
			})
		}, nil
	case <-ctx.Done():
		l.release(key, pl)
		return nil, ctx.Err()
	}
}

func (l *pathLocks) release(key string, pl *pathLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pl.refs--
	if pl.refs == 0 {
		delete(l.held, key)
	}
}
