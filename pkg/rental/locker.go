package rental

import (
	"context"
	"fmt"
	"sync"
)

// UnitLocker serializes mutations on a named resource.
// The returned unlock function is safe to call more than once.
type UnitLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// LocalLocker is an in-process UnitLocker keyed by resource name.
type LocalLocker struct {
	mutex sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	token      chan struct{}
	references int
}

// NewLocalLocker returns an empty LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*lockSlot)}
}

// Lock blocks until key is free or ctx is done.
func (locker *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	locker.mutex.Lock()
	slot, ok := locker.slots[key]
	if !ok {
		slot = &lockSlot{token: make(chan struct{}, 1)}
		locker.slots[key] = slot
	}
	slot.references++
	locker.mutex.Unlock()

	select {
	case slot.token <- struct{}{}:
	case <-ctx.Done():
		locker.release(key, slot)
		return nil, fmt.Errorf("lock %s: %w", key, ctx.Err())
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.token
			locker.release(key, slot)
		})
	}, nil
}

func (locker *LocalLocker) release(key string, slot *lockSlot) {
	locker.mutex.Lock()
	defer locker.mutex.Unlock()
	slot.references--
	if slot.references == 0 {
		delete(locker.slots, key)
	}
}
