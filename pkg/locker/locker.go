/*
 * Copyright 2026 The Formsync Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package locker provides mutexes keyed by name so that work on one key does not
hold up work on the others.

A lock entry is created on first Lock and removed on Unlock once nobody else
holds or waits for it, so the set of entries stays proportional to the keys
in use. Waiting honours the caller's context.
*/
package locker

import (
	"context"
	"errors"
	"sync"
)

// ErrNoSuchLock is returned when unlocking a key that is not locked.
var ErrNoSuchLock = errors.New("no such lock")

// Locker provides a locking mechanism based on the passed in key.
type Locker[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*entry
}

// entry is the lock of one key. The buffered channel holds a token while
// the lock is held, which lets waiters select on their context.
type entry struct {
	sem  chan struct{}
	refs int
}

// New creates a new Locker.
func New[K comparable]() *Locker[K] {
	return &Locker[K]{
		locks: make(map[K]*entry),
	}
}

// acquire returns the entry of the key with one more reference.
func (l *Locker[K]) acquire(key K) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.locks[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	return e
}

// release drops one reference and removes the entry once unused.
func (l *Locker[K]) release(key K, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// Lock locks the given key, waiting until it is free or ctx is done.
func (l *Locker[K]) Lock(ctx context.Context, key K) error {
	e := l.acquire(key)

	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.release(key, e)
		return ctx.Err()
	}
}

// Unlock unlocks the given key.
func (l *Locker[K]) Unlock(key K) error {
	l.mu.Lock()
	e, ok := l.locks[key]
	l.mu.Unlock()
	if !ok {
		return ErrNoSuchLock
	}

	select {
	case <-e.sem:
	default:
		return ErrNoSuchLock
	}

	l.release(key, e)
	return nil
}

// size returns the number of keys locked or waited for.
func (l *Locker[K]) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.locks)
}
