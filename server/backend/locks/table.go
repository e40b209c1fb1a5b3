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

// Package locks provides the advisory field lock table of a session.
//
// A Table is not safe for concurrent use. It is owned by the session actor,
// which serializes every call and reaps expired locks with Expire before
// running a command.
package locks

import (
	"sort"
	"time"

	"github.com/formsync/formsync/api/types"
)

// Outcome is the result of an acquisition attempt.
type Outcome int

const (
	// Denied means another collaborator holds a live lock on the field.
	Denied Outcome = iota

	// Acquired means the caller obtained a new lock.
	Acquired

	// Refreshed means the caller already held the lock and its expiry was
	// pushed back.
	Refreshed
)

// Granted reports whether the caller holds the lock after the attempt.
func (o Outcome) Granted() bool {
	return o == Acquired || o == Refreshed
}

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case Acquired:
		return "acquired"
	case Refreshed:
		return "refreshed"
	}
	return "denied"
}

// Holder identifies the collaborator acquiring a lock.
type Holder struct {
	ID   types.ID
	Name string
}

// Table is the lock table of one session.
type Table struct {
	sessionID types.ID
	timeout   time.Duration
	locks     map[string]*types.FieldLock
}

// NewTable creates a lock table whose locks live for the given timeout.
func NewTable(sessionID types.ID, timeout time.Duration) *Table {
	return &Table{
		sessionID: sessionID,
		timeout:   timeout,
		locks:     make(map[string]*types.FieldLock),
	}
}

// Acquire tries to lock the field for the holder. It returns the lock that
// is live after the attempt: the caller's on success, the other holder's
// when denied.
func (t *Table) Acquire(holder Holder, fieldName string, now time.Time) (*types.FieldLock, Outcome) {
	if existing, ok := t.live(fieldName, now); ok {
		if existing.HolderID != holder.ID {
			return existing.DeepCopy(), Denied
		}

		existing.ExpiresAt = now.Add(t.timeout)
		return existing.DeepCopy(), Refreshed
	}

	lock := &types.FieldLock{
		SessionID:  t.sessionID,
		FieldName:  fieldName,
		HolderID:   holder.ID,
		HolderName: holder.Name,
		AcquiredAt: now,
		ExpiresAt:  now.Add(t.timeout),
	}
	t.locks[fieldName] = lock
	return lock.DeepCopy(), Acquired
}

// Release releases the field if the holder holds it. It returns the released
// lock, or false when the holder did not hold a live lock on it.
func (t *Table) Release(holderID types.ID, fieldName string, now time.Time) (*types.FieldLock, bool) {
	existing, ok := t.live(fieldName, now)
	if !ok || existing.HolderID != holderID {
		return nil, false
	}

	delete(t.locks, fieldName)
	return existing, true
}

// ReleaseAll releases every lock of the holder, sorted by field name.
func (t *Table) ReleaseAll(holderID types.ID) []*types.FieldLock {
	var released []*types.FieldLock
	for fieldName, lock := range t.locks {
		if lock.HolderID == holderID {
			released = append(released, lock)
			delete(t.locks, fieldName)
		}
	}

	sortByField(released)
	return released
}

// Expire removes every lock that is expired at the given time and returns
// them sorted by field name. Each lock is returned by exactly one call.
func (t *Table) Expire(now time.Time) []*types.FieldLock {
	var expired []*types.FieldLock
	for fieldName, lock := range t.locks {
		if lock.IsExpired(now) {
			expired = append(expired, lock)
			delete(t.locks, fieldName)
		}
	}

	sortByField(expired)
	return expired
}

// Get returns the live lock of the field.
func (t *Table) Get(fieldName string, now time.Time) (*types.FieldLock, bool) {
	lock, ok := t.live(fieldName, now)
	if !ok {
		return nil, false
	}
	return lock.DeepCopy(), true
}

// List returns the live locks sorted by field name.
func (t *Table) List(now time.Time) []*types.FieldLock {
	locks := make([]*types.FieldLock, 0, len(t.locks))
	for _, lock := range t.locks {
		if !lock.IsExpired(now) {
			locks = append(locks, lock.DeepCopy())
		}
	}

	sortByField(locks)
	return locks
}

// NextExpiry returns the earliest expiry among the locks.
func (t *Table) NextExpiry() (time.Time, bool) {
	var next time.Time
	for _, lock := range t.locks {
		if next.IsZero() || lock.ExpiresAt.Before(next) {
			next = lock.ExpiresAt
		}
	}
	return next, !next.IsZero()
}

func (t *Table) live(fieldName string, now time.Time) (*types.FieldLock, bool) {
	lock, ok := t.locks[fieldName]
	if !ok || lock.IsExpired(now) {
		return nil, false
	}
	return lock, true
}

func sortByField(locks []*types.FieldLock) {
	sort.Slice(locks, func(i, j int) bool {
		return locks[i].FieldName < locks[j].FieldName
	})
}
