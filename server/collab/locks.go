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

package collab

import (
	"context"
	"fmt"

	"github.com/formsync/formsync/api/types"
	"github.com/formsync/formsync/api/types/events"
	"github.com/formsync/formsync/internal/validation"
	"github.com/formsync/formsync/server/backend/locks"
)

// LockField acquires the advisory lock of the field. It reports false with
// the holder's lock when another collaborator holds it. Acquiring a lock
// already held by the caller refreshes its expiry.
func (c *Coordinator) LockField(
	ctx context.Context,
	sessionID, collaboratorID types.ID,
	fieldName string,
) (*types.FieldLock, bool, error) {
	if err := validateFieldName(fieldName); err != nil {
		return nil, false, err
	}

	var lock *types.FieldLock
	var granted bool
	if err := c.do(ctx, sessionID, "lock-field", func(ctx context.Context, a *actor) error {
		collaborator, _, err := a.collaborator(collaboratorID)
		if err != nil {
			return err
		}

		var outcome locks.Outcome
		lock, outcome = a.locks.Acquire(locks.Holder{
			ID:   collaborator.ID,
			Name: collaborator.Name,
		}, fieldName, a.c.now())
		granted = outcome.Granted()
		a.c.be.Metrics.AddLockRequest(outcome.String())

		if outcome == locks.Acquired {
			a.publish(ctx, events.Event{
				Type:      events.FieldLocked,
				Actor:     collaboratorID,
				FieldName: fieldName,
				Lock:      lock.DeepCopy(),
			})
		}
		return nil
	}); err != nil {
		return nil, false, err
	}

	return lock, granted, nil
}

// UnlockField releases the lock of the field if the caller holds it.
func (c *Coordinator) UnlockField(
	ctx context.Context,
	sessionID, collaboratorID types.ID,
	fieldName string,
) (bool, error) {
	if err := validateFieldName(fieldName); err != nil {
		return false, err
	}

	var released bool
	if err := c.do(ctx, sessionID, "unlock-field", func(ctx context.Context, a *actor) error {
		lock, ok := a.locks.Release(collaboratorID, fieldName, a.c.now())
		if !ok {
			return nil
		}

		released = true
		a.publishUnlock(ctx, lock, events.ReasonReleased)
		return nil
	}); err != nil {
		return false, err
	}

	return released, nil
}

// IsFieldLocked returns the live lock of the field, if any.
func (c *Coordinator) IsFieldLocked(
	ctx context.Context,
	sessionID types.ID,
	fieldName string,
) (*types.FieldLock, bool, error) {
	if err := validateFieldName(fieldName); err != nil {
		return nil, false, err
	}

	var lock *types.FieldLock
	var locked bool
	if err := c.do(ctx, sessionID, "is-field-locked", func(_ context.Context, a *actor) error {
		lock, locked = a.locks.Get(fieldName, a.c.now())
		return nil
	}); err != nil {
		return nil, false, err
	}

	return lock, locked, nil
}

// Locks returns the lock table of the session sorted by field name.
func (c *Coordinator) Locks(ctx context.Context, sessionID types.ID) ([]*types.FieldLock, error) {
	var table []*types.FieldLock
	if err := c.do(ctx, sessionID, "locks", func(_ context.Context, a *actor) error {
		table = a.locks.List(a.c.now())
		return nil
	}); err != nil {
		return nil, err
	}

	return table, nil
}

// expireLocks releases the locks that timed out, each exactly once.
func (a *actor) expireLocks(ctx context.Context) {
	now := a.c.now()
	if next, ok := a.locks.NextExpiry(); !ok || now.Before(next) {
		return
	}

	for _, lock := range a.locks.Expire(now) {
		a.publishUnlock(ctx, lock, events.ReasonExpired)
	}
}

// releaseLocksOf releases every lock held by the collaborator.
func (a *actor) releaseLocksOf(ctx context.Context, collaboratorID types.ID) {
	for _, lock := range a.locks.ReleaseAll(collaboratorID) {
		a.publishUnlock(ctx, lock, events.ReasonLeft)
	}
}

func (a *actor) publishUnlock(ctx context.Context, lock *types.FieldLock, reason string) {
	a.c.be.Metrics.AddUnlock(reason)
	a.publish(ctx, events.Event{
		Type:      events.FieldUnlocked,
		Actor:     lock.HolderID,
		FieldName: lock.FieldName,
		Reason:    reason,
		Lock:      lock,
	})
}

func validateFieldName(fieldName string) error {
	if err := validation.ValidateValue(fieldName, "required,field_name"); err != nil {
		return fmt.Errorf("%w: field name %q: %w", ErrInvalidArgument, fieldName, err)
	}
	return nil
}
