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

package collab_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formsync/formsync/api/types"
	"github.com/formsync/formsync/api/types/events"
	"github.com/formsync/formsync/server/collab"
)

func TestLockField(t *testing.T) {
	ctx := context.Background()

	t.Run("concurrent lock of one field grants one holder test", func(t *testing.T) {
		f := newFixture(t)

		const contenders = 16
		ids := make([]types.ID, 0, contenders)
		for i := 0; i < contenders; i++ {
			c, err := f.coord.AddCollaborator(ctx, f.session.ID, descriptor(fmt.Sprintf("Helper%d", i), types.RoleHelper))
			require.NoError(t, err)
			ids = append(ids, c.ID)
		}

		var granted int32
		holders := make([]types.ID, contenders)
		wg := sync.WaitGroup{}
		for i, id := range ids {
			wg.Add(1)
			go func(i int, id types.ID) {
				defer wg.Done()
				lock, ok, err := f.coord.LockField(ctx, f.session.ID, id, "income")
				if !assert.NoError(t, err) {
					return
				}
				if ok {
					atomic.AddInt32(&granted, 1)
				}
				holders[i] = lock.HolderID
			}(i, id)
		}
		wg.Wait()

		assert.Equal(t, int32(1), granted)
		lock, locked, err := f.coord.IsFieldLocked(ctx, f.session.ID, "income")
		require.NoError(t, err)
		require.True(t, locked)
		for _, holder := range holders {
			assert.Equal(t, lock.HolderID, holder)
		}
	})

	t.Run("lock contention test", func(t *testing.T) {
		f := newFixture(t)

		lock, granted, err := f.coord.LockField(ctx, f.session.ID, f.attorney.ID, "income")
		require.NoError(t, err)
		assert.True(t, granted)
		assert.Equal(t, f.attorney.ID, lock.HolderID)

		lock, granted, err = f.coord.LockField(ctx, f.session.ID, f.helper.ID, "income")
		require.NoError(t, err)
		assert.False(t, granted)
		assert.Equal(t, f.attorney.ID, lock.HolderID)
		assert.Equal(t, "Bob", lock.HolderName)

		released, err := f.coord.UnlockField(ctx, f.session.ID, f.attorney.ID, "income")
		require.NoError(t, err)
		assert.True(t, released)

		lock, granted, err = f.coord.LockField(ctx, f.session.ID, f.helper.ID, "income")
		require.NoError(t, err)
		assert.True(t, granted)
		assert.Equal(t, f.helper.ID, lock.HolderID)
	})

	t.Run("re-entrant lock refreshes expiry test", func(t *testing.T) {
		f := newFixture(t)

		first, granted, err := f.coord.LockField(ctx, f.session.ID, f.attorney.ID, "income")
		require.NoError(t, err)
		require.True(t, granted)

		f.clock.Advance(4 * time.Minute)
		second, granted, err := f.coord.LockField(ctx, f.session.ID, f.attorney.ID, "income")
		require.NoError(t, err)
		assert.True(t, granted)
		assert.Equal(t, first.AcquiredAt, second.AcquiredAt)
		assert.Equal(t, f.clock.Now().Add(5*time.Minute), second.ExpiresAt)

		f.clock.Advance(4 * time.Minute)
		lock, locked, err := f.coord.IsFieldLocked(ctx, f.session.ID, "income")
		require.NoError(t, err)
		assert.True(t, locked)
		assert.Equal(t, f.attorney.ID, lock.HolderID)
	})

	t.Run("unlock by non-holder test", func(t *testing.T) {
		f := newFixture(t)

		_, _, err := f.coord.LockField(ctx, f.session.ID, f.attorney.ID, "income")
		require.NoError(t, err)

		released, err := f.coord.UnlockField(ctx, f.session.ID, f.helper.ID, "income")
		require.NoError(t, err)
		assert.False(t, released)

		released, err = f.coord.UnlockField(ctx, f.session.ID, f.helper.ID, "unlocked")
		require.NoError(t, err)
		assert.False(t, released)

		_, locked, err := f.coord.IsFieldLocked(ctx, f.session.ID, "income")
		require.NoError(t, err)
		assert.True(t, locked)
	})

	t.Run("lock errors test", func(t *testing.T) {
		f := newFixture(t)

		_, _, err := f.coord.LockField(ctx, f.session.ID, types.NewID(), "income")
		assert.ErrorIs(t, err, collab.ErrCollaboratorNotFound)

		_, _, err = f.coord.LockField(ctx, types.NewID(), f.attorney.ID, "income")
		assert.ErrorIs(t, err, collab.ErrSessionNotFound)

		_, _, err = f.coord.LockField(ctx, f.session.ID, f.attorney.ID, "bad field!")
		assert.ErrorIs(t, err, collab.ErrInvalidArgument)

		_, _, err = f.coord.IsFieldLocked(ctx, f.session.ID, "")
		assert.ErrorIs(t, err, collab.ErrInvalidArgument)
	})

	t.Run("lock events test", func(t *testing.T) {
		f := newFixture(t)
		sub := f.subscribe(t, f.creator.ID)

		_, _, err := f.coord.LockField(ctx, f.session.ID, f.attorney.ID, "income")
		require.NoError(t, err)
		event := nextEvent(t, sub)
		assert.Equal(t, events.FieldLocked, event.Type)
		assert.Equal(t, f.session.ID, event.SessionID)
		assert.Equal(t, f.attorney.ID, event.Actor)
		assert.Equal(t, "income", event.Lock.FieldName)

		// refreshing and denied requests are silent
		_, _, err = f.coord.LockField(ctx, f.session.ID, f.attorney.ID, "income")
		require.NoError(t, err)
		_, _, err = f.coord.LockField(ctx, f.session.ID, f.helper.ID, "income")
		require.NoError(t, err)
		assertNoEvent(t, sub)

		_, err = f.coord.UnlockField(ctx, f.session.ID, f.attorney.ID, "income")
		require.NoError(t, err)
		event = nextEvent(t, sub)
		assert.Equal(t, events.FieldUnlocked, event.Type)
		assert.Equal(t, events.ReasonReleased, event.Reason)
	})

	t.Run("lock table test", func(t *testing.T) {
		f := newFixture(t)

		for _, field := range []string{"zip", "address.city", "income"} {
			_, granted, err := f.coord.LockField(ctx, f.session.ID, f.attorney.ID, field)
			require.NoError(t, err)
			require.True(t, granted)
		}

		table, err := f.coord.Locks(ctx, f.session.ID)
		require.NoError(t, err)
		require.Len(t, table, 3)
		assert.Equal(t, "address.city", table[0].FieldName)
		assert.Equal(t, "income", table[1].FieldName)
		assert.Equal(t, "zip", table[2].FieldName)
	})
}

func TestLockExpiry(t *testing.T) {
	ctx := context.Background()

	t.Run("expiry emits exactly one unlock event test", func(t *testing.T) {
		f := newFixture(t)
		sub := f.subscribe(t, f.creator.ID)

		_, _, err := f.coord.LockField(ctx, f.session.ID, f.attorney.ID, "income")
		require.NoError(t, err)
		assert.Equal(t, events.FieldLocked, nextEvent(t, sub).Type)

		f.clock.Advance(5 * time.Minute)

		_, locked, err := f.coord.IsFieldLocked(ctx, f.session.ID, "income")
		require.NoError(t, err)
		assert.False(t, locked)

		event := nextEvent(t, sub)
		assert.Equal(t, events.FieldUnlocked, event.Type)
		assert.Equal(t, events.ReasonExpired, event.Reason)
		assert.Equal(t, f.attorney.ID, event.Lock.HolderID)

		table, err := f.coord.Locks(ctx, f.session.ID)
		require.NoError(t, err)
		assert.Empty(t, table)

		released, err := f.coord.UnlockField(ctx, f.session.ID, f.attorney.ID, "income")
		require.NoError(t, err)
		assert.False(t, released)
		assertNoEvent(t, sub)

		_, granted, err := f.coord.LockField(ctx, f.session.ID, f.helper.ID, "income")
		require.NoError(t, err)
		assert.True(t, granted)
	})

	t.Run("expiry without commands test", func(t *testing.T) {
		conf := newBackendConf()
		conf.LockSweepInterval = "10ms"
		f := newFixtureWithConf(t, conf)
		sub := f.subscribe(t, f.creator.ID)

		_, _, err := f.coord.LockField(ctx, f.session.ID, f.attorney.ID, "income")
		require.NoError(t, err)
		assert.Equal(t, events.FieldLocked, nextEvent(t, sub).Type)

		f.clock.Advance(6 * time.Minute)

		event := nextEvent(t, sub)
		assert.Equal(t, events.FieldUnlocked, event.Type)
		assert.Equal(t, events.ReasonExpired, event.Reason)
		assertNoEvent(t, sub)
	})
}
