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

package locks_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formsync/formsync/api/types"
	"github.com/formsync/formsync/server/backend/locks"
)

func TestTable(t *testing.T) {
	sessionID := types.NewID()
	alice := locks.Holder{ID: types.NewID(), Name: "Alice"}
	bob := locks.Holder{ID: types.NewID(), Name: "Bob"}
	timeout := 5 * time.Minute
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("acquire and deny test", func(t *testing.T) {
		table := locks.NewTable(sessionID, timeout)

		lock, outcome := table.Acquire(alice, "petitioner.name", now)
		assert.Equal(t, locks.Acquired, outcome)
		assert.True(t, outcome.Granted())
		assert.Equal(t, alice.ID, lock.HolderID)
		assert.Equal(t, now.Add(timeout), lock.ExpiresAt)

		lock, outcome = table.Acquire(bob, "petitioner.name", now.Add(time.Second))
		assert.Equal(t, locks.Denied, outcome)
		assert.False(t, outcome.Granted())
		assert.Equal(t, alice.ID, lock.HolderID)
		assert.Equal(t, "Alice", lock.HolderName)
	})

	t.Run("reentrant acquire refreshes expiry test", func(t *testing.T) {
		table := locks.NewTable(sessionID, timeout)
		_, _ = table.Acquire(alice, "f", now)

		later := now.Add(4 * time.Minute)
		lock, outcome := table.Acquire(alice, "f", later)
		assert.Equal(t, locks.Refreshed, outcome)
		assert.Equal(t, now, lock.AcquiredAt)
		assert.Equal(t, later.Add(timeout), lock.ExpiresAt)

		_, ok := table.Get("f", now.Add(6*time.Minute))
		assert.True(t, ok)
	})

	t.Run("release only by holder test", func(t *testing.T) {
		table := locks.NewTable(sessionID, timeout)
		_, _ = table.Acquire(alice, "f", now)

		_, ok := table.Release(bob.ID, "f", now)
		assert.False(t, ok)
		_, ok = table.Get("f", now)
		assert.True(t, ok)

		released, ok := table.Release(alice.ID, "f", now)
		assert.True(t, ok)
		assert.Equal(t, "f", released.FieldName)

		_, ok = table.Release(alice.ID, "f", now)
		assert.False(t, ok)
	})

	t.Run("expired lock is free and reaped once test", func(t *testing.T) {
		table := locks.NewTable(sessionID, timeout)
		_, _ = table.Acquire(alice, "b", now)
		_, _ = table.Acquire(alice, "a", now)
		_, _ = table.Acquire(bob, "c", now.Add(time.Minute))

		expiry := now.Add(timeout)
		_, ok := table.Get("a", expiry)
		assert.False(t, ok)
		assert.Len(t, table.List(expiry), 1)

		next, ok := table.NextExpiry()
		require.True(t, ok)
		assert.Equal(t, expiry, next)

		expired := table.Expire(expiry)
		require.Len(t, expired, 2)
		assert.Equal(t, "a", expired[0].FieldName)
		assert.Equal(t, "b", expired[1].FieldName)
		assert.Empty(t, table.Expire(expiry))
		next, ok = table.NextExpiry()
		require.True(t, ok)
		assert.Equal(t, now.Add(time.Minute+timeout), next)

		_, outcome := table.Acquire(bob, "a", expiry)
		assert.Equal(t, locks.Acquired, outcome)
	})

	t.Run("release all test", func(t *testing.T) {
		table := locks.NewTable(sessionID, timeout)
		_, _ = table.Acquire(alice, "z", now)
		_, _ = table.Acquire(alice, "m", now)
		_, _ = table.Acquire(bob, "k", now)

		released := table.ReleaseAll(alice.ID)
		require.Len(t, released, 2)
		assert.Equal(t, "m", released[0].FieldName)
		assert.Equal(t, "z", released[1].FieldName)

		list := table.List(now)
		require.Len(t, list, 1)
		assert.Equal(t, bob.ID, list[0].HolderID)
	})

	t.Run("returned locks are copies test", func(t *testing.T) {
		table := locks.NewTable(sessionID, timeout)
		lock, _ := table.Acquire(alice, "f", now)
		lock.HolderID = bob.ID

		got, ok := table.Get("f", now)
		require.True(t, ok)
		assert.Equal(t, alice.ID, got.HolderID)
	})
}
