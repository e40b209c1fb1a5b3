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

package housekeeping_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formsync/formsync/server/backend/housekeeping"
)

type countingExpirer struct {
	calls atomic.Int32
	err   error
}

func (e *countingExpirer) ExpireSessions(_ context.Context, _ time.Time) (int, error) {
	e.calls.Add(1)
	return 1, e.err
}

func TestHousekeeping(t *testing.T) {
	t.Run("runs periodically until stopped test", func(t *testing.T) {
		expirer := &countingExpirer{}
		h, err := housekeeping.Start(&housekeeping.Config{Interval: "10ms"}, expirer)
		require.NoError(t, err)

		assert.Eventually(t, func() bool {
			return expirer.calls.Load() >= 2
		}, time.Second, 5*time.Millisecond)

		require.NoError(t, h.Stop())
		stopped := expirer.calls.Load()
		time.Sleep(30 * time.Millisecond)
		assert.Equal(t, stopped, expirer.calls.Load())
	})

	t.Run("keeps running after a failed pass test", func(t *testing.T) {
		expirer := &countingExpirer{err: errors.New("database unavailable")}
		h, err := housekeeping.Start(&housekeeping.Config{Interval: "10ms"}, expirer)
		require.NoError(t, err)
		defer func() {
			assert.NoError(t, h.Stop())
		}()

		assert.Eventually(t, func() bool {
			return expirer.calls.Load() >= 2
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("invalid interval test", func(t *testing.T) {
		_, err := housekeeping.New(&housekeeping.Config{Interval: "soon"}, &countingExpirer{})
		assert.Error(t, err)
	})
}
