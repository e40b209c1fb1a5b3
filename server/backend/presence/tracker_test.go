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

package presence_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/formsync/formsync/api/types"
	"github.com/formsync/formsync/server/backend/presence"
)

func TestTracker(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	idA := types.ID("000000000000000000000001")
	idB := types.ID("000000000000000000000002")

	t.Run("join and leave test", func(t *testing.T) {
		tracker := presence.NewTracker()
		assert.True(t, tracker.Join(idA, now))
		assert.False(t, tracker.Join(idA, now.Add(time.Minute)))
		assert.True(t, tracker.Contains(idA))
		assert.False(t, tracker.Contains(idB))

		assert.True(t, tracker.Join(idB, now))
		assert.True(t, tracker.Leave(idA))
		assert.False(t, tracker.Leave(idA))
		assert.False(t, tracker.Contains(idA))
		assert.True(t, tracker.Contains(idB))
	})

	t.Run("sequence is monotonic test", func(t *testing.T) {
		tracker := presence.NewTracker()
		assert.Equal(t, int64(1), tracker.NextSeq())
		assert.Equal(t, int64(2), tracker.NextSeq())
	})
}
