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

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestID(t *testing.T) {
	t.Run("new id test", func(t *testing.T) {
		id := NewID()
		assert.Len(t, id.String(), 24)
		assert.NoError(t, id.Validate())
		assert.NotEqual(t, id, NewID())
	})

	t.Run("invalid id test", func(t *testing.T) {
		assert.ErrorIs(t, ID("not-hex").Validate(), ErrInvalidID)
		assert.ErrorIs(t, ID("abcd").Validate(), ErrInvalidID)
	})

	t.Run("join id test", func(t *testing.T) {
		ids := []ID{ID("id1"), ID("id2"), ID("id3")}
		assert.Equal(t, "id1,id2,id3", JoinIDs(ids))
	})
}
