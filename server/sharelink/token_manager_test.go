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

package sharelink_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formsync/formsync/api/types"
	"github.com/formsync/formsync/server/sharelink"
)

func TestTokenManager(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sessionID := types.NewID()

	t.Run("empty secret test", func(t *testing.T) {
		_, err := sharelink.NewTokenManager(nil)
		assert.ErrorIs(t, err, sharelink.ErrEmptySecret)
	})

	t.Run("round trip test", func(t *testing.T) {
		manager, err := sharelink.NewTokenManager([]byte("secret"))
		require.NoError(t, err)

		token, err := manager.Generate(sessionID, now, now.Add(time.Hour))
		require.NoError(t, err)

		claims, err := manager.Verify(token, now.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, sessionID, claims.SessionID)
		assert.NotEmpty(t, claims.Id)

		other, err := manager.Generate(sessionID, now, now.Add(time.Hour))
		require.NoError(t, err)
		assert.NotEqual(t, token, other)
	})

	t.Run("expired token test", func(t *testing.T) {
		manager, err := sharelink.NewTokenManager([]byte("secret"))
		require.NoError(t, err)

		token, err := manager.Generate(sessionID, now, now.Add(time.Hour))
		require.NoError(t, err)

		_, err = manager.Verify(token, now.Add(time.Hour+time.Second))
		assert.ErrorIs(t, err, sharelink.ErrTokenExpired)
	})

	t.Run("wrong secret test", func(t *testing.T) {
		manager, err := sharelink.NewTokenManager([]byte("secret"))
		require.NoError(t, err)
		other, err := sharelink.NewTokenManager([]byte("another"))
		require.NoError(t, err)

		token, err := manager.Generate(sessionID, now, now.Add(time.Hour))
		require.NoError(t, err)

		_, err = other.Verify(token, now)
		assert.Error(t, err)

		_, err = manager.Verify("not-a-token", now)
		assert.Error(t, err)
	})
}
