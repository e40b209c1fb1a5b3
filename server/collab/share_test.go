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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formsync/formsync/server/collab"
)

func TestShareLink(t *testing.T) {
	ctx := context.Background()

	t.Run("share link round trip test", func(t *testing.T) {
		f := newFixture(t)

		token, err := f.coord.CreateShareLink(ctx, f.session.ID, f.creator.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		session, err := f.coord.Session(ctx, f.session.ID)
		require.NoError(t, err)
		assert.Equal(t, token, session.ShareToken)
		assert.Equal(t, session.CreatedAt.Add(720*time.Hour), session.ShareExpiresAt)

		sessionID, err := f.coord.ResolveShareLink(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, f.session.ID, sessionID)
	})

	t.Run("share link permission test", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.coord.CreateShareLink(ctx, f.session.ID, f.respondent.ID)
		assert.ErrorIs(t, err, collab.ErrPermissionDenied)
	})

	t.Run("replaced share link test", func(t *testing.T) {
		f := newFixture(t)

		first, err := f.coord.CreateShareLink(ctx, f.session.ID, f.creator.ID)
		require.NoError(t, err)
		second, err := f.coord.CreateShareLink(ctx, f.session.ID, f.attorney.ID)
		require.NoError(t, err)

		_, err = f.coord.ResolveShareLink(ctx, first)
		assert.ErrorIs(t, err, collab.ErrInvalidShareLink)

		_, err = f.coord.ResolveShareLink(ctx, second)
		assert.NoError(t, err)

		_, err = f.coord.ResolveShareLink(ctx, "garbage")
		assert.ErrorIs(t, err, collab.ErrInvalidShareLink)
	})

	t.Run("share link expires with the session test", func(t *testing.T) {
		f := newFixture(t)

		token, err := f.coord.CreateShareLink(ctx, f.session.ID, f.creator.ID)
		require.NoError(t, err)

		f.clock.Advance(721 * time.Hour)
		_, err = f.coord.ResolveShareLink(ctx, token)
		assert.ErrorIs(t, err, collab.ErrInvalidShareLink)
	})
}
