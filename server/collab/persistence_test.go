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
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formsync/formsync/api/types"
	"github.com/formsync/formsync/server/backend/database"
	"github.com/formsync/formsync/server/collab"
)

var errUnavailable = errors.New("database unavailable")

// flakyDB fails the selected writes of the wrapped database on demand.
type flakyDB struct {
	database.Database

	failUpdate atomic.Bool
	failAppend atomic.Bool
}

func (d *flakyDB) UpdateSession(ctx context.Context, session *types.Session) error {
	if d.failUpdate.Load() {
		return errUnavailable
	}
	return d.Database.UpdateSession(ctx, session)
}

func (d *flakyDB) AppendChange(ctx context.Context, session *types.Session, change *types.Change) error {
	if d.failAppend.Load() {
		return errUnavailable
	}
	return d.Database.AppendChange(ctx, session, change)
}

func newFlakyFixture(t *testing.T) (*fixture, *flakyDB) {
	clock := newFakeClock()
	be := newTestBackend(t, newBackendConf())
	db := &flakyDB{Database: be.DB}
	be.DB = db

	coord, err := collab.New(be, collab.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, coord.Close())
	})

	ctx := context.Background()
	session, err := coord.CreateSession(ctx, "doc-1", "petition", descriptor("Alice", types.RolePetitioner))
	require.NoError(t, err)
	roster, err := coord.Collaborators(ctx, session.ID)
	require.NoError(t, err)
	f := &fixture{coord: coord, clock: clock, session: session, creator: roster[0]}
	f.attorney, err = coord.AddCollaborator(ctx, session.ID, descriptor("Bob", types.RoleAttorney))
	require.NoError(t, err)

	return f, db
}

func TestFailedWrites(t *testing.T) {
	ctx := context.Background()

	t.Run("failed invite leaves no collaborator test", func(t *testing.T) {
		f, db := newFlakyFixture(t)
		sub := f.subscribe(t, f.creator.ID)

		db.failUpdate.Store(true)
		_, err := f.coord.AddCollaborator(ctx, f.session.ID, descriptor("Carol", types.RoleRespondent))
		assert.ErrorIs(t, err, errUnavailable)
		assertNoEvent(t, sub)

		roster, err := f.coord.Collaborators(ctx, f.session.ID)
		require.NoError(t, err)
		assert.Len(t, roster, 2)
		stored, err := db.FindCollaborators(ctx, f.session.ID)
		require.NoError(t, err)
		assert.Len(t, stored, 2)

		db.failUpdate.Store(false)
		carol, err := f.coord.AddCollaborator(ctx, f.session.ID, descriptor("Carol", types.RoleRespondent))
		require.NoError(t, err)
		assert.Equal(t, 2, carol.JoinOrder)
		assert.Equal(t, types.ColorOf(2), carol.Color)
	})

	t.Run("failed comment append leaves no comment test", func(t *testing.T) {
		f, db := newFlakyFixture(t)
		sub := f.subscribe(t, f.creator.ID)

		db.failAppend.Store(true)
		_, err := f.coord.AddComment(ctx, f.session.ID, f.attorney.ID, "check this", "income")
		assert.ErrorIs(t, err, errUnavailable)
		assertNoEvent(t, sub)

		comments, err := f.coord.Comments(ctx, f.session.ID)
		require.NoError(t, err)
		assert.Empty(t, comments)
		stored, err := db.FindComments(ctx, f.session.ID)
		require.NoError(t, err)
		assert.Empty(t, stored)

		session, err := f.coord.Session(ctx, f.session.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), session.Version)

		db.failAppend.Store(false)
		comment, err := f.coord.AddComment(ctx, f.session.ID, f.attorney.ID, "check this", "income")
		require.NoError(t, err)
		comments, err = f.coord.Comments(ctx, f.session.ID)
		require.NoError(t, err)
		require.Len(t, comments, 1)
		assert.Equal(t, comment.ID, comments[0].ID)

		changes, err := f.coord.Changes(ctx, f.session.ID, 0)
		require.NoError(t, err)
		require.Len(t, changes, 1)
		assert.Equal(t, int64(1), changes[0].Seq)
	})
}
