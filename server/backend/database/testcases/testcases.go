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

// Package testcases contains testcases for database. It is used by database
// implementations to test their own implementations with the same testcases.
package testcases

import (
	"context"
	"testing"
	gotime "time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formsync/formsync/api/types"
	"github.com/formsync/formsync/server/backend/database"
)

func newSession(createdAt gotime.Time) *types.Session {
	return &types.Session{
		ID:           types.NewID(),
		DocumentID:   "doc-1",
		DocumentType: "petition",
		CreatorID:    types.NewID(),
		Status:       types.SessionDraft,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

// RunSessionTest runs the session CRUD test for the given db.
func RunSessionTest(t *testing.T, db database.Database) {
	t.Run("session crud test", func(t *testing.T) {
		ctx := context.Background()
		now := gotime.Now().UTC().Truncate(gotime.Millisecond)

		_, err := db.FindSession(ctx, types.NewID())
		assert.ErrorIs(t, err, database.ErrSessionNotFound)

		session := newSession(now)
		require.NoError(t, db.CreateSession(ctx, session))
		assert.ErrorIs(t, db.CreateSession(ctx, session), database.ErrSessionAlreadyExists)

		found, err := db.FindSession(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, session.DocumentID, found.DocumentID)
		assert.Equal(t, types.SessionDraft, found.Status)

		found.Status = types.SessionInReview
		require.NoError(t, db.UpdateSession(ctx, found))

		updated, err := db.FindSession(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, types.SessionInReview, updated.Status)

		missing := newSession(now)
		assert.ErrorIs(t, db.UpdateSession(ctx, missing), database.ErrSessionNotFound)
	})

	t.Run("returned sessions are copies test", func(t *testing.T) {
		ctx := context.Background()
		session := newSession(gotime.Now().UTC())
		require.NoError(t, db.CreateSession(ctx, session))

		found, err := db.FindSession(ctx, session.ID)
		require.NoError(t, err)
		found.Version = 42

		again, err := db.FindSession(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), again.Version)
	})
}

// RunFindSessionsCreatedBeforeTest runs the expiry candidate test for the given db.
func RunFindSessionsCreatedBeforeTest(t *testing.T, db database.Database) {
	t.Run("find sessions created before test", func(t *testing.T) {
		ctx := context.Background()
		base := gotime.Date(2001, 1, 1, 0, 0, 0, 0, gotime.UTC)

		older := newSession(base)
		old := newSession(base.Add(gotime.Hour))
		recent := newSession(base.Add(48 * gotime.Hour))
		for _, s := range []*types.Session{recent, older, old} {
			require.NoError(t, db.CreateSession(ctx, s))
		}

		sessions, err := db.FindSessionsCreatedBefore(ctx, base.Add(gotime.Hour))
		require.NoError(t, err)
		require.Len(t, sessions, 2)
		assert.Equal(t, older.ID, sessions[0].ID)
		assert.Equal(t, old.ID, sessions[1].ID)

		for _, s := range []*types.Session{recent, older, old} {
			require.NoError(t, db.DeleteSession(ctx, s.ID))
		}
	})
}

// RunCollaboratorTest runs the roster test for the given db.
func RunCollaboratorTest(t *testing.T, db database.Database) {
	t.Run("collaborator test", func(t *testing.T) {
		ctx := context.Background()
		now := gotime.Now().UTC()
		session := newSession(now)
		require.NoError(t, db.CreateSession(ctx, session))

		second := &types.Collaborator{
			ID: types.NewID(), SessionID: session.ID, UserID: "u2", Name: "B",
			Role: types.RoleHelper, JoinOrder: 1, Color: types.ColorOf(1), InvitedAt: now,
		}
		first := &types.Collaborator{
			ID: session.CreatorID, SessionID: session.ID, UserID: "u1", Name: "A",
			Role: types.RolePetitioner, JoinOrder: 0, Color: types.ColorOf(0), InvitedAt: now,
		}
		require.NoError(t, db.UpsertCollaborator(ctx, second))
		require.NoError(t, db.UpsertCollaborator(ctx, first))

		roster, err := db.FindCollaborators(ctx, session.ID)
		require.NoError(t, err)
		require.Len(t, roster, 2)
		assert.Equal(t, first.ID, roster[0].ID)
		assert.Equal(t, second.ID, roster[1].ID)

		second.Status = types.CollaboratorActive
		require.NoError(t, db.UpsertCollaborator(ctx, second))
		roster, err = db.FindCollaborators(ctx, session.ID)
		require.NoError(t, err)
		require.Len(t, roster, 2)
		assert.Equal(t, types.CollaboratorActive, roster[1].Status)

		require.NoError(t, db.DeleteCollaborator(ctx, session.ID, second.ID))
		assert.ErrorIs(t, db.DeleteCollaborator(ctx, session.ID, second.ID), database.ErrCollaboratorNotFound)

		roster, err = db.FindCollaborators(ctx, session.ID)
		require.NoError(t, err)
		assert.Len(t, roster, 1)

		orphan := &types.Collaborator{ID: types.NewID(), SessionID: types.NewID()}
		assert.ErrorIs(t, db.UpsertCollaborator(ctx, orphan), database.ErrSessionNotFound)
	})
}

// RunChangeTest runs the ledger test for the given db.
func RunChangeTest(t *testing.T, db database.Database) {
	t.Run("append and find changes test", func(t *testing.T) {
		ctx := context.Background()
		now := gotime.Now().UTC().Truncate(gotime.Millisecond)
		session := newSession(now)
		require.NoError(t, db.CreateSession(ctx, session))

		for i := 1; i <= 3; i++ {
			session.Version = int64(i)
			change := &types.Change{
				ID:        types.NewID(),
				SessionID: session.ID,
				Seq:       int64(i),
				Kind:      types.ChangeEdit,
				FieldName: "petitioner.name",
				NewValue:  string(rune('a' + i - 1)),
				AuthorID:  session.CreatorID,
				CreatedAt: now.Add(gotime.Duration(i) * gotime.Millisecond),
			}
			require.NoError(t, db.AppendChange(ctx, session, change))
		}

		stored, err := db.FindSession(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), stored.Version)

		changes, err := db.FindChanges(ctx, session.ID, 0)
		require.NoError(t, err)
		require.Len(t, changes, 3)
		for i, change := range changes {
			assert.Equal(t, int64(i+1), change.Seq)
		}

		changes, err = db.FindChanges(ctx, session.ID, 2)
		require.NoError(t, err)
		require.Len(t, changes, 2)
		assert.Equal(t, "b", changes[0].NewValue)

		duplicate := &types.Change{ID: types.NewID(), SessionID: session.ID, Seq: 3, Kind: types.ChangeEdit}
		assert.ErrorIs(t, db.AppendChange(ctx, session, duplicate), database.ErrConflictOnAppend)
	})
	t.Run("failed append leaves no change test", func(t *testing.T) {
		ctx := context.Background()
		now := gotime.Now().UTC().Truncate(gotime.Millisecond)
		session := newSession(now)
		session.Version = 1
		change := &types.Change{
			ID:        types.NewID(),
			SessionID: session.ID,
			Seq:       1,
			Kind:      types.ChangeEdit,
			FieldName: "income",
			NewValue:  "1000",
			AuthorID:  session.CreatorID,
			CreatedAt: now,
		}

		assert.ErrorIs(t, db.AppendChange(ctx, session, change), database.ErrSessionNotFound)
		changes, err := db.FindChanges(ctx, session.ID, 0)
		require.NoError(t, err)
		assert.Empty(t, changes)

		session.Version = 0
		require.NoError(t, db.CreateSession(ctx, session))
		session.Version = 1
		require.NoError(t, db.AppendChange(ctx, session, change))

		changes, err = db.FindChanges(ctx, session.ID, 0)
		require.NoError(t, err)
		require.Len(t, changes, 1)
		assert.Equal(t, int64(1), changes[0].Seq)
	})
}

// RunCommentTest runs the comment test for the given db.
func RunCommentTest(t *testing.T, db database.Database) {
	t.Run("comment test", func(t *testing.T) {
		ctx := context.Background()
		now := gotime.Now().UTC().Truncate(gotime.Millisecond)
		session := newSession(now)
		require.NoError(t, db.CreateSession(ctx, session))

		second := &types.Comment{ID: types.NewID(), SessionID: session.ID, Text: "second", CreatedAt: now.Add(gotime.Second)}
		first := &types.Comment{ID: types.NewID(), SessionID: session.ID, Text: "first", CreatedAt: now}
		require.NoError(t, db.UpsertComment(ctx, second))
		require.NoError(t, db.UpsertComment(ctx, first))

		first.Resolved = true
		first.Replies = append(first.Replies, types.Reply{ID: types.NewID(), Text: "ok", CreatedAt: now})
		require.NoError(t, db.UpsertComment(ctx, first))

		comments, err := db.FindComments(ctx, session.ID)
		require.NoError(t, err)
		require.Len(t, comments, 2)
		assert.Equal(t, "first", comments[0].Text)
		assert.True(t, comments[0].Resolved)
		assert.Len(t, comments[0].Replies, 1)
		assert.Equal(t, "second", comments[1].Text)

		assert.ErrorIs(t, db.DeleteComment(ctx, types.NewID(), first.ID), database.ErrCommentNotFound)
		require.NoError(t, db.DeleteComment(ctx, session.ID, first.ID))
		assert.ErrorIs(t, db.DeleteComment(ctx, session.ID, first.ID), database.ErrCommentNotFound)

		comments, err = db.FindComments(ctx, session.ID)
		require.NoError(t, err)
		require.Len(t, comments, 1)
		assert.Equal(t, "second", comments[0].Text)
	})
}

// RunDeleteSessionTest runs the cascade delete test for the given db.
func RunDeleteSessionTest(t *testing.T, db database.Database) {
	t.Run("delete session cascades test", func(t *testing.T) {
		ctx := context.Background()
		now := gotime.Now().UTC()
		session := newSession(now)
		require.NoError(t, db.CreateSession(ctx, session))
		require.NoError(t, db.UpsertCollaborator(ctx, &types.Collaborator{
			ID: session.CreatorID, SessionID: session.ID, UserID: "u1", Name: "A",
		}))
		require.NoError(t, db.UpsertComment(ctx, &types.Comment{
			ID: types.NewID(), SessionID: session.ID, Text: "hi", CreatedAt: now,
		}))
		session.Version = 1
		require.NoError(t, db.AppendChange(ctx, session, &types.Change{
			ID: types.NewID(), SessionID: session.ID, Seq: 1, Kind: types.ChangeComment, CreatedAt: now,
		}))

		require.NoError(t, db.DeleteSession(ctx, session.ID))
		assert.ErrorIs(t, db.DeleteSession(ctx, session.ID), database.ErrSessionNotFound)

		_, err := db.FindSession(ctx, session.ID)
		assert.ErrorIs(t, err, database.ErrSessionNotFound)

		roster, err := db.FindCollaborators(ctx, session.ID)
		require.NoError(t, err)
		assert.Empty(t, roster)

		changes, err := db.FindChanges(ctx, session.ID, 0)
		require.NoError(t, err)
		assert.Empty(t, changes)

		comments, err := db.FindComments(ctx, session.ID)
		require.NoError(t, err)
		assert.Empty(t, comments)
	})
}
