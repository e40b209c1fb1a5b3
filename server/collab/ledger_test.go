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

	"github.com/formsync/formsync/api/types"
	"github.com/formsync/formsync/api/types/events"
	"github.com/formsync/formsync/server/collab"
)

func TestApplyChange(t *testing.T) {
	ctx := context.Background()

	t.Run("version increases by one per change test", func(t *testing.T) {
		f := newFixture(t)
		sub := f.subscribe(t, f.creator.ID)

		for i, value := range []string{"1000", "1200", "1300"} {
			change, err := f.coord.ApplyChange(ctx, collab.ChangeRequest{
				SessionID: f.session.ID,
				AuthorID:  f.attorney.ID,
				FieldName: "income",
				NewValue:  value,
				Note:      "from pay stub",
			})
			require.NoError(t, err)
			assert.Equal(t, int64(i+1), change.Seq)
			assert.Equal(t, types.ChangeEdit, change.Kind)

			session, err := f.coord.Session(ctx, f.session.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(i+1), session.Version)
			assert.Equal(t, change.CreatedAt, session.UpdatedAt)

			event := nextEvent(t, sub)
			assert.Equal(t, events.FieldChanged, event.Type)
			assert.Equal(t, value, event.Change.NewValue)
		}

		changes, err := f.coord.Changes(ctx, f.session.ID, 0)
		require.NoError(t, err)
		require.Len(t, changes, 3)
		for i := 1; i < len(changes); i++ {
			assert.True(t, changes[i].CreatedAt.After(changes[i-1].CreatedAt))
		}

		tail, err := f.coord.Changes(ctx, f.session.ID, 2)
		require.NoError(t, err)
		require.Len(t, tail, 2)
		assert.Equal(t, "1200", tail[0].NewValue)
	})

	t.Run("change without edit permission test", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.coord.ApplyChange(ctx, collab.ChangeRequest{
			SessionID: f.session.ID,
			AuthorID:  f.respondent.ID,
			FieldName: "income",
			NewValue:  "1000",
		})
		assert.ErrorIs(t, err, collab.ErrPermissionDenied)

		_, err = f.coord.ApplyChange(ctx, collab.ChangeRequest{
			SessionID: f.session.ID,
			AuthorID:  types.NewID(),
			FieldName: "income",
			NewValue:  "1000",
		})
		assert.ErrorIs(t, err, collab.ErrCollaboratorNotFound)

		_, err = f.coord.ApplyChange(ctx, collab.ChangeRequest{
			SessionID: f.session.ID,
			AuthorID:  f.attorney.ID,
			FieldName: "",
		})
		assert.ErrorIs(t, err, collab.ErrInvalidArgument)

		session, err := f.coord.Session(ctx, f.session.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), session.Version)
	})

	t.Run("locks are advisory test", func(t *testing.T) {
		f := newFixture(t)

		_, granted, err := f.coord.LockField(ctx, f.session.ID, f.attorney.ID, "income")
		require.NoError(t, err)
		require.True(t, granted)

		change, err := f.coord.ApplyChange(ctx, collab.ChangeRequest{
			SessionID: f.session.ID,
			AuthorID:  f.helper.ID,
			FieldName: "income",
			NewValue:  "900",
		})
		require.NoError(t, err)
		assert.Equal(t, f.helper.ID, change.AuthorID)
	})

	t.Run("timestamps are strictly increasing test", func(t *testing.T) {
		f := newFixture(t)

		first, err := f.coord.ApplyChange(ctx, collab.ChangeRequest{
			SessionID: f.session.ID, AuthorID: f.attorney.ID, FieldName: "a", NewValue: "1",
		})
		require.NoError(t, err)
		second, err := f.coord.ApplyChange(ctx, collab.ChangeRequest{
			SessionID: f.session.ID, AuthorID: f.attorney.ID, FieldName: "b", NewValue: "2",
		})
		require.NoError(t, err)

		assert.Equal(t, time.Millisecond, second.CreatedAt.Sub(first.CreatedAt))
	})
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("approve without permission test", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.coord.ApproveForm(ctx, f.session.ID, f.helper.ID)
		assert.ErrorIs(t, err, collab.ErrPermissionDenied)

		session, err := f.coord.Session(ctx, f.session.ID)
		require.NoError(t, err)
		assert.Equal(t, types.SessionDraft, session.Status)
		assert.Equal(t, int64(0), session.Version)
	})

	t.Run("approve and submit test", func(t *testing.T) {
		f := newFixture(t)
		sub := f.subscribe(t, f.creator.ID)

		session, err := f.coord.SubmitForReview(ctx, f.session.ID, f.helper.ID)
		require.NoError(t, err)
		assert.Equal(t, types.SessionInReview, session.Status)
		assert.Equal(t, events.StatusChanged, nextEvent(t, sub).Type)

		session, err = f.coord.ApproveForm(ctx, f.session.ID, f.attorney.ID)
		require.NoError(t, err)
		assert.Equal(t, types.SessionApproved, session.Status)
		assert.Equal(t, int64(2), session.Version)

		event := nextEvent(t, sub)
		assert.Equal(t, events.FormApproved, event.Type)
		assert.Equal(t, types.SessionApproved, event.Session.Status)
		assert.Equal(t, types.ChangeApproval, event.Change.Kind)
		assert.Equal(t, string(types.SessionInReview), event.Change.OldValue)
		assert.Equal(t, string(types.SessionApproved), event.Change.NewValue)

		_, err = f.coord.ApproveForm(ctx, f.session.ID, f.attorney.ID)
		assert.ErrorIs(t, err, collab.ErrInvalidTransition)

		_, err = f.coord.SubmitForm(ctx, f.session.ID, f.helper.ID)
		assert.ErrorIs(t, err, collab.ErrPermissionDenied)

		session, err = f.coord.SubmitForm(ctx, f.session.ID, f.creator.ID)
		require.NoError(t, err)
		assert.Equal(t, types.SessionSubmitted, session.Status)

		_, err = f.coord.SubmitForReview(ctx, f.session.ID, f.creator.ID)
		assert.ErrorIs(t, err, collab.ErrInvalidTransition)
	})

	t.Run("approve from draft test", func(t *testing.T) {
		f := newFixture(t)

		session, err := f.coord.ApproveForm(ctx, f.session.ID, f.creator.ID)
		require.NoError(t, err)
		assert.Equal(t, types.SessionApproved, session.Status)

		changes, err := f.coord.Changes(ctx, f.session.ID, 0)
		require.NoError(t, err)
		require.Len(t, changes, 1)
		assert.Equal(t, string(types.SessionDraft), changes[0].OldValue)
	})
}

func TestComments(t *testing.T) {
	ctx := context.Background()

	t.Run("add comment test", func(t *testing.T) {
		f := newFixture(t)
		sub := f.subscribe(t, f.creator.ID)

		comment, err := f.coord.AddComment(ctx, f.session.ID, f.respondent.ID, "Is this monthly?", "income")
		require.NoError(t, err)
		assert.Equal(t, "income", comment.FieldName)
		assert.False(t, comment.Resolved)

		event := nextEvent(t, sub)
		assert.Equal(t, events.CommentAdded, event.Type)
		assert.Equal(t, comment.ID, event.Comment.ID)

		changes, err := f.coord.Changes(ctx, f.session.ID, 0)
		require.NoError(t, err)
		require.Len(t, changes, 1)
		assert.Equal(t, types.ChangeComment, changes[0].Kind)

		general, err := f.coord.AddComment(ctx, f.session.ID, f.attorney.ID, "Looks good overall", "")
		require.NoError(t, err)
		assert.Empty(t, general.FieldName)

		comments, err := f.coord.Comments(ctx, f.session.ID)
		require.NoError(t, err)
		require.Len(t, comments, 2)
		assert.Equal(t, comment.ID, comments[0].ID)
	})

	t.Run("comment without permission test", func(t *testing.T) {
		f := newFixture(t)

		mute := descriptor("Erin", types.RoleHelper)
		mute.Permissions = &types.Permissions{}
		erin, err := f.coord.AddCollaborator(ctx, f.session.ID, mute)
		require.NoError(t, err)

		_, err = f.coord.AddComment(ctx, f.session.ID, erin.ID, "hello", "")
		assert.ErrorIs(t, err, collab.ErrPermissionDenied)

		_, err = f.coord.AddComment(ctx, f.session.ID, f.attorney.ID, "", "")
		assert.ErrorIs(t, err, collab.ErrInvalidArgument)
	})

	t.Run("reply and resolve test", func(t *testing.T) {
		f := newFixture(t)

		comment, err := f.coord.AddComment(ctx, f.session.ID, f.respondent.ID, "Is this monthly?", "income")
		require.NoError(t, err)

		replied, err := f.coord.ReplyToComment(ctx, f.session.ID, comment.ID, f.attorney.ID, "Yes")
		require.NoError(t, err)
		require.Len(t, replied.Replies, 1)
		assert.Equal(t, "Yes", replied.Replies[0].Text)

		sub := f.subscribe(t, f.creator.ID)
		resolved, err := f.coord.ResolveComment(ctx, f.session.ID, comment.ID, f.respondent.ID)
		require.NoError(t, err)
		assert.True(t, resolved.Resolved)
		assert.Equal(t, f.respondent.ID, resolved.ResolvedBy)
		assert.Equal(t, events.CommentResolved, nextEvent(t, sub).Type)

		again, err := f.coord.ResolveComment(ctx, f.session.ID, comment.ID, f.attorney.ID)
		require.NoError(t, err)
		assert.Equal(t, resolved, again)
		assertNoEvent(t, sub)

		_, err = f.coord.ResolveComment(ctx, f.session.ID, types.NewID(), f.attorney.ID)
		assert.ErrorIs(t, err, collab.ErrCommentNotFound)

		_, err = f.coord.ResolveComment(ctx, f.session.ID, comment.ID, types.NewID())
		assert.ErrorIs(t, err, collab.ErrCollaboratorNotFound)

		_, err = f.coord.ReplyToComment(ctx, f.session.ID, types.NewID(), f.attorney.ID, "Yes")
		assert.ErrorIs(t, err, collab.ErrCommentNotFound)
	})
}
