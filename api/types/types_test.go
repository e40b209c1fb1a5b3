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

package types_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formsync/formsync/api/types"
	"github.com/formsync/formsync/internal/validation"
)

func TestSessionStatus(t *testing.T) {
	assert.True(t, types.SessionDraft.CanTransitionTo(types.SessionInReview))
	assert.True(t, types.SessionDraft.CanTransitionTo(types.SessionApproved))
	assert.True(t, types.SessionInReview.CanTransitionTo(types.SessionApproved))
	assert.True(t, types.SessionApproved.CanTransitionTo(types.SessionSubmitted))

	assert.False(t, types.SessionApproved.CanTransitionTo(types.SessionApproved))
	assert.False(t, types.SessionSubmitted.CanTransitionTo(types.SessionDraft))
	assert.False(t, types.SessionInReview.CanTransitionTo(types.SessionDraft))
}

func TestSessionExpiry(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	session := &types.Session{CreatedAt: created}
	ttl := 30 * 24 * time.Hour

	assert.False(t, session.IsExpired(ttl, created.Add(ttl-time.Second)))
	assert.True(t, session.IsExpired(ttl, created.Add(ttl)))
}

func TestDefaultPermissions(t *testing.T) {
	tests := []struct {
		role     types.Role
		expected types.Permissions
	}{
		{types.RolePetitioner, types.Permissions{CanEdit: true, CanComment: true, CanShare: true}},
		{types.RoleRespondent, types.Permissions{CanComment: true}},
		{types.RoleAttorney, types.FullPermissions},
		{types.RoleHelper, types.Permissions{CanEdit: true, CanComment: true}},
		{types.Role("judge"), types.Permissions{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.expected, types.DefaultPermissions(tt.role))
		})
	}
}

func TestColorOf(t *testing.T) {
	assert.Equal(t, types.Palette[0], types.ColorOf(0))
	assert.Equal(t, types.Palette[3], types.ColorOf(3))
	assert.Equal(t, types.Palette[1], types.ColorOf(len(types.Palette)+1))
}

func TestCollaboratorDescriptor(t *testing.T) {
	t.Run("valid descriptor test", func(t *testing.T) {
		desc := &types.CollaboratorDescriptor{
			UserID: "u1",
			Name:   "Pat",
			Email:  "pat@example.com",
			Role:   types.RoleHelper,
		}
		assert.NoError(t, desc.Validate())
		assert.Equal(t, types.DefaultPermissions(types.RoleHelper), desc.EffectivePermissions())

		desc.Permissions = &types.Permissions{CanComment: true}
		assert.Equal(t, types.Permissions{CanComment: true}, desc.EffectivePermissions())
	})

	t.Run("invalid descriptor test", func(t *testing.T) {
		desc := &types.CollaboratorDescriptor{
			UserID: "u1",
			Name:   "Pat",
			Email:  "pat-at-example",
			Role:   types.Role("judge"),
		}
		err := desc.Validate()
		require.Error(t, err)

		structErr, ok := err.(*validation.StructError)
		require.True(t, ok)
		require.Len(t, structErr.Violations, 2)
		assert.Equal(t, "email", structErr.Violations[0].Tag)
		assert.Equal(t, "role", structErr.Violations[1].Tag)
	})
}

func TestDeepCopy(t *testing.T) {
	comment := &types.Comment{
		ID:      types.NewID(),
		Text:    "check the date",
		Replies: []types.Reply{{ID: types.NewID(), Text: "done"}},
	}
	clone := comment.DeepCopy()
	clone.Replies[0].Text = "changed"
	clone.Replies = append(clone.Replies, types.Reply{Text: "more"})

	assert.Equal(t, "done", comment.Replies[0].Text)
	assert.Len(t, comment.Replies, 1)

	var nilSession *types.Session
	assert.Nil(t, nilSession.DeepCopy())
}

func TestChangeKind(t *testing.T) {
	assert.True(t, types.ChangeEdit.IsFieldWrite())
	assert.True(t, types.ChangeMerged.IsFieldWrite())
	assert.False(t, types.ChangeComment.IsFieldWrite())
	assert.False(t, types.ChangeApproval.IsFieldWrite())
}

func TestFieldLockExpiry(t *testing.T) {
	now := time.Now()
	lock := &types.FieldLock{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, lock.IsExpired(now))
	assert.True(t, lock.IsExpired(now.Add(time.Minute)))
}
