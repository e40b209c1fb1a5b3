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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formsync/formsync/api/types"
	"github.com/formsync/formsync/api/types/events"
	"github.com/formsync/formsync/server/collab"
)

func TestPresence(t *testing.T) {
	ctx := context.Background()

	t.Run("join session test", func(t *testing.T) {
		f := newFixture(t)
		sub := f.subscribe(t, f.creator.ID)

		snapshot, err := f.coord.JoinSession(ctx, f.session.ID, f.attorney.ID)
		require.NoError(t, err)
		require.Len(t, snapshot, 1)
		assert.Equal(t, f.attorney.ID, snapshot[0].ID)
		assert.Equal(t, types.CollaboratorActive, snapshot[0].Status)
		assert.False(t, snapshot[0].LastActive.IsZero())

		event := nextEvent(t, sub)
		assert.Equal(t, events.UserJoined, event.Type)
		assert.Equal(t, f.attorney.ID, event.Actor)

		event = nextEvent(t, sub)
		assert.Equal(t, events.PresenceUpdate, event.Type)
		require.Len(t, event.Presence, 1)
		assert.Equal(t, int64(1), event.PresenceSeq)

		_, err = f.coord.JoinSession(ctx, f.session.ID, f.creator.ID)
		require.NoError(t, err)
		assert.Equal(t, events.UserJoined, nextEvent(t, sub).Type)
		event = nextEvent(t, sub)
		assert.Equal(t, events.PresenceUpdate, event.Type)
		assert.Equal(t, int64(2), event.PresenceSeq)

		presence, err := f.coord.Presence(ctx, f.session.ID)
		require.NoError(t, err)
		require.Len(t, presence, 2)
		assert.Equal(t, f.creator.ID, presence[0].ID)
		assert.Equal(t, f.attorney.ID, presence[1].ID)

		_, err = f.coord.JoinSession(ctx, f.session.ID, types.NewID())
		assert.ErrorIs(t, err, collab.ErrCollaboratorNotFound)
	})

	t.Run("leave session releases locks test", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.coord.JoinSession(ctx, f.session.ID, f.attorney.ID)
		require.NoError(t, err)
		for _, field := range []string{"income", "name"} {
			_, granted, err := f.coord.LockField(ctx, f.session.ID, f.attorney.ID, field)
			require.NoError(t, err)
			require.True(t, granted)
		}
		_, granted, err := f.coord.LockField(ctx, f.session.ID, f.helper.ID, "zip")
		require.NoError(t, err)
		require.True(t, granted)

		sub := f.subscribe(t, f.creator.ID)
		require.NoError(t, f.coord.LeaveSession(ctx, f.session.ID, f.attorney.ID))

		for _, field := range []string{"income", "name"} {
			event := nextEvent(t, sub)
			assert.Equal(t, events.FieldUnlocked, event.Type)
			assert.Equal(t, field, event.FieldName)
			assert.Equal(t, events.ReasonLeft, event.Reason)
		}
		assert.Equal(t, events.UserLeft, nextEvent(t, sub).Type)
		event := nextEvent(t, sub)
		assert.Equal(t, events.PresenceUpdate, event.Type)
		assert.Empty(t, event.Presence)

		table, err := f.coord.Locks(ctx, f.session.ID)
		require.NoError(t, err)
		require.Len(t, table, 1)
		assert.Equal(t, f.helper.ID, table[0].HolderID)

		roster, err := f.coord.Collaborators(ctx, f.session.ID)
		require.NoError(t, err)
		assert.Equal(t, types.CollaboratorInactive, roster[1].Status)

		presence, err := f.coord.Presence(ctx, f.session.ID)
		require.NoError(t, err)
		assert.Empty(t, presence)
	})

	t.Run("subscribe test", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.coord.Subscribe(ctx, f.session.ID, types.NewID())
		assert.ErrorIs(t, err, collab.ErrCollaboratorNotFound)

		_, err = f.coord.Subscribe(ctx, types.NewID(), f.creator.ID)
		assert.ErrorIs(t, err, collab.ErrSessionNotFound)

		sub := f.subscribe(t, f.attorney.ID)
		assert.Equal(t, f.attorney.ID, sub.Subscriber())

		require.NoError(t, f.coord.DeleteSession(ctx, f.session.ID, f.creator.ID))
		_, ok := <-sub.Events()
		assert.False(t, ok)
	})
}
