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

package collab

import (
	"context"

	"github.com/formsync/formsync/api/types"
	"github.com/formsync/formsync/api/types/events"
	"github.com/formsync/formsync/server/backend/pubsub"
)

// JoinSession marks the collaborator active and broadcasts the presence
// snapshot, which it also returns.
func (c *Coordinator) JoinSession(ctx context.Context, sessionID, collaboratorID types.ID) ([]*types.Collaborator, error) {
	var snapshot []*types.Collaborator
	if err := c.do(ctx, sessionID, "join-session", func(ctx context.Context, a *actor) error {
		collaborator, index, err := a.collaborator(collaboratorID)
		if err != nil {
			return err
		}

		at := a.stamp()
		next := collaborator.DeepCopy()
		next.Status = types.CollaboratorActive
		next.LastActive = at
		if err := a.c.be.DB.UpsertCollaborator(ctx, next); err != nil {
			return err
		}

		a.roster[index] = next
		a.presence.Join(collaboratorID, at)

		a.publish(ctx, events.Event{
			Type:         events.UserJoined,
			Actor:        collaboratorID,
			Collaborator: next.DeepCopy(),
		})
		snapshot = a.publishPresence(ctx, collaboratorID)
		return nil
	}); err != nil {
		return nil, err
	}

	return snapshot, nil
}

// LeaveSession marks the collaborator inactive, releases every lock they
// hold and broadcasts the presence snapshot.
func (c *Coordinator) LeaveSession(ctx context.Context, sessionID, collaboratorID types.ID) error {
	return c.do(ctx, sessionID, "leave-session", func(ctx context.Context, a *actor) error {
		collaborator, index, err := a.collaborator(collaboratorID)
		if err != nil {
			return err
		}

		next := collaborator.DeepCopy()
		next.Status = types.CollaboratorInactive
		if err := a.c.be.DB.UpsertCollaborator(ctx, next); err != nil {
			return err
		}

		a.presence.Leave(collaboratorID)
		a.roster[index] = next
		a.releaseLocksOf(ctx, collaboratorID)

		a.publish(ctx, events.Event{
			Type:         events.UserLeft,
			Actor:        collaboratorID,
			Collaborator: next.DeepCopy(),
		})
		a.publishPresence(ctx, collaboratorID)
		return nil
	})
}

// Presence returns the collaborators that are connected or whose stored
// status is active, in join order.
func (c *Coordinator) Presence(ctx context.Context, sessionID types.ID) ([]*types.Collaborator, error) {
	var snapshot []*types.Collaborator
	if err := c.do(ctx, sessionID, "presence", func(_ context.Context, a *actor) error {
		snapshot = a.presenceSnapshot()
		return nil
	}); err != nil {
		return nil, err
	}

	return snapshot, nil
}

// Subscribe subscribes the collaborator to the events of the session. The
// subscription starts between two commands, so it observes every event
// published after the state the caller reads next.
func (c *Coordinator) Subscribe(
	ctx context.Context,
	sessionID, subscriberID types.ID,
) (*pubsub.Subscription[events.Event], error) {
	var sub *pubsub.Subscription[events.Event]
	if err := c.do(ctx, sessionID, "subscribe", func(ctx context.Context, a *actor) error {
		if _, _, err := a.collaborator(subscriberID); err != nil {
			return err
		}

		var err error
		sub, err = a.c.be.PubSub.Subscribe(ctx, a.id, subscriberID)
		return err
	}); err != nil {
		return nil, err
	}

	return sub, nil
}

// Unsubscribe closes the subscription.
func (c *Coordinator) Unsubscribe(ctx context.Context, sessionID types.ID, sub *pubsub.Subscription[events.Event]) {
	c.be.PubSub.Unsubscribe(ctx, sessionID, sub)
}

// presenceSnapshot returns copies of the connected or active collaborators.
func (a *actor) presenceSnapshot() []*types.Collaborator {
	var snapshot []*types.Collaborator
	for _, collaborator := range a.roster {
		if a.presence.Contains(collaborator.ID) || collaborator.Status == types.CollaboratorActive {
			snapshot = append(snapshot, collaborator.DeepCopy())
		}
	}

	return snapshot
}

// publishPresence broadcasts the presence snapshot and returns it.
func (a *actor) publishPresence(ctx context.Context, actorID types.ID) []*types.Collaborator {
	snapshot := a.presenceSnapshot()

	published := make([]*types.Collaborator, 0, len(snapshot))
	for _, collaborator := range snapshot {
		published = append(published, collaborator.DeepCopy())
	}
	a.publish(ctx, events.Event{
		Type:        events.PresenceUpdate,
		Actor:       actorID,
		Presence:    published,
		PresenceSeq: a.presence.NextSeq(),
	})

	return snapshot
}
