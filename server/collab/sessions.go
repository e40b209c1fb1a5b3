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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/formsync/formsync/api/types"
	"github.com/formsync/formsync/api/types/events"
	"github.com/formsync/formsync/internal/validation"
	"github.com/formsync/formsync/server/logging"
)

// sessionRequest is the validated input of CreateSession.
type sessionRequest struct {
	DocumentID   string `validate:"required,max=256"`
	DocumentType string `validate:"max=128"`
}

// CreateSession creates a session in draft status with the creator as its
// only collaborator.
func (c *Coordinator) CreateSession(
	ctx context.Context,
	documentID string,
	documentType string,
	creator types.CollaboratorDescriptor,
) (*types.Session, error) {
	if err := validation.ValidateStruct(&sessionRequest{
		DocumentID:   documentID,
		DocumentType: documentType,
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if err := creator.Validate(); err != nil {
		return nil, fmt.Errorf("%w: creator: %w", ErrInvalidArgument, err)
	}

	now := ceilMillis(c.now())
	session := &types.Session{
		ID:           types.NewID(),
		DocumentID:   documentID,
		DocumentType: documentType,
		Status:       types.SessionDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	owner := &types.Collaborator{
		ID:          types.NewID(),
		SessionID:   session.ID,
		UserID:      creator.UserID,
		Name:        creator.Name,
		Email:       creator.Email,
		Role:        creator.Role,
		Permissions: types.FullPermissions,
		Status:      types.CollaboratorInvited,
		Color:       types.ColorOf(0),
		JoinOrder:   0,
		InvitedAt:   now,
	}
	session.CreatorID = owner.ID

	if err := c.be.DB.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	if err := c.be.DB.UpsertCollaborator(ctx, owner); err != nil {
		if delErr := c.be.DB.DeleteSession(ctx, session.ID); delErr != nil {
			logging.From(ctx).Errorf("rollback session %s: %v", session.ID, delErr)
		}
		return nil, err
	}

	a := newActor(c, session.DeepCopy())
	a.roster = []*types.Collaborator{owner.DeepCopy()}
	a.nextJoinOrder = 1
	if _, err := c.register(a); err != nil {
		return nil, err
	}

	c.be.Metrics.AddSessionCreated()
	logging.From(ctx).Infof("session created: %s for %s by %s", session.ID, documentID, owner.ID)

	return session, nil
}

// Session returns the session.
func (c *Coordinator) Session(ctx context.Context, sessionID types.ID) (*types.Session, error) {
	var session *types.Session
	if err := c.do(ctx, sessionID, "session", func(_ context.Context, a *actor) error {
		session = a.session.DeepCopy()
		return nil
	}); err != nil {
		return nil, err
	}

	return session, nil
}

// Collaborators returns the roster of the session in join order.
func (c *Coordinator) Collaborators(ctx context.Context, sessionID types.ID) ([]*types.Collaborator, error) {
	var roster []*types.Collaborator
	if err := c.do(ctx, sessionID, "collaborators", func(_ context.Context, a *actor) error {
		roster = a.rosterCopy()
		return nil
	}); err != nil {
		return nil, err
	}

	return roster, nil
}

// AddCollaborator invites a participant. Invites are idempotent by email:
// re-inviting returns the existing record unchanged.
func (c *Coordinator) AddCollaborator(
	ctx context.Context,
	sessionID types.ID,
	descriptor types.CollaboratorDescriptor,
) (*types.Collaborator, error) {
	if err := descriptor.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	var added *types.Collaborator
	if err := c.do(ctx, sessionID, "add-collaborator", func(ctx context.Context, a *actor) error {
		if existing := a.findInvitee(descriptor); existing != nil {
			added = existing.DeepCopy()
			return nil
		}

		at := a.stamp()
		collaborator := &types.Collaborator{
			ID:          types.NewID(),
			SessionID:   a.id,
			UserID:      descriptor.UserID,
			Name:        descriptor.Name,
			Email:       descriptor.Email,
			Role:        descriptor.Role,
			Permissions: descriptor.EffectivePermissions(),
			Status:      types.CollaboratorInvited,
			Color:       types.ColorOf(a.nextJoinOrder),
			JoinOrder:   a.nextJoinOrder,
			InvitedAt:   at,
		}
		if err := a.c.be.DB.UpsertCollaborator(ctx, collaborator); err != nil {
			return err
		}
		if err := a.saveSession(ctx, func(s *types.Session) {
			s.UpdatedAt = at
		}); err != nil {
			if delErr := a.c.be.DB.DeleteCollaborator(context.WithoutCancel(ctx), a.id, collaborator.ID); delErr != nil {
				return errors.Join(err, delErr)
			}
			return err
		}

		a.roster = append(a.roster, collaborator)
		a.nextJoinOrder++
		added = collaborator.DeepCopy()
		a.publish(ctx, events.Event{
			Type:         events.CollaboratorAdded,
			Collaborator: collaborator.DeepCopy(),
		})
		return nil
	}); err != nil {
		return nil, err
	}

	return added, nil
}

// RemoveCollaborator removes a collaborator other than the creator and
// releases the locks they hold.
func (c *Coordinator) RemoveCollaborator(ctx context.Context, sessionID, collaboratorID types.ID) error {
	return c.do(ctx, sessionID, "remove-collaborator", func(ctx context.Context, a *actor) error {
		if collaboratorID == a.session.CreatorID {
			return fmt.Errorf("%s: %w", collaboratorID, ErrCannotRemoveCreator)
		}

		collaborator, index, err := a.collaborator(collaboratorID)
		if err != nil {
			return err
		}

		if err := a.c.be.DB.DeleteCollaborator(ctx, a.id, collaboratorID); err != nil {
			return err
		}

		a.roster = append(a.roster[:index:index], a.roster[index+1:]...)
		a.presence.Leave(collaboratorID)
		a.releaseLocksOf(ctx, collaboratorID)

		if err := a.touch(ctx); err != nil {
			return err
		}

		a.publish(ctx, events.Event{
			Type:         events.CollaboratorRemoved,
			Collaborator: collaborator.DeepCopy(),
		})
		a.publishPresence(ctx, "")
		return nil
	})
}

// DeleteSession deletes the session and every record of it. Only the
// creator may delete a session.
func (c *Coordinator) DeleteSession(ctx context.Context, sessionID, requesterID types.ID) error {
	return c.do(ctx, sessionID, "delete-session", func(ctx context.Context, a *actor) error {
		if requesterID != a.session.CreatorID {
			return fmt.Errorf("%s cannot delete %s: %w", requesterID, a.id, ErrPermissionDenied)
		}

		if err := a.destroy(ctx); err != nil {
			return err
		}

		logging.From(ctx).Infof("session deleted: %s by %s", a.id, requesterID)
		return nil
	})
}

// ExpireSessions deletes every session whose TTL elapsed at now. It returns
// the number of sessions deleted.
func (c *Coordinator) ExpireSessions(ctx context.Context, now time.Time) (int, error) {
	sessions, err := c.be.DB.FindSessionsCreatedBefore(ctx, now.Add(-c.sessionTTL))
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, session := range sessions {
		c.mu.Lock()
		a, live := c.actors[session.ID]
		c.mu.Unlock()

		if live {
			err = a.do(ctx, "expire-session", func(ctx context.Context, a *actor) error {
				return a.destroy(ctx)
			})
		} else {
			err = c.be.DB.DeleteSession(ctx, session.ID)
		}
		if errors.Is(err, ErrSessionNotFound) {
			continue
		}
		if err != nil {
			c.be.Metrics.AddSessionsExpired(expired)
			return expired, fmt.Errorf("expire session %s: %w", session.ID, err)
		}

		expired++
	}

	c.be.Metrics.AddSessionsExpired(expired)
	return expired, nil
}

// findInvitee returns the collaborator matching the descriptor's email, or
// its user ID when the descriptor has no email.
func (a *actor) findInvitee(descriptor types.CollaboratorDescriptor) *types.Collaborator {
	for _, collaborator := range a.roster {
		if descriptor.Email != "" {
			if strings.EqualFold(collaborator.Email, descriptor.Email) {
				return collaborator
			}
			continue
		}

		if collaborator.Email == "" && collaborator.UserID == descriptor.UserID {
			return collaborator
		}
	}

	return nil
}

// rosterCopy returns a copy of the roster in join order.
func (a *actor) rosterCopy() []*types.Collaborator {
	roster := make([]*types.Collaborator, 0, len(a.roster))
	for _, collaborator := range a.roster {
		roster = append(roster, collaborator.DeepCopy())
	}

	return roster
}
