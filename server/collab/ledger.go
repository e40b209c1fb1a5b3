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
	"fmt"
	"time"

	"github.com/formsync/formsync/api/types"
	"github.com/formsync/formsync/api/types/events"
	"github.com/formsync/formsync/internal/validation"
	"github.com/formsync/formsync/server/conflicts"
)

// ChangeRequest is a field write submitted to the ledger.
type ChangeRequest struct {
	SessionID types.ID `json:"-"`
	AuthorID  types.ID `json:"author_id" validate:"required"`
	FieldName string   `json:"field_name" validate:"required,field_name"`
	OldValue  string   `json:"old_value"`
	NewValue  string   `json:"new_value"`
	Note      string   `json:"note" validate:"max=1024"`
}

// ApplyChange appends an edit to the ledger. Writes are last-writer-wins:
// field locks are not checked, see ApplyChangeIfCurrent for a guarded write.
func (c *Coordinator) ApplyChange(ctx context.Context, req ChangeRequest) (*types.Change, error) {
	if err := validation.ValidateStruct(&req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	var change *types.Change
	if err := c.do(ctx, req.SessionID, "apply-change", func(ctx context.Context, a *actor) error {
		var err error
		change, err = a.applyChange(ctx, req)
		return err
	}); err != nil {
		return nil, err
	}

	return change, nil
}

// ApplyChangeIfCurrent appends the edit only if no write to the field was
// appended after since. Detection and append happen in one actor turn, so
// on conflict nothing is appended and the record is returned instead.
func (c *Coordinator) ApplyChangeIfCurrent(
	ctx context.Context,
	req ChangeRequest,
	since time.Time,
) (*types.Change, *types.ConflictRecord, error) {
	if err := validation.ValidateStruct(&req); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	var change *types.Change
	var record *types.ConflictRecord
	if err := c.do(ctx, req.SessionID, "apply-change-if-current", func(ctx context.Context, a *actor) error {
		if _, err := a.authorize(req.AuthorID, "edit", canEdit); err != nil {
			return err
		}

		record = conflicts.Detect(a.id, a.ledger, req.FieldName, req.NewValue, since, a.c.now())
		if record != nil {
			a.c.be.Metrics.AddConflictDetected()
			return nil
		}

		var err error
		change, err = a.applyChange(ctx, req)
		return err
	}); err != nil {
		return nil, nil, err
	}

	return change, record, nil
}

// Changes returns the ledger entries with Seq >= fromSeq in ledger order.
func (c *Coordinator) Changes(ctx context.Context, sessionID types.ID, fromSeq int64) ([]*types.Change, error) {
	var changes []*types.Change
	if err := c.do(ctx, sessionID, "changes", func(_ context.Context, a *actor) error {
		changes = a.changesFrom(fromSeq)
		return nil
	}); err != nil {
		return nil, err
	}

	return changes, nil
}

// ApproveForm approves the form. The approver needs the approve permission;
// the status is left unchanged otherwise.
func (c *Coordinator) ApproveForm(ctx context.Context, sessionID, approverID types.ID) (*types.Session, error) {
	return c.transition(ctx, sessionID, approverID, "approve", canApprove, types.SessionApproved, events.FormApproved)
}

// SubmitForReview moves a draft to review.
func (c *Coordinator) SubmitForReview(ctx context.Context, sessionID, authorID types.ID) (*types.Session, error) {
	return c.transition(ctx, sessionID, authorID, "submit for review", canEdit, types.SessionInReview, events.StatusChanged)
}

// SubmitForm submits an approved form. It is the terminal transition.
func (c *Coordinator) SubmitForm(ctx context.Context, sessionID, submitterID types.ID) (*types.Session, error) {
	return c.transition(ctx, sessionID, submitterID, "submit", canApprove, types.SessionSubmitted, events.StatusChanged)
}

func (c *Coordinator) transition(
	ctx context.Context,
	sessionID, actorID types.ID,
	action string,
	allowed func(types.Permissions) bool,
	to types.SessionStatus,
	eventType events.Type,
) (*types.Session, error) {
	var session *types.Session
	if err := c.do(ctx, sessionID, action, func(ctx context.Context, a *actor) error {
		if _, err := a.authorize(actorID, action, allowed); err != nil {
			return err
		}

		from := a.session.Status
		if !from.CanTransitionTo(to) {
			return fmt.Errorf("%s to %s: %w", from, to, ErrInvalidTransition)
		}

		change, err := a.append(ctx, &types.Change{
			Kind:     types.ChangeApproval,
			OldValue: string(from),
			NewValue: string(to),
			AuthorID: actorID,
		}, func(s *types.Session) {
			s.Status = to
		})
		if err != nil {
			return err
		}

		session = a.session.DeepCopy()
		a.publish(ctx, events.Event{
			Type:    eventType,
			Actor:   actorID,
			Session: a.session.DeepCopy(),
			Change:  change.DeepCopy(),
		})
		return nil
	}); err != nil {
		return nil, err
	}

	return session, nil
}

// applyChange appends an edit authored by a collaborator who can edit.
func (a *actor) applyChange(ctx context.Context, req ChangeRequest) (*types.Change, error) {
	if _, err := a.authorize(req.AuthorID, "edit", canEdit); err != nil {
		return nil, err
	}

	change, err := a.append(ctx, &types.Change{
		Kind:      types.ChangeEdit,
		FieldName: req.FieldName,
		OldValue:  req.OldValue,
		NewValue:  req.NewValue,
		AuthorID:  req.AuthorID,
		Note:      req.Note,
	}, nil)
	if err != nil {
		return nil, err
	}

	a.publish(ctx, events.Event{
		Type:      events.FieldChanged,
		Actor:     req.AuthorID,
		FieldName: req.FieldName,
		Change:    change.DeepCopy(),
	})
	return change.DeepCopy(), nil
}

// append persists the entry together with the bumped session and commits
// both. The version increases by exactly one per entry and becomes its Seq.
func (a *actor) append(
	ctx context.Context,
	entry *types.Change,
	mutate func(s *types.Session),
) (*types.Change, error) {
	at := a.stamp()

	next := a.session.DeepCopy()
	next.Version++
	next.UpdatedAt = at
	if mutate != nil {
		mutate(next)
	}

	entry.ID = types.NewID()
	entry.SessionID = a.id
	entry.Seq = next.Version
	entry.CreatedAt = at

	if err := a.c.be.DB.AppendChange(ctx, next, entry); err != nil {
		return nil, err
	}

	a.session = next
	a.ledger = append(a.ledger, entry)
	a.c.be.Metrics.AddChange(string(entry.Kind))
	return entry, nil
}

// changesFrom returns copies of the entries with Seq >= fromSeq.
func (a *actor) changesFrom(fromSeq int64) []*types.Change {
	changes := make([]*types.Change, 0, len(a.ledger))
	for _, change := range a.ledger {
		if change.Seq >= fromSeq {
			changes = append(changes, change.DeepCopy())
		}
	}

	return changes
}

func canEdit(p types.Permissions) bool    { return p.CanEdit }
func canComment(p types.Permissions) bool { return p.CanComment }
func canApprove(p types.Permissions) bool { return p.CanApprove }
func canShare(p types.Permissions) bool   { return p.CanShare }
