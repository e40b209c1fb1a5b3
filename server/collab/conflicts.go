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
	"github.com/formsync/formsync/server/conflicts"
)

// ResolveRequest is the decision taken over a detected conflict.
type ResolveRequest struct {
	Resolution  types.Resolution `json:"resolution"`
	MergedValue string           `json:"merged_value"`
	ResolverID  types.ID         `json:"resolver_id"`
}

// DetectConflicts compares the proposed value against the writes to the
// field appended after since. It returns nil when there are none. Detection
// is advisory and never blocks a later ApplyChange.
func (c *Coordinator) DetectConflicts(
	ctx context.Context,
	sessionID types.ID,
	fieldName string,
	proposedValue string,
	since time.Time,
) (*types.ConflictRecord, error) {
	if err := validateFieldName(fieldName); err != nil {
		return nil, err
	}

	var record *types.ConflictRecord
	if err := c.do(ctx, sessionID, "detect-conflicts", func(_ context.Context, a *actor) error {
		record = conflicts.Detect(a.id, a.ledger, fieldName, proposedValue, since, a.c.now())
		if record != nil {
			a.c.be.Metrics.AddConflictDetected()
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return record, nil
}

// ResolveConflict records the resolution of a conflict over the field. Only
// a merged resolution writes to the ledger; yours and theirs record the
// decision, and callers re-submit the chosen value through ApplyChange.
func (c *Coordinator) ResolveConflict(
	ctx context.Context,
	sessionID types.ID,
	fieldName string,
	req ResolveRequest,
) (*types.ConflictResolution, error) {
	if err := validateFieldName(fieldName); err != nil {
		return nil, err
	}
	if err := conflicts.ValidateResolution(req.Resolution, req.MergedValue, req.ResolverID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResolution, err)
	}

	var resolution *types.ConflictResolution
	if err := c.do(ctx, sessionID, "resolve-conflict", func(ctx context.Context, a *actor) error {
		if req.ResolverID != "" {
			if _, _, err := a.collaborator(req.ResolverID); err != nil {
				return err
			}
		}

		resolution = &types.ConflictResolution{
			FieldName:  fieldName,
			Resolution: req.Resolution,
			ResolverID: req.ResolverID,
		}

		if req.Resolution == types.ResolutionMerged {
			if _, err := a.authorize(req.ResolverID, "edit", canEdit); err != nil {
				return err
			}

			change, err := a.append(ctx, &types.Change{
				Kind:      types.ChangeMerged,
				FieldName: fieldName,
				OldValue:  conflicts.CurrentValue(a.ledger, fieldName),
				NewValue:  req.MergedValue,
				AuthorID:  req.ResolverID,
				Note:      "conflict resolved: merged",
			}, nil)
			if err != nil {
				return err
			}

			resolution.Change = change.DeepCopy()
			resolution.ResolvedAt = change.CreatedAt
			a.publish(ctx, events.Event{
				Type:      events.FieldChanged,
				Actor:     req.ResolverID,
				FieldName: fieldName,
				Change:    change.DeepCopy(),
			})
		} else {
			resolution.ResolvedAt = a.stamp()
		}

		published := *resolution
		published.Change = resolution.Change.DeepCopy()

		a.c.be.Metrics.AddConflictResolved(string(req.Resolution))
		a.publish(ctx, events.Event{
			Type:       events.ConflictResolved,
			Actor:      req.ResolverID,
			FieldName:  fieldName,
			Resolution: &published,
		})
		return nil
	}); err != nil {
		return nil, err
	}

	return resolution, nil
}
