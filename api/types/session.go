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

package types

import (
	"time"
)

// SessionStatus is the lifecycle status of a session.
type SessionStatus string

const (
	// SessionDraft is the status of a newly created session.
	SessionDraft SessionStatus = "draft"

	// SessionInReview is the status of a session submitted for review.
	SessionInReview SessionStatus = "in_review"

	// SessionApproved is the status of an approved session.
	SessionApproved SessionStatus = "approved"

	// SessionSubmitted is the terminal status of a session.
	SessionSubmitted SessionStatus = "submitted"
)

// sessionTransitions lists the statuses reachable from each status.
var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionDraft:    {SessionInReview, SessionApproved},
	SessionInReview: {SessionApproved},
	SessionApproved: {SessionSubmitted},
}

// CanTransitionTo reports whether the status may move to the given one.
func (s SessionStatus) CanTransitionTo(to SessionStatus) bool {
	for _, next := range sessionTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Session is a collaborative editing session over one form document.
type Session struct {
	// ID is the unique ID of the session.
	ID ID `json:"id" bson:"_id"`

	// DocumentID is the ID of the form document being edited.
	DocumentID string `json:"document_id" bson:"document_id"`

	// DocumentType is the kind of form, e.g. "petition".
	DocumentType string `json:"document_type" bson:"document_type"`

	// CreatorID is the collaborator ID of the session creator.
	CreatorID ID `json:"creator_id" bson:"creator_id"`

	// Status is the lifecycle status of the session.
	Status SessionStatus `json:"status" bson:"status"`

	// Version is incremented once per ledger entry.
	Version int64 `json:"version" bson:"version"`

	// ShareToken is the current share link token, if any.
	ShareToken string `json:"share_token,omitempty" bson:"share_token,omitempty"`

	// ShareExpiresAt is the expiry of ShareToken.
	ShareExpiresAt time.Time `json:"share_expires_at,omitempty" bson:"share_expires_at,omitempty"`

	// CreatedAt is the time when the session was created.
	CreatedAt time.Time `json:"created_at" bson:"created_at"`

	// UpdatedAt is the time when the session was last modified.
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// ExpiresAt returns the time the session expires for the given TTL.
func (s *Session) ExpiresAt(ttl time.Duration) time.Time {
	return s.CreatedAt.Add(ttl)
}

// IsExpired reports whether the session is past its TTL at the given time.
func (s *Session) IsExpired(ttl time.Duration, now time.Time) bool {
	return !now.Before(s.ExpiresAt(ttl))
}

// DeepCopy returns a copy of this session.
func (s *Session) DeepCopy() *Session {
	if s == nil {
		return nil
	}

	clone := *s
	return &clone
}
