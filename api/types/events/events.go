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

// Package events defines the events that occur in a collaborative session.
package events

import (
	"time"

	"github.com/formsync/formsync/api/types"
)

// Type represents the type of the Event.
type Type string

const (
	// CollaboratorAdded occurs when a collaborator is invited.
	CollaboratorAdded Type = "collaborator-added"

	// CollaboratorRemoved occurs when a collaborator is removed.
	CollaboratorRemoved Type = "collaborator-removed"

	// UserJoined occurs when a collaborator joins the session.
	UserJoined Type = "user-joined"

	// UserLeft occurs when a collaborator leaves the session.
	UserLeft Type = "user-left"

	// FieldLocked occurs when a field lock is newly acquired.
	FieldLocked Type = "field-locked"

	// FieldUnlocked occurs when a field lock is released or expires.
	FieldUnlocked Type = "field-unlocked"

	// FieldChanged occurs when a field value is written.
	FieldChanged Type = "field-changed"

	// CommentAdded occurs when a comment or a reply is added.
	CommentAdded Type = "comment-added"

	// CommentResolved occurs when a comment thread is resolved.
	CommentResolved Type = "comment-resolved"

	// FormApproved occurs when the form is approved.
	FormApproved Type = "form-approved"

	// StatusChanged occurs on the other lifecycle transitions.
	StatusChanged Type = "status-changed"

	// ConflictResolved occurs when a conflict resolution is recorded.
	ConflictResolved Type = "conflict-resolved"

	// PresenceUpdate carries the current presence snapshot.
	PresenceUpdate Type = "presence-update"
)

const (
	// ReasonReleased is the unlock reason of an explicit release.
	ReasonReleased = "released"

	// ReasonExpired is the unlock reason of a lock that timed out.
	ReasonExpired = "expired"

	// ReasonLeft is the unlock reason of a lock dropped because its holder
	// left or was removed.
	ReasonLeft = "left"
)

// Event represents an event that occurs in a session. Only the payload
// fields relevant to Type are set.
type Event struct {
	// Type is the type of the event.
	Type Type `json:"type"`

	// SessionID is the session the event occurred in.
	SessionID types.ID `json:"session_id"`

	// Actor is the collaborator who caused the event.
	Actor types.ID `json:"actor,omitempty"`

	// PublishedAt is the time the event was published.
	PublishedAt time.Time `json:"published_at"`

	FieldName    string                    `json:"field_name,omitempty"`
	Reason       string                    `json:"reason,omitempty"`
	Collaborator *types.Collaborator       `json:"collaborator,omitempty"`
	Lock         *types.FieldLock          `json:"lock,omitempty"`
	Change       *types.Change             `json:"change,omitempty"`
	Comment      *types.Comment            `json:"comment,omitempty"`
	Session      *types.Session            `json:"session,omitempty"`
	Resolution   *types.ConflictResolution `json:"resolution,omitempty"`
	Presence     []*types.Collaborator     `json:"presence,omitempty"`

	// PresenceSeq orders presence updates of the session. A client keeps
	// the snapshot with the highest sequence.
	PresenceSeq int64 `json:"presence_seq,omitempty"`
}
