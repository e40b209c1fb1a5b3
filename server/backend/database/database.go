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

// Package database provides the repository interface that the coordinator
// writes session state through.
package database

import (
	"context"
	gotime "time"

	"github.com/formsync/formsync/api/types"
	"github.com/formsync/formsync/pkg/errors"
)

var (
	// ErrSessionNotFound is returned when the session could not be found.
	ErrSessionNotFound = errors.NotFound("session not found").WithCode("ErrSessionNotFound")

	// ErrSessionAlreadyExists is returned when the session already exists.
	ErrSessionAlreadyExists = errors.AlreadyExists("session already exists").WithCode("ErrSessionAlreadyExists")

	// ErrCollaboratorNotFound is returned when the collaborator could not be found.
	ErrCollaboratorNotFound = errors.NotFound("collaborator not found").WithCode("ErrCollaboratorNotFound")

	// ErrCommentNotFound is returned when the comment could not be found.
	ErrCommentNotFound = errors.NotFound("comment not found").WithCode("ErrCommentNotFound")

	// ErrConflictOnAppend is returned when a change with the same sequence
	// already exists in the session ledger.
	ErrConflictOnAppend = errors.FailedPrecond("conflict on append").WithCode("ErrConflictOnAppend")
)

// Database represents database which reads or saves formsync data.
type Database interface {
	// Close all resources of this database.
	Close() error

	// CreateSession stores a new session.
	CreateSession(ctx context.Context, session *types.Session) error

	// UpdateSession replaces the stored session.
	UpdateSession(ctx context.Context, session *types.Session) error

	// FindSession returns the session of the given id.
	FindSession(ctx context.Context, id types.ID) (*types.Session, error)

	// FindSessionsCreatedBefore returns the sessions created at or before
	// the given time, oldest first.
	FindSessionsCreatedBefore(ctx context.Context, before gotime.Time) ([]*types.Session, error)

	// DeleteSession deletes the session and every record belonging to it.
	DeleteSession(ctx context.Context, id types.ID) error

	// UpsertCollaborator creates or replaces the collaborator.
	UpsertCollaborator(ctx context.Context, collaborator *types.Collaborator) error

	// DeleteCollaborator deletes the collaborator of the given session.
	DeleteCollaborator(ctx context.Context, sessionID, id types.ID) error

	// FindCollaborators returns the roster of the session ordered by join order.
	FindCollaborators(ctx context.Context, sessionID types.ID) ([]*types.Collaborator, error)

	// AppendChange appends the change to the ledger of its session and
	// stores the session whose version now equals the change's sequence.
	AppendChange(ctx context.Context, session *types.Session, change *types.Change) error

	// FindChanges returns the changes of the session whose sequence is
	// greater than or equal to fromSeq, ordered by sequence.
	FindChanges(ctx context.Context, sessionID types.ID, fromSeq int64) ([]*types.Change, error)

	// UpsertComment creates or replaces the comment.
	UpsertComment(ctx context.Context, comment *types.Comment) error

	// DeleteComment deletes the comment of the given session.
	DeleteComment(ctx context.Context, sessionID, id types.ID) error

	// FindComments returns the comments of the session ordered by creation.
	FindComments(ctx context.Context, sessionID types.ID) ([]*types.Comment, error)
}
