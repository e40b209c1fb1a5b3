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

// Package memory implements the database interface using in-memory database.
package memory

import (
	"context"
	"fmt"
	"sort"
	gotime "time"

	"github.com/hashicorp/go-memdb"

	"github.com/formsync/formsync/api/types"
	"github.com/formsync/formsync/server/backend/database"
)

// DB is an in-memory database for testing or temporarily.
type DB struct {
	db *memdb.MemDB
}

// New returns a new in-memory database.
func New() (*DB, error) {
	memDB, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("new memdb: %w", err)
	}

	return &DB{
		db: memDB,
	}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return nil
}

// CreateSession stores a new session.
func (d *DB) CreateSession(_ context.Context, session *types.Session) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblSessions, "id", session.ID.String())
	if err != nil {
		return fmt.Errorf("find session of %s: %w", session.ID, err)
	}
	if raw != nil {
		return fmt.Errorf("%s: %w", session.ID, database.ErrSessionAlreadyExists)
	}

	if err := txn.Insert(tblSessions, session.DeepCopy()); err != nil {
		return fmt.Errorf("insert session of %s: %w", session.ID, err)
	}

	txn.Commit()
	return nil
}

// UpdateSession replaces the stored session.
func (d *DB) UpdateSession(_ context.Context, session *types.Session) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	if err := updateSession(txn, session); err != nil {
		return err
	}

	txn.Commit()
	return nil
}

func updateSession(txn *memdb.Txn, session *types.Session) error {
	raw, err := txn.First(tblSessions, "id", session.ID.String())
	if err != nil {
		return fmt.Errorf("find session of %s: %w", session.ID, err)
	}
	if raw == nil {
		return fmt.Errorf("%s: %w", session.ID, database.ErrSessionNotFound)
	}

	if err := txn.Insert(tblSessions, session.DeepCopy()); err != nil {
		return fmt.Errorf("update session of %s: %w", session.ID, err)
	}
	return nil
}

// FindSession returns the session of the given id.
func (d *DB) FindSession(_ context.Context, id types.ID) (*types.Session, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblSessions, "id", id.String())
	if err != nil {
		return nil, fmt.Errorf("find session of %s: %w", id, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", id, database.ErrSessionNotFound)
	}

	return raw.(*types.Session).DeepCopy(), nil
}

// FindSessionsCreatedBefore returns the sessions created at or before the
// given time, oldest first.
func (d *DB) FindSessionsCreatedBefore(_ context.Context, before gotime.Time) ([]*types.Session, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	iter, err := txn.Get(tblSessions, "id")
	if err != nil {
		return nil, fmt.Errorf("fetch sessions: %w", err)
	}

	var sessions []*types.Session
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		session := raw.(*types.Session)
		if !session.CreatedAt.After(before) {
			sessions = append(sessions, session.DeepCopy())
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// DeleteSession deletes the session and every record belonging to it.
func (d *DB) DeleteSession(_ context.Context, id types.ID) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblSessions, "id", id.String())
	if err != nil {
		return fmt.Errorf("find session of %s: %w", id, err)
	}
	if raw == nil {
		return fmt.Errorf("%s: %w", id, database.ErrSessionNotFound)
	}

	if err := txn.Delete(tblSessions, raw); err != nil {
		return fmt.Errorf("delete session of %s: %w", id, err)
	}
	for _, table := range []string{tblCollaborators, tblChanges, tblComments} {
		if _, err := txn.DeleteAll(table, "session_id", id.String()); err != nil {
			return fmt.Errorf("delete %s of %s: %w", table, id, err)
		}
	}

	txn.Commit()
	return nil
}

// UpsertCollaborator creates or replaces the collaborator.
func (d *DB) UpsertCollaborator(_ context.Context, collaborator *types.Collaborator) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblSessions, "id", collaborator.SessionID.String())
	if err != nil {
		return fmt.Errorf("find session of %s: %w", collaborator.SessionID, err)
	}
	if raw == nil {
		return fmt.Errorf("%s: %w", collaborator.SessionID, database.ErrSessionNotFound)
	}

	if err := txn.Insert(tblCollaborators, collaborator.DeepCopy()); err != nil {
		return fmt.Errorf("upsert collaborator of %s: %w", collaborator.ID, err)
	}

	txn.Commit()
	return nil
}

// DeleteCollaborator deletes the collaborator of the given session.
func (d *DB) DeleteCollaborator(_ context.Context, sessionID, id types.ID) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblCollaborators, "id", id.String())
	if err != nil {
		return fmt.Errorf("find collaborator of %s: %w", id, err)
	}
	if raw == nil || raw.(*types.Collaborator).SessionID != sessionID {
		return fmt.Errorf("%s: %w", id, database.ErrCollaboratorNotFound)
	}

	if err := txn.Delete(tblCollaborators, raw); err != nil {
		return fmt.Errorf("delete collaborator of %s: %w", id, err)
	}

	txn.Commit()
	return nil
}

// FindCollaborators returns the roster of the session ordered by join order.
func (d *DB) FindCollaborators(_ context.Context, sessionID types.ID) ([]*types.Collaborator, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	iter, err := txn.Get(tblCollaborators, "session_id", sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("fetch collaborators of %s: %w", sessionID, err)
	}

	var collaborators []*types.Collaborator
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		collaborators = append(collaborators, raw.(*types.Collaborator).DeepCopy())
	}

	sort.Slice(collaborators, func(i, j int) bool {
		return collaborators[i].JoinOrder < collaborators[j].JoinOrder
	})
	return collaborators, nil
}

// AppendChange appends the change to the ledger of its session and stores
// the session in the same transaction.
func (d *DB) AppendChange(_ context.Context, session *types.Session, change *types.Change) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblChanges, "session_id_seq", change.SessionID.String(), change.Seq)
	if err != nil {
		return fmt.Errorf("find change of %s@%d: %w", change.SessionID, change.Seq, err)
	}
	if raw != nil {
		return fmt.Errorf("%s@%d: %w", change.SessionID, change.Seq, database.ErrConflictOnAppend)
	}

	if err := updateSession(txn, session); err != nil {
		return err
	}
	if err := txn.Insert(tblChanges, change.DeepCopy()); err != nil {
		return fmt.Errorf("insert change of %s@%d: %w", change.SessionID, change.Seq, err)
	}

	txn.Commit()
	return nil
}

// FindChanges returns the changes of the session whose sequence is greater
// than or equal to fromSeq, ordered by sequence.
func (d *DB) FindChanges(_ context.Context, sessionID types.ID, fromSeq int64) ([]*types.Change, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	iter, err := txn.Get(tblChanges, "session_id", sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("fetch changes of %s: %w", sessionID, err)
	}

	var changes []*types.Change
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		change := raw.(*types.Change)
		if change.Seq >= fromSeq {
			changes = append(changes, change.DeepCopy())
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Seq < changes[j].Seq
	})
	return changes, nil
}

// UpsertComment creates or replaces the comment.
func (d *DB) UpsertComment(_ context.Context, comment *types.Comment) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblSessions, "id", comment.SessionID.String())
	if err != nil {
		return fmt.Errorf("find session of %s: %w", comment.SessionID, err)
	}
	if raw == nil {
		return fmt.Errorf("%s: %w", comment.SessionID, database.ErrSessionNotFound)
	}

	if err := txn.Insert(tblComments, comment.DeepCopy()); err != nil {
		return fmt.Errorf("upsert comment of %s: %w", comment.ID, err)
	}

	txn.Commit()
	return nil
}

// DeleteComment deletes the comment of the given session.
func (d *DB) DeleteComment(_ context.Context, sessionID, id types.ID) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblComments, "id", id.String())
	if err != nil {
		return fmt.Errorf("find comment of %s: %w", id, err)
	}
	if raw == nil || raw.(*types.Comment).SessionID != sessionID {
		return fmt.Errorf("%s: %w", id, database.ErrCommentNotFound)
	}

	if err := txn.Delete(tblComments, raw); err != nil {
		return fmt.Errorf("delete comment of %s: %w", id, err)
	}

	txn.Commit()
	return nil
}

// FindComments returns the comments of the session ordered by creation.
func (d *DB) FindComments(_ context.Context, sessionID types.ID) ([]*types.Comment, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	iter, err := txn.Get(tblComments, "session_id", sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("fetch comments of %s: %w", sessionID, err)
	}

	var comments []*types.Comment
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		comments = append(comments, raw.(*types.Comment).DeepCopy())
	}

	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
	return comments, nil
}
