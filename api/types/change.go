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

// ChangeKind is the kind of a ledger entry.
type ChangeKind string

const (
	// ChangeEdit is a field value write.
	ChangeEdit ChangeKind = "edit"

	// ChangeComment records that a comment was added.
	ChangeComment ChangeKind = "comment"

	// ChangeApproval records a lifecycle transition.
	ChangeApproval ChangeKind = "approval"

	// ChangeMerged is a field value write produced by a merged conflict
	// resolution.
	ChangeMerged ChangeKind = "merged"
)

// IsFieldWrite reports whether entries of this kind set a field value.
func (k ChangeKind) IsFieldWrite() bool {
	return k == ChangeEdit || k == ChangeMerged
}

// Change is an immutable entry of a session ledger.
type Change struct {
	// ID is the unique ID of the change.
	ID ID `json:"id" bson:"_id"`

	// SessionID is the ID of the session.
	SessionID ID `json:"session_id" bson:"session_id"`

	// Seq is the session version after this entry was appended.
	Seq int64 `json:"seq" bson:"seq"`

	// Kind is the kind of the entry.
	Kind ChangeKind `json:"kind" bson:"kind"`

	// FieldName is the field the entry concerns. Empty for session-wide
	// approval entries.
	FieldName string `json:"field_name,omitempty" bson:"field_name,omitempty"`

	// OldValue is the value the author saw before the write.
	OldValue string `json:"old_value" bson:"old_value"`

	// NewValue is the value written.
	NewValue string `json:"new_value" bson:"new_value"`

	// AuthorID is the collaborator who produced the entry.
	AuthorID ID `json:"author_id" bson:"author_id"`

	// Note is an optional annotation.
	Note string `json:"note,omitempty" bson:"note,omitempty"`

	// CreatedAt is strictly increasing within a session.
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// DeepCopy returns a copy of this change.
func (c *Change) DeepCopy() *Change {
	if c == nil {
		return nil
	}

	clone := *c
	return &clone
}
