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

// Reply is a reply in a comment thread.
type Reply struct {
	ID        ID        `json:"id" bson:"id"`
	AuthorID  ID        `json:"author_id" bson:"author_id"`
	Text      string    `json:"text" bson:"text"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Comment is a discussion thread, optionally attached to a field.
type Comment struct {
	// ID is the unique ID of the comment.
	ID ID `json:"id" bson:"_id"`

	// SessionID is the ID of the session.
	SessionID ID `json:"session_id" bson:"session_id"`

	// FieldName is the field the comment is attached to, if any.
	FieldName string `json:"field_name,omitempty" bson:"field_name,omitempty"`

	// AuthorID is the collaborator who wrote the comment.
	AuthorID ID `json:"author_id" bson:"author_id"`

	// Text is the body of the comment.
	Text string `json:"text" bson:"text"`

	// Resolved is true once a collaborator marked the thread resolved.
	Resolved bool `json:"resolved" bson:"resolved"`

	// ResolvedBy is the collaborator who resolved the thread.
	ResolvedBy ID `json:"resolved_by,omitempty" bson:"resolved_by,omitempty"`

	// ResolvedAt is the time the thread was resolved.
	ResolvedAt time.Time `json:"resolved_at,omitempty" bson:"resolved_at,omitempty"`

	// Replies are kept in the order they were added.
	Replies []Reply `json:"replies" bson:"replies"`

	// CreatedAt is the time the comment was added.
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// DeepCopy returns a copy of this comment including its replies.
func (c *Comment) DeepCopy() *Comment {
	if c == nil {
		return nil
	}

	clone := *c
	if c.Replies != nil {
		clone.Replies = make([]Reply, len(c.Replies))
		copy(clone.Replies, c.Replies)
	}
	return &clone
}
