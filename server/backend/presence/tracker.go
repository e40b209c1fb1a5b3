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

// Package presence tracks which collaborators are currently connected to a
// session.
package presence

import (
	"time"

	"github.com/formsync/formsync/api/types"
)

// Tracker is the live set of one session. It is owned by the session actor
// and is not safe for concurrent use.
type Tracker struct {
	joinedAt map[types.ID]time.Time

	// seq is a monotonic counter for ordering presence updates.
	seq int64
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		joinedAt: make(map[types.ID]time.Time),
	}
}

// Join adds the collaborator to the live set. It returns false if the
// collaborator was already present, in which case the join time is kept.
func (t *Tracker) Join(id types.ID, now time.Time) bool {
	if _, ok := t.joinedAt[id]; ok {
		return false
	}

	t.joinedAt[id] = now
	return true
}

// Leave removes the collaborator from the live set. It returns false if the
// collaborator was not present.
func (t *Tracker) Leave(id types.ID) bool {
	if _, ok := t.joinedAt[id]; !ok {
		return false
	}

	delete(t.joinedAt, id)
	return true
}

// Contains reports whether the collaborator is in the live set.
func (t *Tracker) Contains(id types.ID) bool {
	_, ok := t.joinedAt[id]
	return ok
}

// NextSeq returns the next presence update sequence.
func (t *Tracker) NextSeq() int64 {
	t.seq++
	return t.seq
}
