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

// FieldLock is an advisory lock over one field of a session.
type FieldLock struct {
	SessionID  ID        `json:"session_id"`
	FieldName  string    `json:"field_name"`
	HolderID   ID        `json:"holder_id"`
	HolderName string    `json:"holder_name"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// IsExpired reports whether the lock is no longer live at the given time.
func (l *FieldLock) IsExpired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// DeepCopy returns a copy of this lock.
func (l *FieldLock) DeepCopy() *FieldLock {
	if l == nil {
		return nil
	}

	clone := *l
	return &clone
}
