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

// Resolution is the way a conflict was settled.
type Resolution string

const (
	// ResolutionYours keeps the proposing collaborator's value.
	ResolutionYours Resolution = "yours"

	// ResolutionTheirs keeps the value already in the ledger.
	ResolutionTheirs Resolution = "theirs"

	// ResolutionMerged writes a new value combining both.
	ResolutionMerged Resolution = "merged"
)

// IsValid reports whether the resolution is one of the known kinds.
func (r Resolution) IsValid() bool {
	switch r {
	case ResolutionYours, ResolutionTheirs, ResolutionMerged:
		return true
	}
	return false
}

// ConflictRecord describes a proposed write that raced later writes to the
// same field.
type ConflictRecord struct {
	SessionID ID     `json:"session_id"`
	FieldName string `json:"field_name"`

	// YourValue is the proposed value.
	YourValue string `json:"your_value"`

	// TheirValue is the value of the newest intervening write.
	TheirValue string `json:"their_value"`

	// TheirChange is the newest intervening write.
	TheirChange *Change `json:"their_change"`

	// Intervening is the number of writes after the caller's baseline.
	Intervening int `json:"intervening"`

	DetectedAt time.Time   `json:"detected_at"`
	Resolution *Resolution `json:"resolution,omitempty"`
}

// ConflictResolution is the outcome of resolving a conflict.
type ConflictResolution struct {
	FieldName  string     `json:"field_name"`
	Resolution Resolution `json:"resolution"`
	ResolverID ID         `json:"resolver_id"`

	// Change is the merged ledger entry. It is nil for yours and theirs.
	Change *Change `json:"change,omitempty"`

	ResolvedAt time.Time `json:"resolved_at"`
}
