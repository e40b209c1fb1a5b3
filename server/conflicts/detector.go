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

// Package conflicts detects writes that raced a proposed field value and
// checks conflict resolutions.
package conflicts

import (
	"errors"
	"fmt"
	"time"

	"github.com/formsync/formsync/api/types"
)

var (
	// ErrUnknownResolution is returned for a resolution that is not one of
	// yours, theirs or merged.
	ErrUnknownResolution = errors.New("unknown resolution")

	// ErrMissingMergedValue is returned for a merged resolution without a value.
	ErrMissingMergedValue = errors.New("merged resolution requires a merged value")

	// ErrMissingResolver is returned for a merged resolution without a resolver.
	ErrMissingResolver = errors.New("merged resolution requires a resolver")
)

// Detect scans the ledger for writes to the field created strictly after
// since. It returns nil when there are none; otherwise the record pairs the
// proposed value with the value of the newest such write.
func Detect(
	sessionID types.ID,
	ledger []*types.Change,
	fieldName string,
	proposed string,
	since time.Time,
	now time.Time,
) *types.ConflictRecord {
	var newest *types.Change
	intervening := 0

	for _, change := range ledger {
		if change.FieldName != fieldName || !change.Kind.IsFieldWrite() {
			continue
		}
		if !change.CreatedAt.After(since) {
			continue
		}

		intervening++
		if newest == nil || change.Seq > newest.Seq {
			newest = change
		}
	}

	if newest == nil {
		return nil
	}

	return &types.ConflictRecord{
		SessionID:   sessionID,
		FieldName:   fieldName,
		YourValue:   proposed,
		TheirValue:  newest.NewValue,
		TheirChange: newest.DeepCopy(),
		Intervening: intervening,
		DetectedAt:  now,
	}
}

// CurrentValue returns the value of the newest write to the field, or the
// empty string if the field was never written.
func CurrentValue(ledger []*types.Change, fieldName string) string {
	for i := len(ledger) - 1; i >= 0; i-- {
		change := ledger[i]
		if change.FieldName == fieldName && change.Kind.IsFieldWrite() {
			return change.NewValue
		}
	}
	return ""
}

// ValidateResolution checks the arguments of a resolution.
func ValidateResolution(resolution types.Resolution, mergedValue string, resolverID types.ID) error {
	if !resolution.IsValid() {
		return fmt.Errorf("%q: %w", resolution, ErrUnknownResolution)
	}

	if resolution != types.ResolutionMerged {
		return nil
	}

	if mergedValue == "" {
		return ErrMissingMergedValue
	}
	if resolverID == "" {
		return ErrMissingResolver
	}

	return nil
}
