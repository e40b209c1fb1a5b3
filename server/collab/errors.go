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

package collab

import (
	"github.com/formsync/formsync/pkg/errors"
	"github.com/formsync/formsync/server/backend/database"
)

var (
	// ErrSessionNotFound is returned when the session does not exist or has
	// expired.
	ErrSessionNotFound = database.ErrSessionNotFound

	// ErrCollaboratorNotFound is returned when the collaborator is not part
	// of the session.
	ErrCollaboratorNotFound = database.ErrCollaboratorNotFound

	// ErrCommentNotFound is returned when the comment does not exist.
	ErrCommentNotFound = database.ErrCommentNotFound

	// ErrPermissionDenied is returned when the collaborator lacks the
	// permission the operation requires.
	ErrPermissionDenied = errors.PermissionDenied("you do not have permission").WithCode("ErrPermissionDenied")

	// ErrCannotRemoveCreator is returned when removing the session creator.
	ErrCannotRemoveCreator = errors.FailedPrecond("the session creator cannot be removed").WithCode("ErrCannotRemoveCreator")

	// ErrInvalidTransition is returned when the session status cannot move to
	// the requested one.
	ErrInvalidTransition = errors.FailedPrecond("invalid status transition").WithCode("ErrInvalidTransition")

	// ErrInvalidResolution is returned for a malformed conflict resolution.
	ErrInvalidResolution = errors.InvalidArgument("invalid conflict resolution").WithCode("ErrInvalidResolution")

	// ErrInvalidArgument is returned for malformed input.
	ErrInvalidArgument = errors.InvalidArgument("invalid argument").WithCode("ErrInvalidArgument")

	// ErrInvalidShareLink is returned when a share link cannot be resolved.
	ErrInvalidShareLink = errors.Unauthenticated("invalid share link").WithCode("ErrInvalidShareLink")

	// ErrCoordinatorClosed is returned after the coordinator was closed.
	ErrCoordinatorClosed = errors.Unavailable("coordinator is closed").WithCode("ErrCoordinatorClosed")
)
