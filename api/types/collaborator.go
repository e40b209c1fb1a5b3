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
	"fmt"
	"os"
	"time"

	"github.com/formsync/formsync/internal/validation"
)

// Role is the part a collaborator plays in the case.
type Role string

const (
	// RolePetitioner is the party filing the form.
	RolePetitioner Role = "petitioner"

	// RoleRespondent is the responding party.
	RoleRespondent Role = "respondent"

	// RoleAttorney is a legal representative.
	RoleAttorney Role = "attorney"

	// RoleHelper is an assistant such as a family member or advocate.
	RoleHelper Role = "helper"
)

// IsValid reports whether the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RolePetitioner, RoleRespondent, RoleAttorney, RoleHelper:
		return true
	}
	return false
}

// CollaboratorStatus is the connection status of a collaborator.
type CollaboratorStatus string

const (
	// CollaboratorActive means the collaborator has joined the session.
	CollaboratorActive CollaboratorStatus = "active"

	// CollaboratorInvited means the collaborator has never joined.
	CollaboratorInvited CollaboratorStatus = "invited"

	// CollaboratorInactive means the collaborator has left.
	CollaboratorInactive CollaboratorStatus = "inactive"
)

// Permissions is the set of capabilities of a collaborator.
type Permissions struct {
	CanEdit    bool `json:"can_edit" bson:"can_edit"`
	CanComment bool `json:"can_comment" bson:"can_comment"`
	CanApprove bool `json:"can_approve" bson:"can_approve"`
	CanShare   bool `json:"can_share" bson:"can_share"`
}

// FullPermissions is the permission set of session creators.
var FullPermissions = Permissions{CanEdit: true, CanComment: true, CanApprove: true, CanShare: true}

// DefaultPermissions returns the permissions given to the role when the
// invite does not carry explicit ones.
func DefaultPermissions(role Role) Permissions {
	switch role {
	case RolePetitioner:
		return Permissions{CanEdit: true, CanComment: true, CanShare: true}
	case RoleRespondent:
		return Permissions{CanComment: true}
	case RoleAttorney:
		return FullPermissions
	case RoleHelper:
		return Permissions{CanEdit: true, CanComment: true}
	}
	return Permissions{}
}

// Palette is the fixed set of colours assigned to collaborators in join order.
var Palette = []string{
	"#E57373",
	"#64B5F6",
	"#81C784",
	"#FFB74D",
	"#BA68C8",
	"#4DB6AC",
	"#F06292",
	"#A1887F",
}

// ColorOf returns the palette colour of the given join order.
func ColorOf(joinOrder int) string {
	return Palette[joinOrder%len(Palette)]
}

// Collaborator is a participant of a session.
type Collaborator struct {
	// ID is the unique ID of the collaborator within the session.
	ID ID `json:"id" bson:"_id"`

	// SessionID is the ID of the session.
	SessionID ID `json:"session_id" bson:"session_id"`

	// UserID is the identity of the participant, established by the caller.
	UserID string `json:"user_id" bson:"user_id"`

	// Name is the display name.
	Name string `json:"name" bson:"name"`

	// Email is the contact address. Invites are idempotent by email.
	Email string `json:"email" bson:"email"`

	// Role is fixed at invite time.
	Role Role `json:"role" bson:"role"`

	// Permissions are fixed at invite time.
	Permissions Permissions `json:"permissions" bson:"permissions"`

	// Status is the connection status.
	Status CollaboratorStatus `json:"status" bson:"status"`

	// Color is the palette colour derived from JoinOrder.
	Color string `json:"color" bson:"color"`

	// JoinOrder is the position in the roster. The creator is 0.
	JoinOrder int `json:"join_order" bson:"join_order"`

	// LastActive is the time of the last join.
	LastActive time.Time `json:"last_active,omitempty" bson:"last_active,omitempty"`

	// InvitedAt is the time the collaborator was added.
	InvitedAt time.Time `json:"invited_at" bson:"invited_at"`
}

// DeepCopy returns a copy of this collaborator.
func (c *Collaborator) DeepCopy() *Collaborator {
	if c == nil {
		return nil
	}

	clone := *c
	return &clone
}

// CollaboratorDescriptor describes a participant to add to a session.
type CollaboratorDescriptor struct {
	// UserID is the identity of the participant.
	UserID string `json:"user_id" validate:"required,max=128"`

	// Name is the display name.
	Name string `json:"name" validate:"required,max=128"`

	// Email is the contact address.
	Email string `json:"email" validate:"omitempty,email"`

	// Role is the part the participant plays.
	Role Role `json:"role" validate:"required,role"`

	// Permissions overrides the role defaults when set.
	Permissions *Permissions `json:"permissions,omitempty"`
}

// Validate validates the CollaboratorDescriptor.
func (d *CollaboratorDescriptor) Validate() error {
	return validation.ValidateStruct(d)
}

// EffectivePermissions returns the explicit permissions or the role defaults.
func (d *CollaboratorDescriptor) EffectivePermissions() Permissions {
	if d.Permissions != nil {
		return *d.Permissions
	}
	return DefaultPermissions(d.Role)
}

func init() {
	if err := validation.RegisterValidation("role", func(level validation.FieldLevel) bool {
		return Role(level.Field().String()).IsValid()
	}); err != nil {
		fmt.Fprintln(os.Stderr, "collaborator descriptor: ", err)
		os.Exit(1)
	}

	if err := validation.RegisterTranslation(
		"role",
		"{0} must be one of petitioner, respondent, attorney or helper",
	); err != nil {
		fmt.Fprintln(os.Stderr, "collaborator descriptor: ", err)
		os.Exit(1)
	}
}
