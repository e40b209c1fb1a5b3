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
	"context"
	"errors"
	"fmt"

	"github.com/formsync/formsync/api/types"
	"github.com/formsync/formsync/api/types/events"
	"github.com/formsync/formsync/internal/validation"
)

// commentRequest is the validated input of AddComment and ReplyToComment.
type commentRequest struct {
	Text      string `validate:"required,max=4096"`
	FieldName string `validate:"omitempty,field_name"`
}

// AddComment adds a comment, optionally attached to a field. It also
// appends a comment entry to the ledger.
func (c *Coordinator) AddComment(
	ctx context.Context,
	sessionID, authorID types.ID,
	text string,
	fieldName string,
) (*types.Comment, error) {
	if err := validation.ValidateStruct(&commentRequest{Text: text, FieldName: fieldName}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	var added *types.Comment
	if err := c.do(ctx, sessionID, "add-comment", func(ctx context.Context, a *actor) error {
		if _, err := a.authorize(authorID, "comment", canComment); err != nil {
			return err
		}

		comment := &types.Comment{
			ID:        types.NewID(),
			SessionID: a.id,
			FieldName: fieldName,
			AuthorID:  authorID,
			Text:      text,
			Replies:   []types.Reply{},
			CreatedAt: a.stamp(),
		}
		if err := a.c.be.DB.UpsertComment(ctx, comment); err != nil {
			return err
		}

		change, err := a.append(ctx, &types.Change{
			Kind:      types.ChangeComment,
			FieldName: fieldName,
			NewValue:  text,
			AuthorID:  authorID,
			Note:      comment.ID.String(),
		}, nil)
		if err != nil {
			if delErr := a.c.be.DB.DeleteComment(context.WithoutCancel(ctx), a.id, comment.ID); delErr != nil {
				return errors.Join(err, delErr)
			}
			return err
		}

		a.comments = append(a.comments, comment)
		a.c.be.Metrics.AddComment()
		added = comment.DeepCopy()
		a.publish(ctx, events.Event{
			Type:      events.CommentAdded,
			Actor:     authorID,
			FieldName: fieldName,
			Comment:   comment.DeepCopy(),
			Change:    change.DeepCopy(),
		})
		return nil
	}); err != nil {
		return nil, err
	}

	return added, nil
}

// ReplyToComment appends a reply to the thread of the comment.
func (c *Coordinator) ReplyToComment(
	ctx context.Context,
	sessionID, commentID, authorID types.ID,
	text string,
) (*types.Comment, error) {
	if err := validation.ValidateStruct(&commentRequest{Text: text}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	var replied *types.Comment
	if err := c.do(ctx, sessionID, "reply-comment", func(ctx context.Context, a *actor) error {
		comment, index, err := a.comment(commentID)
		if err != nil {
			return err
		}
		if _, err := a.authorize(authorID, "comment", canComment); err != nil {
			return err
		}

		next := comment.DeepCopy()
		next.Replies = append(next.Replies, types.Reply{
			ID:        types.NewID(),
			AuthorID:  authorID,
			Text:      text,
			CreatedAt: a.stamp(),
		})
		if err := a.c.be.DB.UpsertComment(ctx, next); err != nil {
			return err
		}

		a.comments[index] = next
		replied = next.DeepCopy()
		a.publish(ctx, events.Event{
			Type:      events.CommentAdded,
			Actor:     authorID,
			FieldName: next.FieldName,
			Comment:   next.DeepCopy(),
		})
		return nil
	}); err != nil {
		return nil, err
	}

	return replied, nil
}

// ResolveComment marks the thread resolved. Resolving a resolved thread
// returns it unchanged.
func (c *Coordinator) ResolveComment(
	ctx context.Context,
	sessionID, commentID, resolverID types.ID,
) (*types.Comment, error) {
	var resolved *types.Comment
	if err := c.do(ctx, sessionID, "resolve-comment", func(ctx context.Context, a *actor) error {
		comment, index, err := a.comment(commentID)
		if err != nil {
			return err
		}
		if _, _, err := a.collaborator(resolverID); err != nil {
			return err
		}

		if comment.Resolved {
			resolved = comment.DeepCopy()
			return nil
		}

		next := comment.DeepCopy()
		next.Resolved = true
		next.ResolvedBy = resolverID
		next.ResolvedAt = a.stamp()
		if err := a.c.be.DB.UpsertComment(ctx, next); err != nil {
			return err
		}

		a.comments[index] = next
		resolved = next.DeepCopy()
		a.publish(ctx, events.Event{
			Type:      events.CommentResolved,
			Actor:     resolverID,
			FieldName: next.FieldName,
			Comment:   next.DeepCopy(),
		})
		return nil
	}); err != nil {
		return nil, err
	}

	return resolved, nil
}

// Comments returns the comments of the session in creation order.
func (c *Coordinator) Comments(ctx context.Context, sessionID types.ID) ([]*types.Comment, error) {
	var comments []*types.Comment
	if err := c.do(ctx, sessionID, "comments", func(_ context.Context, a *actor) error {
		comments = a.commentsCopy()
		return nil
	}); err != nil {
		return nil, err
	}

	return comments, nil
}

func (a *actor) comment(id types.ID) (*types.Comment, int, error) {
	for i, comment := range a.comments {
		if comment.ID == id {
			return comment, i, nil
		}
	}

	return nil, -1, fmt.Errorf("%s in %s: %w", id, a.id, ErrCommentNotFound)
}

func (a *actor) commentsCopy() []*types.Comment {
	comments := make([]*types.Comment, 0, len(a.comments))
	for _, comment := range a.comments {
		comments = append(comments, comment.DeepCopy())
	}

	return comments
}
