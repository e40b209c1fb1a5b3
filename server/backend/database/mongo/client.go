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

// Package mongo implements database interfaces using MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	gotime "time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/formsync/formsync/api/types"
	"github.com/formsync/formsync/server/backend/database"
	"github.com/formsync/formsync/server/logging"
)

// Client is a client that connects to Mongo DB and reads or saves formsync data.
type Client struct {
	config *Config
	client *mongo.Client
}

// Dial creates an instance of Client and dials the given MongoDB.
func Dial(conf *Config) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.ParseConnectionTimeout())
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.ConnectionURI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	ctxPing, cancelPing := context.WithTimeout(ctx, conf.ParsePingTimeout())
	defer cancelPing()

	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	if err := ensureIndexes(ctx, client.Database(conf.Database)); err != nil {
		return nil, err
	}

	logging.DefaultLogger().Infof("MongoDB connected, URI: %s, DB: %s", conf.ConnectionURI, conf.Database)

	return &Client{
		config: conf,
		client: client,
	}, nil
}

// Close all resources of this client.
func (c *Client) Close() error {
	if err := c.client.Disconnect(context.Background()); err != nil {
		return fmt.Errorf("close mongo client: %w", err)
	}

	return nil
}

func (c *Client) collection(name string) *mongo.Collection {
	return c.client.Database(c.config.Database).Collection(name)
}

// CreateSession stores a new session.
func (c *Client) CreateSession(ctx context.Context, session *types.Session) error {
	if _, err := c.collection(ColSessions).InsertOne(ctx, session); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", session.ID, database.ErrSessionAlreadyExists)
		}
		return fmt.Errorf("insert session of %s: %w", session.ID, err)
	}

	return nil
}

// UpdateSession replaces the stored session.
func (c *Client) UpdateSession(ctx context.Context, session *types.Session) error {
	res, err := c.collection(ColSessions).ReplaceOne(ctx, bson.M{"_id": session.ID}, session)
	if err != nil {
		return fmt.Errorf("update session of %s: %w", session.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", session.ID, database.ErrSessionNotFound)
	}

	return nil
}

// FindSession returns the session of the given id.
func (c *Client) FindSession(ctx context.Context, id types.ID) (*types.Session, error) {
	session := &types.Session{}
	if err := c.collection(ColSessions).FindOne(ctx, bson.M{"_id": id}).Decode(session); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", id, database.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("find session of %s: %w", id, err)
	}

	return session, nil
}

// FindSessionsCreatedBefore returns the sessions created at or before the
// given time, oldest first.
func (c *Client) FindSessionsCreatedBefore(ctx context.Context, before gotime.Time) ([]*types.Session, error) {
	cursor, err := c.collection(ColSessions).Find(
		ctx,
		bson.M{"created_at": bson.M{"$lte": before}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: int32(1)}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find sessions created before %s: %w", before, err)
	}

	var sessions []*types.Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}

	return sessions, nil
}

// DeleteSession deletes the session and every record belonging to it.
func (c *Client) DeleteSession(ctx context.Context, id types.ID) error {
	res, err := c.collection(ColSessions).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete session of %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", id, database.ErrSessionNotFound)
	}

	for _, name := range []string{ColCollaborators, ColChanges, ColComments} {
		if _, err := c.collection(name).DeleteMany(ctx, bson.M{"session_id": id}); err != nil {
			return fmt.Errorf("delete %s of %s: %w", name, id, err)
		}
	}

	return nil
}

// UpsertCollaborator creates or replaces the collaborator.
func (c *Client) UpsertCollaborator(ctx context.Context, collaborator *types.Collaborator) error {
	if err := c.ensureSession(ctx, collaborator.SessionID); err != nil {
		return err
	}

	if _, err := c.collection(ColCollaborators).ReplaceOne(
		ctx,
		bson.M{"_id": collaborator.ID},
		collaborator,
		options.Replace().SetUpsert(true),
	); err != nil {
		return fmt.Errorf("upsert collaborator of %s: %w", collaborator.ID, err)
	}

	return nil
}

// DeleteCollaborator deletes the collaborator of the given session.
func (c *Client) DeleteCollaborator(ctx context.Context, sessionID, id types.ID) error {
	res, err := c.collection(ColCollaborators).DeleteOne(ctx, bson.M{
		"_id":        id,
		"session_id": sessionID,
	})
	if err != nil {
		return fmt.Errorf("delete collaborator of %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", id, database.ErrCollaboratorNotFound)
	}

	return nil
}

// FindCollaborators returns the roster of the session ordered by join order.
func (c *Client) FindCollaborators(ctx context.Context, sessionID types.ID) ([]*types.Collaborator, error) {
	cursor, err := c.collection(ColCollaborators).Find(
		ctx,
		bson.M{"session_id": sessionID},
		options.Find().SetSort(bson.D{{Key: "join_order", Value: int32(1)}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find collaborators of %s: %w", sessionID, err)
	}

	var collaborators []*types.Collaborator
	if err := cursor.All(ctx, &collaborators); err != nil {
		return nil, fmt.Errorf("decode collaborators: %w", err)
	}

	return collaborators, nil
}

// AppendChange inserts the change and then stores the session. The unique
// index over (session_id, seq) rejects a second writer of the same sequence.
// The change is removed again when the session cannot be stored, so a failed
// append never leaves a sequence behind.
func (c *Client) AppendChange(ctx context.Context, session *types.Session, change *types.Change) error {
	if _, err := c.collection(ColChanges).InsertOne(ctx, change); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s@%d: %w", change.SessionID, change.Seq, database.ErrConflictOnAppend)
		}
		return fmt.Errorf("insert change of %s@%d: %w", change.SessionID, change.Seq, err)
	}

	if err := c.UpdateSession(ctx, session); err != nil {
		if _, delErr := c.collection(ColChanges).DeleteOne(context.WithoutCancel(ctx), bson.M{
			"_id": change.ID,
		}); delErr != nil {
			return errors.Join(err, fmt.Errorf("remove change of %s@%d: %w", change.SessionID, change.Seq, delErr))
		}
		return err
	}

	return nil
}

// FindChanges returns the changes of the session whose sequence is greater
// than or equal to fromSeq, ordered by sequence.
func (c *Client) FindChanges(ctx context.Context, sessionID types.ID, fromSeq int64) ([]*types.Change, error) {
	cursor, err := c.collection(ColChanges).Find(
		ctx,
		bson.M{
			"session_id": sessionID,
			"seq":        bson.M{"$gte": fromSeq},
		},
		options.Find().SetSort(bson.D{{Key: "seq", Value: int32(1)}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find changes of %s: %w", sessionID, err)
	}

	var changes []*types.Change
	if err := cursor.All(ctx, &changes); err != nil {
		return nil, fmt.Errorf("decode changes: %w", err)
	}

	return changes, nil
}

// UpsertComment creates or replaces the comment.
func (c *Client) UpsertComment(ctx context.Context, comment *types.Comment) error {
	if err := c.ensureSession(ctx, comment.SessionID); err != nil {
		return err
	}

	if _, err := c.collection(ColComments).ReplaceOne(
		ctx,
		bson.M{"_id": comment.ID},
		comment,
		options.Replace().SetUpsert(true),
	); err != nil {
		return fmt.Errorf("upsert comment of %s: %w", comment.ID, err)
	}

	return nil
}

// DeleteComment deletes the comment of the given session.
func (c *Client) DeleteComment(ctx context.Context, sessionID, id types.ID) error {
	res, err := c.collection(ColComments).DeleteOne(ctx, bson.M{
		"_id":        id,
		"session_id": sessionID,
	})
	if err != nil {
		return fmt.Errorf("delete comment of %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", id, database.ErrCommentNotFound)
	}

	return nil
}

// FindComments returns the comments of the session ordered by creation.
func (c *Client) FindComments(ctx context.Context, sessionID types.ID) ([]*types.Comment, error) {
	cursor, err := c.collection(ColComments).Find(
		ctx,
		bson.M{"session_id": sessionID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: int32(1)}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find comments of %s: %w", sessionID, err)
	}

	var comments []*types.Comment
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}

	return comments, nil
}

func (c *Client) ensureSession(ctx context.Context, id types.ID) error {
	count, err := c.collection(ColSessions).CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("count session of %s: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("%s: %w", id, database.ErrSessionNotFound)
	}
	return nil
}
