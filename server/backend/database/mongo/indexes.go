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

package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// ColSessions represents the sessions collection in the database.
	ColSessions = "sessions"
	// ColCollaborators represents the collaborators collection in the database.
	ColCollaborators = "collaborators"
	// ColChanges represents the changes collection in the database.
	ColChanges = "changes"
	// ColComments represents the comments collection in the database.
	ColComments = "comments"
)

// Collections represents the list of all collections in the database.
var Collections = []string{
	ColSessions,
	ColCollaborators,
	ColChanges,
	ColComments,
}

type collectionInfo struct {
	name    string
	indexes []mongo.IndexModel
}

// Below are names and indexes information of Collections that stores formsync data.
var collectionInfos = []collectionInfo{
	{
		name: ColSessions,
		indexes: []mongo.IndexModel{{
			Keys: bson.D{{Key: "created_at", Value: int32(1)}},
		}},
	},
	{
		name: ColCollaborators,
		indexes: []mongo.IndexModel{{
			Keys: bson.D{
				{Key: "session_id", Value: int32(1)},
				{Key: "join_order", Value: int32(1)},
			},
		}},
	},
	{
		name: ColChanges,
		indexes: []mongo.IndexModel{{
			Keys: bson.D{
				{Key: "session_id", Value: int32(1)},
				{Key: "seq", Value: int32(1)},
			},
			Options: options.Index().SetUnique(true),
		}},
	},
	{
		name: ColComments,
		indexes: []mongo.IndexModel{{
			Keys: bson.D{
				{Key: "session_id", Value: int32(1)},
				{Key: "created_at", Value: int32(1)},
			},
		}},
	},
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, info := range collectionInfos {
		_, err := db.Collection(info.name).Indexes().CreateMany(ctx, info.indexes)
		if err != nil {
			return fmt.Errorf("create indexes of %s: %w", info.name, err)
		}
	}
	return nil
}
