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

package mongo_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/formsync/formsync/api/types"
	"github.com/formsync/formsync/server/backend/database/mongo"
	"github.com/formsync/formsync/server/backend/database/testcases"
)

const (
	mongoURIEnv    = "FORMSYNC_MONGO_URI"
	dummySessionID = types.ID("000000000000000000000000")
)

func setupMongoClient(t *testing.T) *mongo.Client {
	uri := os.Getenv(mongoURIEnv)
	if uri == "" {
		t.Skipf("%s is not set", mongoURIEnv)
	}

	cli, err := mongo.Dial(&mongo.Config{
		ConnectionTimeout: "5s",
		ConnectionURI:     uri,
		Database:          "formsync-test-" + types.NewID().String(),
		PingTimeout:       "5s",
	})
	assert.NoError(t, err)

	return cli
}

func TestClient(t *testing.T) {
	cli := setupMongoClient(t)
	defer func() {
		assert.NoError(t, cli.Close())
	}()

	t.Run("RunSession test", func(t *testing.T) {
		testcases.RunSessionTest(t, cli)
	})

	t.Run("RunFindSessionsCreatedBefore test", func(t *testing.T) {
		testcases.RunFindSessionsCreatedBeforeTest(t, cli)
	})

	t.Run("RunCollaborator test", func(t *testing.T) {
		testcases.RunCollaboratorTest(t, cli)
	})

	t.Run("RunChange test", func(t *testing.T) {
		testcases.RunChangeTest(t, cli)
	})

	t.Run("RunComment test", func(t *testing.T) {
		testcases.RunCommentTest(t, cli)
	})

	t.Run("RunDeleteSession test", func(t *testing.T) {
		testcases.RunDeleteSessionTest(t, cli)
	})

	t.Run("find missing session test", func(t *testing.T) {
		_, err := cli.FindSession(context.Background(), dummySessionID)
		assert.Error(t, err)
	})
}
