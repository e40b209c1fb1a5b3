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

// Package backend provides the backend implementation of formsync.
// This package is responsible for managing the database, the event fan-out
// and other resources required to run the coordinator.
package backend

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/formsync/formsync/server/backend/database"
	memdb "github.com/formsync/formsync/server/backend/database/memory"
	"github.com/formsync/formsync/server/backend/database/mongo"
	"github.com/formsync/formsync/server/backend/pubsub"
	redisbridge "github.com/formsync/formsync/server/backend/pubsub/redis"
	"github.com/formsync/formsync/server/logging"
	"github.com/formsync/formsync/server/profiling/prometheus"
)

// Backend manages formsync's backend such as Database and PubSub.
type Backend struct {
	Config *Config

	// PubSub is used to publish/subscribe session events to/from clients.
	PubSub *pubsub.PubSub
	// Bridge relays events between nodes. It is nil on a single node.
	Bridge *redisbridge.Bridge

	// Metrics is used to expose metrics.
	Metrics *prometheus.Metrics
	// DB is the database instance.
	DB database.Database
}

// New creates a new instance of Backend.
func New(
	conf *Config,
	mongoConf *mongo.Config,
	redisConf *redisbridge.Config,
	metrics *prometheus.Metrics,
) (*Backend, error) {
	// 01. Build the server info with the given hostname or the hostname of the
	// current machine.
	if conf.Hostname == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("os.Hostname: %w", err)
		}
		conf.Hostname = hostname
	}

	// 02. Create the pubsub.
	ps := pubsub.New(conf.SubscriberBufferSize, conf.MaxSubscribersPerSession)

	// 03. Create the database instance. If the MongoDB configuration is given,
	// create a MongoDB instance. Otherwise, create a memory database instance.
	var db database.Database
	var err error
	if mongoConf != nil {
		db, err = mongo.Dial(mongoConf)
		if err != nil {
			return nil, err
		}
	} else {
		db, err = memdb.New()
		if err != nil {
			return nil, err
		}
	}

	// 04. Connect the redis bridge if the redis configuration is given.
	var bridge *redisbridge.Bridge
	if redisConf != nil {
		bridge, err = redisbridge.Dial(context.Background(), redisConf, ps)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	dbInfo := "memory"
	if mongoConf != nil {
		dbInfo = mongoConf.ConnectionURI
	}
	relayInfo := "none"
	if redisConf != nil {
		relayInfo = redisConf.Address
	}
	logging.DefaultLogger().Infof("backend created: db: %s, relay: %s", dbInfo, relayInfo)

	return &Backend{
		Config:  conf,
		PubSub:  ps,
		Bridge:  bridge,
		Metrics: metrics,
		DB:      db,
	}, nil
}

// Start starts the backend.
func (b *Backend) Start(ctx context.Context) error {
	if b.Bridge != nil {
		if err := b.Bridge.Start(ctx); err != nil {
			return err
		}
	}

	logging.DefaultLogger().Infof("backend started")
	return nil
}

// Shutdown closes all resources of this instance.
func (b *Backend) Shutdown() error {
	var errs []error

	if b.Bridge != nil {
		if err := b.Bridge.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	b.PubSub.Close()

	if err := b.DB.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	logging.DefaultLogger().Infof("backend stopped")
	return nil
}
