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

// Package server provides the formsync server which is the main entry point
// of the formsync system. The server is responsible for starting the RPC
// server, the housekeeping service and the profiling server.
package server

import (
	"context"
	gosync "sync"

	"github.com/formsync/formsync/server/backend"
	"github.com/formsync/formsync/server/backend/housekeeping"
	"github.com/formsync/formsync/server/collab"
	"github.com/formsync/formsync/server/logging"
	"github.com/formsync/formsync/server/profiling"
	"github.com/formsync/formsync/server/profiling/prometheus"
	"github.com/formsync/formsync/server/rpc"
)

// Formsync is a server of formsync.
// The server receives commands from collaborators, serialises them per
// session, stores the results in the repository and propagates the events to
// the collaborators who stream the session.
type Formsync struct {
	lock gosync.Mutex

	conf            *Config
	backend         *backend.Backend
	coordinator     *collab.Coordinator
	housekeeping    *housekeeping.Housekeeping
	rpcServer       *rpc.Server
	profilingServer *profiling.Server

	shutdown   bool
	shutdownCh chan struct{}
}

// New creates a new instance of Formsync.
func New(conf *Config) (*Formsync, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	metrics, err := prometheus.NewMetrics()
	if err != nil {
		return nil, err
	}

	be, err := backend.New(conf.Backend, conf.Mongo, conf.Redis, metrics)
	if err != nil {
		return nil, err
	}

	coordinator, err := collab.New(be)
	if err != nil {
		return nil, shutdownOnError(be, nil, err)
	}

	hk, err := housekeeping.New(conf.Housekeeping, coordinator)
	if err != nil {
		return nil, shutdownOnError(be, coordinator, err)
	}

	rpcServer, err := rpc.NewServer(conf.RPC, be, coordinator)
	if err != nil {
		return nil, shutdownOnError(be, coordinator, err)
	}

	var profilingServer *profiling.Server
	if conf.Profiling != nil {
		profilingServer = profiling.NewServer(conf.Profiling, metrics)
	}

	return &Formsync{
		conf:            conf,
		backend:         be,
		coordinator:     coordinator,
		housekeeping:    hk,
		rpcServer:       rpcServer,
		profilingServer: profilingServer,
		shutdownCh:      make(chan struct{}),
	}, nil
}

// shutdownOnError releases what New built before failing.
func shutdownOnError(be *backend.Backend, coordinator *collab.Coordinator, err error) error {
	if coordinator != nil {
		if closeErr := coordinator.Close(); closeErr != nil {
			logging.DefaultLogger().Error(closeErr)
		}
	}
	if shutdownErr := be.Shutdown(); shutdownErr != nil {
		logging.DefaultLogger().Error(shutdownErr)
	}
	return err
}

// Start starts the server by opening the rpc port.
func (r *Formsync) Start() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if err := r.backend.Start(context.Background()); err != nil {
		return err
	}

	if err := r.housekeeping.Start(); err != nil {
		return err
	}

	if r.profilingServer != nil {
		if err := r.profilingServer.Start(); err != nil {
			return err
		}
	}

	return r.rpcServer.Start()
}

// Shutdown shuts down this formsync server. Event streams are closed first
// so that collaborators leave their sessions before the actors stop.
func (r *Formsync) Shutdown(graceful bool) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.shutdown {
		return nil
	}

	r.rpcServer.Shutdown(graceful)
	if r.profilingServer != nil {
		r.profilingServer.Shutdown(graceful)
	}

	if err := r.housekeeping.Stop(); err != nil {
		return err
	}

	if err := r.coordinator.Close(); err != nil {
		return err
	}

	if err := r.backend.Shutdown(); err != nil {
		return err
	}

	close(r.shutdownCh)
	r.shutdown = true
	return nil
}

// ShutdownCh returns the shutdown channel.
func (r *Formsync) ShutdownCh() <-chan struct{} {
	return r.shutdownCh
}

// RPCAddr returns the address of the RPC.
func (r *Formsync) RPCAddr() string {
	return r.conf.RPCAddr()
}

// Coordinator returns the coordinator of this server. It is used for testing.
func (r *Formsync) Coordinator() *collab.Coordinator {
	return r.coordinator
}
