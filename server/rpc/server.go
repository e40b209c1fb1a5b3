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

// Package rpc provides the HTTP command surface, the WebSocket event streams
// and the gRPC health service of formsync.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/formsync/formsync/server/backend"
	"github.com/formsync/formsync/server/collab"
	"github.com/formsync/formsync/server/logging"
	"github.com/formsync/formsync/server/rpc/interceptors"
)

// Server is a normal server that processes the logic requested by the client.
type Server struct {
	conf         *Config
	router       *mux.Router
	httpServer   *http.Server
	grpcServer   *grpc.Server
	healthServer *health.Server

	// streamCtx is cancelled on shutdown to end the hijacked event streams,
	// which http.Server.Shutdown does not track.
	streamCtx     context.Context
	cancelStreams context.CancelFunc
}

// NewServer creates a new instance of Server.
func NewServer(conf *Config, be *backend.Backend, coordinator *collab.Coordinator) (*Server, error) {
	grpcServer, healthServer, err := newGRPCServer(conf, be.Metrics)
	if err != nil {
		return nil, err
	}

	streamCtx, cancelStreams := context.WithCancel(context.Background())
	h := &handlers{
		conf:        conf,
		coordinator: coordinator,
		health:      healthServer,
		streams:     newStreamRegistry(coordinator),
		streamCtx:   streamCtx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	router := mux.NewRouter()
	router.Use(
		interceptors.NewLoggingInterceptor().Middleware,
		interceptors.NewDefaultInterceptor(be.Metrics).Middleware,
	)
	h.register(router)

	return &Server{
		conf:         conf,
		router:       router,
		grpcServer:   grpcServer,
		healthServer: healthServer,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", conf.Port),
			Handler:           router,
			ReadHeaderTimeout: conf.ParseReadTimeout(),
		},
		streamCtx:     streamCtx,
		cancelStreams: cancelStreams,
	}, nil
}

// Handler returns the HTTP handler of the command surface.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and the gRPC health server in the background.
func (s *Server) Start() error {
	healthListener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.conf.HealthPort))
	if err != nil {
		return fmt.Errorf("listen health port %d: %w", s.conf.HealthPort, err)
	}

	go func() {
		logging.DefaultLogger().Infof("serving health on %d", s.conf.HealthPort)
		if err := s.grpcServer.Serve(healthListener); err != nil {
			if !errors.Is(err, grpc.ErrServerStopped) {
				logging.DefaultLogger().Errorf("gRPC health server Serve: %v", err)
			}
		}
	}()

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen port %d: %w", s.conf.Port, err)
	}

	go func() {
		logging.DefaultLogger().Infof("serving RPC on %d", s.conf.Port)

		var err error
		if s.conf.CertFile != "" && s.conf.KeyFile != "" {
			err = s.httpServer.ServeTLS(listener, s.conf.CertFile, s.conf.KeyFile)
		} else {
			err = s.httpServer.Serve(listener)
		}
		if !errors.Is(err, http.ErrServerClosed) {
			logging.DefaultLogger().Errorf("HTTP server Serve: %v", err)
		}
	}()

	s.healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return nil
}

// Shutdown shuts down the server. Event streams are closed in both modes.
func (s *Server) Shutdown(graceful bool) {
	s.healthServer.Shutdown()
	s.cancelStreams()

	if graceful {
		if err := s.httpServer.Shutdown(context.Background()); err != nil {
			logging.DefaultLogger().Errorf("HTTP server Shutdown: %v", err)
		}
		s.grpcServer.GracefulStop()
		return
	}

	if err := s.httpServer.Close(); err != nil {
		logging.DefaultLogger().Errorf("HTTP server Close: %v", err)
	}
	s.grpcServer.Stop()
}
