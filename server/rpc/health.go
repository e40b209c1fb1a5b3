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

package rpc

import (
	"fmt"

	grpcmiddleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpcrecovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	fserrors "github.com/formsync/formsync/pkg/errors"
	"github.com/formsync/formsync/server/grpchelper"
	"github.com/formsync/formsync/server/logging"
	"github.com/formsync/formsync/server/profiling/prometheus"
)

// newGRPCServer creates the gRPC server that exposes grpc.health.v1.
func newGRPCServer(conf *Config, metrics *prometheus.Metrics) (*grpc.Server, *health.Server, error) {
	loggingInterceptor := grpchelper.NewLoggingInterceptor()
	recoveryOpt := grpcrecovery.WithRecoveryHandler(func(p interface{}) error {
		logging.DefaultLogger().Errorf("gRPC panic: %v", p)
		return grpchelper.ToStatusError(fserrors.Internal(fmt.Sprintf("panic: %v", p)))
	})

	opts := []grpc.ServerOption{
		grpc.UnaryInterceptor(grpcmiddleware.ChainUnaryServer(
			loggingInterceptor.Unary(),
			metrics.ServerMetrics().UnaryServerInterceptor(),
			grpcrecovery.UnaryServerInterceptor(recoveryOpt),
		)),
		grpc.StreamInterceptor(grpcmiddleware.ChainStreamServer(
			loggingInterceptor.Stream(),
			metrics.ServerMetrics().StreamServerInterceptor(),
			grpcrecovery.StreamServerInterceptor(recoveryOpt),
		)),
	}

	if conf.CertFile != "" && conf.KeyFile != "" {
		creds, err := credentials.NewServerTLSFromFile(conf.CertFile, conf.KeyFile)
		if err != nil {
			return nil, nil, fmt.Errorf("load TLS cert: %w", err)
		}
		opts = append(opts, grpc.Creds(creds))
	}

	grpcServer := grpc.NewServer(opts...)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	metrics.RegisterGRPCServer(grpcServer)

	return grpcServer, healthServer, nil
}
