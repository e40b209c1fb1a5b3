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
	"errors"
	"fmt"
	"os"
	"time"
)

var (
	// ErrInvalidRPCPort occurs when the port in the config is invalid.
	ErrInvalidRPCPort = errors.New("invalid port number for RPC server")
	// ErrInvalidHealthPort occurs when the health port in the config is invalid.
	ErrInvalidHealthPort = errors.New("invalid port number for health server")
	// ErrInvalidCertFile occurs when the certificate file is invalid.
	ErrInvalidCertFile = errors.New("invalid cert file for RPC server")
	// ErrInvalidKeyFile occurs when the key file is invalid.
	ErrInvalidKeyFile = errors.New("invalid key file for RPC server")
	// ErrInvalidReadTimeout occurs when the read timeout is invalid.
	ErrInvalidReadTimeout = errors.New("invalid read timeout for RPC server")
	// ErrInvalidPingInterval occurs when the event stream ping interval is invalid.
	ErrInvalidPingInterval = errors.New("invalid ping interval for event streams")
)

// Config is the configuration for creating a Server instance.
type Config struct {
	// Port is the port number of the HTTP command surface and event streams.
	Port int `yaml:"Port"`

	// HealthPort is the port number of the gRPC health service.
	HealthPort int `yaml:"HealthPort"`

	// CertFile is the path to the certificate file.
	CertFile string `yaml:"CertFile"`

	// KeyFile is the path to the key file.
	KeyFile string `yaml:"KeyFile"`

	// MaxRequestBytes is the maximum client request size in bytes the server will accept.
	MaxRequestBytes uint64 `yaml:"MaxRequestBytes"`

	// ReadTimeout is the maximum duration for reading an entire request.
	ReadTimeout string `yaml:"ReadTimeout"`

	// PingInterval is the interval of keepalive pings on event streams.
	PingInterval string `yaml:"PingInterval"`
}

// Validate validates the port numbers and the files for certification.
func (c *Config) Validate() error {
	if c.Port < 1 || 65535 < c.Port {
		return fmt.Errorf("must be between 1 and 65535, given %d: %w", c.Port, ErrInvalidRPCPort)
	}
	if c.HealthPort < 1 || 65535 < c.HealthPort {
		return fmt.Errorf("must be between 1 and 65535, given %d: %w", c.HealthPort, ErrInvalidHealthPort)
	}

	// when specific cert or key file are configured
	if c.CertFile != "" {
		if _, err := os.Stat(c.CertFile); err != nil {
			return fmt.Errorf("%s: %w", c.CertFile, ErrInvalidCertFile)
		}
	}

	if c.KeyFile != "" {
		if _, err := os.Stat(c.KeyFile); err != nil {
			return fmt.Errorf("%s: %w", c.KeyFile, ErrInvalidKeyFile)
		}
	}

	if _, err := time.ParseDuration(c.ReadTimeout); err != nil {
		return fmt.Errorf("%s: %w", c.ReadTimeout, ErrInvalidReadTimeout)
	}

	if d, err := time.ParseDuration(c.PingInterval); err != nil || d <= 0 {
		return fmt.Errorf("%s: %w", c.PingInterval, ErrInvalidPingInterval)
	}

	return nil
}

// ParseReadTimeout returns the read timeout.
func (c *Config) ParseReadTimeout() time.Duration {
	result, err := time.ParseDuration(c.ReadTimeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse read timeout: %v\n", err)
		os.Exit(1)
	}

	return result
}

// ParsePingInterval returns the keepalive ping interval of event streams.
func (c *Config) ParsePingInterval() time.Duration {
	result, err := time.ParseDuration(c.PingInterval)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse ping interval: %v\n", err)
		os.Exit(1)
	}

	return result
}
