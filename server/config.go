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

package server

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/formsync/formsync/server/backend"
	"github.com/formsync/formsync/server/backend/database/mongo"
	"github.com/formsync/formsync/server/backend/housekeeping"
	"github.com/formsync/formsync/server/backend/pubsub/redis"
	"github.com/formsync/formsync/server/profiling"
	"github.com/formsync/formsync/server/rpc"
)

// Below are the values of the default values of formsync config.
const (
	DefaultRPCPort         = 8080
	DefaultProfilingPort   = 8081
	DefaultHealthPort      = 8082
	DefaultMaxRequestBytes = 4 * 1024 * 1024
	DefaultReadTimeout     = 10 * time.Second
	DefaultPingInterval    = 30 * time.Second

	DefaultHousekeepingInterval = time.Minute

	DefaultSessionTTL               = 30 * 24 * time.Hour
	DefaultLockTimeout              = 5 * time.Minute
	DefaultLockSweepInterval        = time.Second
	DefaultCommandQueueSize         = 64
	DefaultSubscriberBufferSize     = 256
	DefaultMaxSubscribersPerSession = 64

	DefaultMongoConnectionURI     = "mongodb://localhost:27017"
	DefaultMongoConnectionTimeout = 5 * time.Second
	DefaultMongoPingTimeout       = 5 * time.Second
	DefaultMongoDatabase          = "formsync"

	DefaultRedisChannelPrefix = "formsync:"
	DefaultRedisQueueSize     = 1024
	DefaultRedisDialTimeout   = 3 * time.Second

	DefaultHostname = ""
)

// Config is the configuration for creating a formsync instance.
type Config struct {
	RPC          *rpc.Config          `yaml:"RPC"`
	Profiling    *profiling.Config    `yaml:"Profiling"`
	Housekeeping *housekeeping.Config `yaml:"Housekeeping"`
	Backend      *backend.Config      `yaml:"Backend"`
	Mongo        *mongo.Config        `yaml:"Mongo"`
	Redis        *redis.Config        `yaml:"Redis"`
}

// NewConfig returns a Config struct that contains reasonable defaults
// for most of the configurations.
func NewConfig() *Config {
	return newConfig(DefaultRPCPort, DefaultProfilingPort)
}

// NewConfigFromFile returns a Config struct for the given conf file.
func NewConfigFromFile(path string) (*Config, error) {
	conf := &Config{}
	bytes, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err = yaml.Unmarshal(bytes, conf); err != nil {
		return nil, fmt.Errorf("unmarshal config file: %w", err)
	}

	conf.ensureDefaultValue()
	return conf, nil
}

// RPCAddr returns the RPC address.
func (c *Config) RPCAddr() string {
	return fmt.Sprintf("localhost:%d", c.RPC.Port)
}

// Validate returns an error if the provided Config is invalidated. All
// invalid sections are reported.
func (c *Config) Validate() error {
	var errs []error

	if err := c.RPC.Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Profiling != nil {
		if err := c.Profiling.Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := c.Housekeeping.Validate(); err != nil {
		errs = append(errs, err)
	}

	if err := c.Backend.Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Mongo != nil {
		if err := c.Mongo.Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// ensureDefaultValue sets the value of the option to which the default value
// should be applied when the user does not input it.
func (c *Config) ensureDefaultValue() {
	defaults := NewConfig()
	if c.RPC == nil {
		c.RPC = defaults.RPC
	}
	if c.Housekeeping == nil {
		c.Housekeeping = defaults.Housekeeping
	}
	if c.Backend == nil {
		c.Backend = defaults.Backend
	}

	if c.RPC.Port == 0 {
		c.RPC.Port = DefaultRPCPort
	}
	if c.RPC.HealthPort == 0 {
		c.RPC.HealthPort = DefaultHealthPort
	}
	if c.RPC.MaxRequestBytes == 0 {
		c.RPC.MaxRequestBytes = DefaultMaxRequestBytes
	}
	if c.RPC.ReadTimeout == "" {
		c.RPC.ReadTimeout = DefaultReadTimeout.String()
	}
	if c.RPC.PingInterval == "" {
		c.RPC.PingInterval = DefaultPingInterval.String()
	}

	if c.Profiling != nil && c.Profiling.Port == 0 {
		c.Profiling.Port = DefaultProfilingPort
	}

	if c.Housekeeping.Interval == "" {
		c.Housekeeping.Interval = DefaultHousekeepingInterval.String()
	}

	if c.Backend.SessionTTL == "" {
		c.Backend.SessionTTL = DefaultSessionTTL.String()
	}
	if c.Backend.LockTimeout == "" {
		c.Backend.LockTimeout = DefaultLockTimeout.String()
	}
	if c.Backend.LockSweepInterval == "" {
		c.Backend.LockSweepInterval = DefaultLockSweepInterval.String()
	}
	if c.Backend.CommandQueueSize == 0 {
		c.Backend.CommandQueueSize = DefaultCommandQueueSize
	}
	if c.Backend.SubscriberBufferSize == 0 {
		c.Backend.SubscriberBufferSize = DefaultSubscriberBufferSize
	}
	if c.Backend.MaxSubscribersPerSession == 0 {
		c.Backend.MaxSubscribersPerSession = DefaultMaxSubscribersPerSession
	}

	if c.Mongo != nil {
		if c.Mongo.ConnectionURI == "" {
			c.Mongo.ConnectionURI = DefaultMongoConnectionURI
		}
		if c.Mongo.ConnectionTimeout == "" {
			c.Mongo.ConnectionTimeout = DefaultMongoConnectionTimeout.String()
		}
		if c.Mongo.PingTimeout == "" {
			c.Mongo.PingTimeout = DefaultMongoPingTimeout.String()
		}
		if c.Mongo.Database == "" {
			c.Mongo.Database = DefaultMongoDatabase
		}
	}

	if c.Redis != nil && c.Redis.Address != "" {
		if c.Redis.ChannelPrefix == "" {
			c.Redis.ChannelPrefix = DefaultRedisChannelPrefix
		}
		if c.Redis.QueueSize == 0 {
			c.Redis.QueueSize = DefaultRedisQueueSize
		}
		if c.Redis.DialTimeout == "" {
			c.Redis.DialTimeout = DefaultRedisDialTimeout.String()
		}
	}
}

func newConfig(port int, profilingPort int) *Config {
	return &Config{
		RPC: &rpc.Config{
			Port:            port,
			HealthPort:      DefaultHealthPort,
			MaxRequestBytes: DefaultMaxRequestBytes,
			ReadTimeout:     DefaultReadTimeout.String(),
			PingInterval:    DefaultPingInterval.String(),
		},
		Profiling: &profiling.Config{
			Port: profilingPort,
		},
		Housekeeping: &housekeeping.Config{
			Interval: DefaultHousekeepingInterval.String(),
		},
		Backend: &backend.Config{
			SessionTTL:               DefaultSessionTTL.String(),
			LockTimeout:              DefaultLockTimeout.String(),
			LockSweepInterval:        DefaultLockSweepInterval.String(),
			CommandQueueSize:         DefaultCommandQueueSize,
			SubscriberBufferSize:     DefaultSubscriberBufferSize,
			MaxSubscribersPerSession: DefaultMaxSubscribersPerSession,
			Hostname:                 DefaultHostname,
		},
	}
}
