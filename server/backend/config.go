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

package backend

import (
	"errors"
	"fmt"
	"os"
	"time"
)

var (
	// ErrInvalidCommandQueueSize is returned when the command queue size is
	// not positive.
	ErrInvalidCommandQueueSize = errors.New("command queue size must be positive")

	// ErrInvalidSubscriberBufferSize is returned when the subscriber buffer
	// size is not positive.
	ErrInvalidSubscriberBufferSize = errors.New("subscriber buffer size must be positive")

	// ErrInvalidSubscriberLimit is returned when the subscriber limit is
	// negative.
	ErrInvalidSubscriberLimit = errors.New("subscriber limit cannot be negative")
)

// Config is the configuration for creating a Backend instance.
type Config struct {
	// SessionTTL is how long a session lives after its creation. Default is
	// "720h" (30 days).
	SessionTTL string `yaml:"SessionTTL"`

	// LockTimeout is how long a field lock lives after its last acquisition.
	// Default is "5m".
	LockTimeout string `yaml:"LockTimeout"`

	// LockSweepInterval is the interval at which session actors expire field
	// locks. Default is "1s".
	LockSweepInterval string `yaml:"LockSweepInterval"`

	// CommandQueueSize is the size of the command queue of a session actor.
	CommandQueueSize int `yaml:"CommandQueueSize"`

	// SubscriberBufferSize is the event buffer of one subscription. Events
	// published to a full buffer are dropped.
	SubscriberBufferSize int `yaml:"SubscriberBufferSize"`

	// MaxSubscribersPerSession limits the subscriptions of a session. 0 means
	// unlimited.
	MaxSubscribersPerSession int `yaml:"MaxSubscribersPerSession"`

	// ShareLinkSecret is the key signing share link tokens. A random key is
	// used when empty, which invalidates links on restart.
	ShareLinkSecret string `yaml:"ShareLinkSecret"`

	// Hostname is the formsync server hostname, used in logs and as the
	// origin of relayed events.
	Hostname string `yaml:"Hostname"`
}

// Validate validates this config.
func (c *Config) Validate() error {
	durations := []struct {
		value string
		flag  string
	}{
		{c.SessionTTL, "--session-ttl"},
		{c.LockTimeout, "--lock-timeout"},
		{c.LockSweepInterval, "--lock-sweep-interval"},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf(`invalid argument "%s" for "%s" flag: %w`, d.value, d.flag, err)
		}
		if parsed <= 0 {
			return fmt.Errorf(`invalid argument "%s" for "%s" flag: must be positive`, d.value, d.flag)
		}
	}

	if c.CommandQueueSize <= 0 {
		return fmt.Errorf("%d: %w", c.CommandQueueSize, ErrInvalidCommandQueueSize)
	}
	if c.SubscriberBufferSize <= 0 {
		return fmt.Errorf("%d: %w", c.SubscriberBufferSize, ErrInvalidSubscriberBufferSize)
	}
	if c.MaxSubscribersPerSession < 0 {
		return fmt.Errorf("%d: %w", c.MaxSubscribersPerSession, ErrInvalidSubscriberLimit)
	}

	return nil
}

// ParseSessionTTL returns the session TTL.
func (c *Config) ParseSessionTTL() time.Duration {
	return mustParseDuration("session ttl", c.SessionTTL)
}

// ParseLockTimeout returns the field lock timeout.
func (c *Config) ParseLockTimeout() time.Duration {
	return mustParseDuration("lock timeout", c.LockTimeout)
}

// ParseLockSweepInterval returns the lock sweep interval.
func (c *Config) ParseLockSweepInterval() time.Duration {
	return mustParseDuration("lock sweep interval", c.LockSweepInterval)
}

func mustParseDuration(name, value string) time.Duration {
	result, err := time.ParseDuration(value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse %s: %v\n", name, err)
		os.Exit(1)
	}

	return result
}
