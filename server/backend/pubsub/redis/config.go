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

package redis

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEmptyAddress is returned when the address of the redis server is empty.
	ErrEmptyAddress = errors.New("redis address cannot be empty")

	// ErrInvalidQueueSize is returned when the outbound queue size is not positive.
	ErrInvalidQueueSize = errors.New("redis queue size must be positive")
)

// Config is the configuration for the redis event bridge.
type Config struct {
	// Address is the host:port of the redis server.
	Address string `yaml:"Address"`

	// Password is the password of the redis server. It is usually loaded
	// from the environment.
	Password string `yaml:"Password"`

	// DB is the redis database number.
	DB int `yaml:"DB"`

	// ChannelPrefix prefixes the redis channel of each session.
	ChannelPrefix string `yaml:"ChannelPrefix"`

	// QueueSize is the number of outbound events buffered before dropping.
	QueueSize int `yaml:"QueueSize"`

	// DialTimeout is the timeout of the initial ping.
	DialTimeout string `yaml:"DialTimeout"`
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if c.Address == "" {
		return ErrEmptyAddress
	}

	if c.QueueSize <= 0 {
		return fmt.Errorf("%d: %w", c.QueueSize, ErrInvalidQueueSize)
	}

	if _, err := time.ParseDuration(c.DialTimeout); err != nil {
		return fmt.Errorf(
			`invalid argument "%s" for "--redis-dial-timeout" flag: %w`,
			c.DialTimeout,
			err,
		)
	}

	return nil
}

// ParseDialTimeout returns the dial timeout duration.
func (c *Config) ParseDialTimeout() time.Duration {
	result, err := time.ParseDuration(c.DialTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return result
}
