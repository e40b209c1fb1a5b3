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

package redis_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/formsync/formsync/server/backend/pubsub/redis"
)

func TestConfig(t *testing.T) {
	validConf := redis.Config{
		Address:       "localhost:6379",
		ChannelPrefix: "formsync:",
		QueueSize:     128,
		DialTimeout:   "3s",
	}
	assert.NoError(t, validConf.Validate())
	assert.Equal(t, 3*time.Second, validConf.ParseDialTimeout())

	conf1 := validConf
	conf1.Address = ""
	assert.ErrorIs(t, conf1.Validate(), redis.ErrEmptyAddress)

	conf2 := validConf
	conf2.QueueSize = 0
	assert.ErrorIs(t, conf2.Validate(), redis.ErrInvalidQueueSize)

	conf3 := validConf
	conf3.DialTimeout = "three seconds"
	assert.Error(t, conf3.Validate())
}
