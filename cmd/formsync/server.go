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

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/formsync/formsync/server"
	"github.com/formsync/formsync/server/backend/database/mongo"
	"github.com/formsync/formsync/server/backend/pubsub/redis"
	"github.com/formsync/formsync/server/logging"
)

const (
	envShareLinkSecret  = "FORMSYNC_SHARE_LINK_SECRET"
	envMongoURI         = "FORMSYNC_MONGO_CONNECTION_URI"
	envRedisPassword    = "FORMSYNC_REDIS_PASSWORD"
	defaultEnvFile      = ".env"
	defaultLogFormat    = "console"
	defaultRedisAddress = ""
)

var (
	gracefulTimeout = 10 * time.Second
)

var (
	flagConfPath  string
	flagEnvPath   string
	flagLogLevel  string
	flagLogFormat string

	housekeepingInterval time.Duration
	sessionTTL           time.Duration
	lockTimeout          time.Duration
	lockSweepInterval    time.Duration
	readTimeout          time.Duration
	pingInterval         time.Duration

	mongoConnectionURI     string
	mongoConnectionTimeout time.Duration
	mongoDatabase          string
	mongoPingTimeout       time.Duration

	redisAddress       string
	redisDB            int
	redisChannelPrefix string
	redisQueueSize     int
	redisDialTimeout   time.Duration

	conf = server.NewConfig()
)

func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server [options]",
		Short: "Start formsync server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnv(flagEnvPath); err != nil {
				return err
			}

			conf.RPC.ReadTimeout = readTimeout.String()
			conf.RPC.PingInterval = pingInterval.String()

			conf.Housekeeping.Interval = housekeepingInterval.String()

			conf.Backend.SessionTTL = sessionTTL.String()
			conf.Backend.LockTimeout = lockTimeout.String()
			conf.Backend.LockSweepInterval = lockSweepInterval.String()

			if mongoConnectionURI != "" {
				conf.Mongo = &mongo.Config{
					ConnectionURI:     mongoConnectionURI,
					ConnectionTimeout: mongoConnectionTimeout.String(),
					Database:          mongoDatabase,
					PingTimeout:       mongoPingTimeout.String(),
				}
			}

			if redisAddress != "" {
				conf.Redis = &redis.Config{
					Address:       redisAddress,
					DB:            redisDB,
					ChannelPrefix: redisChannelPrefix,
					QueueSize:     redisQueueSize,
					DialTimeout:   redisDialTimeout.String(),
				}
			}

			// If config file is given, command-line arguments will be overwritten.
			if flagConfPath != "" {
				parsed, err := server.NewConfigFromFile(flagConfPath)
				if err != nil {
					return err
				}
				conf = parsed
			}

			applyEnv(conf)

			if err := logging.SetLogLevel(flagLogLevel); err != nil {
				return err
			}
			if err := logging.SetLogFormat(flagLogFormat); err != nil {
				return err
			}

			f, err := server.New(conf)
			if err != nil {
				return err
			}

			if err := f.Start(); err != nil {
				return err
			}

			if code := handleSignal(f); code != 0 {
				return fmt.Errorf("exit code: %d", code)
			}

			return nil
		},
	}
}

// loadEnv loads the given dotenv file into the environment. Without a path
// the .env of the working directory is loaded if present.
func loadEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}

	if err := godotenv.Load(defaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", defaultEnvFile, err)
	}
	return nil
}

// applyEnv fills the secrets of the config from the environment. Values that
// are already set are kept.
func applyEnv(conf *server.Config) {
	if secret := os.Getenv(envShareLinkSecret); secret != "" && conf.Backend.ShareLinkSecret == "" {
		conf.Backend.ShareLinkSecret = secret
	}

	if uri := os.Getenv(envMongoURI); uri != "" && conf.Mongo == nil {
		conf.Mongo = &mongo.Config{
			ConnectionURI:     uri,
			ConnectionTimeout: server.DefaultMongoConnectionTimeout.String(),
			Database:          server.DefaultMongoDatabase,
			PingTimeout:       server.DefaultMongoPingTimeout.String(),
		}
	}

	if password := os.Getenv(envRedisPassword); password != "" && conf.Redis != nil && conf.Redis.Password == "" {
		conf.Redis.Password = password
	}
}

func handleSignal(r *server.Formsync) int {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	var sig os.Signal
	select {
	case s := <-sigCh:
		sig = s
	case <-r.ShutdownCh():
		// formsync is already shutdown
		return 0
	}

	graceful := false
	if sig == syscall.SIGINT || sig == syscall.SIGTERM {
		graceful = true
	}

	gracefulCh := make(chan struct{})
	go func() {
		if err := r.Shutdown(graceful); err != nil {
			logging.DefaultLogger().Error(err)
			return
		}
		close(gracefulCh)
	}()

	select {
	case <-sigCh:
		return 1
	case <-time.After(gracefulTimeout):
		return 1
	case <-gracefulCh:
		return 0
	}
}

func init() {
	cmd := newServerCmd()
	cmd.Flags().StringVarP(
		&flagConfPath,
		"config",
		"c",
		"",
		"Config path",
	)
	cmd.Flags().StringVar(
		&flagEnvPath,
		"env-file",
		"",
		"Path of a dotenv file carrying secrets (default: ./.env if present)",
	)
	cmd.Flags().StringVarP(
		&flagLogLevel,
		"log-level",
		"l",
		"info",
		"Log level: debug, info, warn, error, panic, fatal",
	)
	cmd.Flags().StringVar(
		&flagLogFormat,
		"log-format",
		defaultLogFormat,
		"Log format: console, json",
	)
	cmd.Flags().IntVar(
		&conf.RPC.Port,
		"rpc-port",
		server.DefaultRPCPort,
		"RPC port",
	)
	cmd.Flags().IntVar(
		&conf.RPC.HealthPort,
		"health-port",
		server.DefaultHealthPort,
		"gRPC health service port",
	)
	cmd.Flags().StringVar(
		&conf.RPC.CertFile,
		"rpc-cert-file",
		"",
		"RPC certification file's path",
	)
	cmd.Flags().StringVar(
		&conf.RPC.KeyFile,
		"rpc-key-file",
		"",
		"RPC key file's path",
	)
	cmd.Flags().Uint64Var(
		&conf.RPC.MaxRequestBytes,
		"rpc-max-requests-bytes",
		server.DefaultMaxRequestBytes,
		"Maximum client request size in bytes the server will accept.",
	)
	cmd.Flags().DurationVar(
		&readTimeout,
		"rpc-read-timeout",
		server.DefaultReadTimeout,
		"Maximum duration for reading request headers.",
	)
	cmd.Flags().DurationVar(
		&pingInterval,
		"rpc-ping-interval",
		server.DefaultPingInterval,
		"Interval of keepalive pings on event streams.",
	)
	cmd.Flags().IntVar(
		&conf.Profiling.Port,
		"profiling-port",
		server.DefaultProfilingPort,
		"Profiling port",
	)
	cmd.Flags().BoolVar(
		&conf.Profiling.EnablePprof,
		"enable-pprof",
		false,
		"Enable runtime profiling data via HTTP server.",
	)
	cmd.Flags().DurationVar(
		&housekeepingInterval,
		"housekeeping-interval",
		server.DefaultHousekeepingInterval,
		"housekeeping interval between housekeeping runs",
	)
	cmd.Flags().DurationVar(
		&sessionTTL,
		"session-ttl",
		server.DefaultSessionTTL,
		"How long a session lives after its creation.",
	)
	cmd.Flags().DurationVar(
		&lockTimeout,
		"lock-timeout",
		server.DefaultLockTimeout,
		"How long a field lock lives without being refreshed.",
	)
	cmd.Flags().DurationVar(
		&lockSweepInterval,
		"lock-sweep-interval",
		server.DefaultLockSweepInterval,
		"Interval at which idle sessions expire their field locks.",
	)
	cmd.Flags().IntVar(
		&conf.Backend.CommandQueueSize,
		"command-queue-size",
		server.DefaultCommandQueueSize,
		"Number of commands queued per session.",
	)
	cmd.Flags().IntVar(
		&conf.Backend.SubscriberBufferSize,
		"subscriber-buffer-size",
		server.DefaultSubscriberBufferSize,
		"Number of events buffered per event stream before dropping.",
	)
	cmd.Flags().IntVar(
		&conf.Backend.MaxSubscribersPerSession,
		"max-subscribers-per-session",
		server.DefaultMaxSubscribersPerSession,
		"Maximum number of event streams per session. 0 means unlimited.",
	)
	cmd.Flags().StringVar(
		&mongoConnectionURI,
		"mongo-connection-uri",
		"",
		"MongoDB's connection URI",
	)
	cmd.Flags().DurationVar(
		&mongoConnectionTimeout,
		"mongo-connection-timeout",
		server.DefaultMongoConnectionTimeout,
		"Mongo DB's connection timeout",
	)
	cmd.Flags().StringVar(
		&mongoDatabase,
		"mongo-database",
		server.DefaultMongoDatabase,
		"formsync's database name in MongoDB",
	)
	cmd.Flags().DurationVar(
		&mongoPingTimeout,
		"mongo-ping-timeout",
		server.DefaultMongoPingTimeout,
		"Mongo DB's ping timeout",
	)
	cmd.Flags().StringVar(
		&redisAddress,
		"redis-address",
		defaultRedisAddress,
		"Address of the redis server relaying events between nodes",
	)
	cmd.Flags().IntVar(
		&redisDB,
		"redis-db",
		0,
		"Redis database number",
	)
	cmd.Flags().StringVar(
		&redisChannelPrefix,
		"redis-channel-prefix",
		server.DefaultRedisChannelPrefix,
		"Prefix of the redis channel of each session",
	)
	cmd.Flags().IntVar(
		&redisQueueSize,
		"redis-queue-size",
		server.DefaultRedisQueueSize,
		"Number of outbound events buffered for redis",
	)
	cmd.Flags().DurationVar(
		&redisDialTimeout,
		"redis-dial-timeout",
		server.DefaultRedisDialTimeout,
		"Timeout of the initial redis ping",
	)
	cmd.Flags().StringVar(
		&conf.Backend.Hostname,
		"hostname",
		server.DefaultHostname,
		"formsync Server Hostname",
	)

	rootCmd.AddCommand(cmd)
}
