// Copyright (c) 2019 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package redis registers the "redis" identifier DB backend. Identifier
// entries are stored under their binary key, so the same Redis database
// can be shared with the Linux ILA tools.
package redis

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/ligato/cn-infra/db/keyval/redis"
	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"

	"github.com/contiv/gtpila/plugins/ila/identdb"
)

const (
	// Name is the name the backend is registered under.
	Name = "redis"

	// DefaultHost is the host of the identifier DB used by ILA nodes.
	DefaultHost = "::1"

	// DefaultPort is the port of the identifier DB used by ILA nodes.
	DefaultPort = 6380

	defaultDialTimeout = 2 * time.Second
)

func init() {
	identdb.Register(Name, &Driver{})
}

// Options are the backend options accepted by Configure.
type Options struct {
	DB           int              `json:"db"`
	Password     string           `json:"password"`
	DialTimeout  identdb.Duration `json:"dial-timeout"`
	ReadTimeout  identdb.Duration `json:"read-timeout"`
	WriteTimeout identdb.Duration `json:"write-timeout"`
	PoolSize     int              `json:"pool-size"`
	TLS          TLSOptions       `json:"tls"`
}

// TLSOptions configure TLS towards Redis.
type TLSOptions struct {
	Enabled    bool   `json:"enabled"`
	SkipVerify bool   `json:"skip-verify"`
	CertFile   string `json:"cert-file"`
	KeyFile    string `json:"key-file"`
	CAFile     string `json:"ca-file"`
}

// Driver creates Redis connections.
type Driver struct{}

// DefaultHost returns ::1.
func (d *Driver) DefaultHost() string {
	return DefaultHost
}

// DefaultPort returns 6380.
func (d *Driver) DefaultPort() uint16 {
	return DefaultPort
}

// Init prepares connection to the Redis server at host:port.
func (d *Driver) Init(log logging.Logger, host string, port uint16) (identdb.Conn, error) {
	if host == "" || port == 0 {
		return nil, identdb.NewError(identdb.ConnectFailed, Name,
			errors.Errorf("invalid endpoint %q:%d", host, port))
	}
	return &Conn{
		log:      log,
		endpoint: net.JoinHostPort(host, strconv.Itoa(int(port))),
		options:  Options{DialTimeout: identdb.Duration(defaultDialTimeout)},
	}, nil
}

// Conn is a connection to a single Redis node.
type Conn struct {
	log      logging.Logger
	endpoint string
	options  Options

	mu sync.Mutex
	db *identdb.BrokerConn
}

// Configure parses Options.
func (c *Conn) Configure(options string) error {
	opts := c.options
	if err := identdb.ParseOptions(options, &opts); err != nil {
		return identdb.NewError(identdb.InvalidConfig, Name, err)
	}
	if opts.DB < 0 || opts.PoolSize < 0 {
		return identdb.NewError(identdb.InvalidConfig, Name,
			errors.Errorf("negative db (%d) or pool-size (%d)", opts.DB, opts.PoolSize))
	}
	if opts.TLS.Enabled && (opts.TLS.CertFile == "") != (opts.TLS.KeyFile == "") {
		return identdb.NewError(identdb.InvalidConfig, Name,
			errors.New("tls cert-file and key-file must be given together"))
	}
	c.options = opts
	return nil
}

// nodeConfig translates options into cn-infra Redis configuration.
func (c *Conn) nodeConfig() redis.NodeConfig {
	cfg := redis.NodeConfig{
		Endpoint: c.endpoint,
		DB:       c.options.DB,
		TLS: redis.TLS{
			Enabled:    c.options.TLS.Enabled,
			SkipVerify: c.options.TLS.SkipVerify,
			Certfile:   c.options.TLS.CertFile,
			Keyfile:    c.options.TLS.KeyFile,
			CAfile:     c.options.TLS.CAFile,
		},
	}
	cfg.Password = c.options.Password
	cfg.DialTimeout = time.Duration(c.options.DialTimeout)
	cfg.ReadTimeout = time.Duration(c.options.ReadTimeout)
	cfg.WriteTimeout = time.Duration(c.options.WriteTimeout)
	cfg.Pool.PoolSize = c.options.PoolSize
	return cfg
}

// Start creates the client and checks the server is reachable.
func (c *Conn) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return identdb.NewError(identdb.StartFailed, Name, errors.New("already started"))
	}

	client, err := redis.ConfigToClient(c.nodeConfig())
	if err != nil {
		return identdb.NewError(identdb.StartFailed, Name, err)
	}
	err = identdb.Call(ctx, func() error {
		return client.Ping().Err()
	})
	if err != nil {
		client.Close()
		return identdb.NewError(identdb.StartFailed, Name, errors.Wrapf(err, "ping %s", c.endpoint))
	}

	bytesConn, err := redis.NewBytesConnection(client, c.log)
	if err != nil {
		client.Close()
		return identdb.NewError(identdb.StartFailed, Name, err)
	}
	c.db = identdb.NewBrokerConn(Name, c.log, bytesConn, identdb.RawKey, bytesConn)
	c.log.Infof("Connected to Redis identifier DB at %s (db %d)", c.endpoint, c.options.DB)
	return nil
}

// session returns the started broker connection.
func (c *Conn) session() (*identdb.BrokerConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil, identdb.NewError(identdb.NotStarted, Name, nil)
	}
	return c.db, nil
}

// Write stores value under key.
func (c *Conn) Write(ctx context.Context, key, value []byte) error {
	db, err := c.session()
	if err != nil {
		return err
	}
	return db.Write(ctx, key, value)
}

// Delete removes key.
func (c *Conn) Delete(ctx context.Context, key []byte) error {
	db, err := c.session()
	if err != nil {
		return err
	}
	return db.Delete(ctx, key)
}

// Read returns value stored under key.
func (c *Conn) Read(ctx context.Context, key []byte) ([]byte, bool, error) {
	db, err := c.session()
	if err != nil {
		return nil, false, err
	}
	return db.Read(ctx, key)
}

// Close closes the client.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}
