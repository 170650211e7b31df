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

// Package etcd registers the "etcd" identifier DB backend. Entries are
// stored under "<prefix><hex key>", the default prefix is "/ila/ident/".
package etcd

import (
	"context"
	"encoding/hex"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ligato/cn-infra/db/keyval/etcd"
	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"

	"github.com/contiv/gtpila/plugins/ila/identdb"
)

const (
	// Name is the name the backend is registered under.
	Name = "etcd"

	// DefaultHost is the etcd host used when none is configured.
	DefaultHost = "127.0.0.1"

	// DefaultPort is the etcd client port.
	DefaultPort = 2379

	// DefaultPrefix is the prefix of all identifier keys.
	DefaultPrefix = "/ila/ident/"

	defaultDialTimeout = 2 * time.Second
)

func init() {
	identdb.Register(Name, &Driver{})
}

// Options are the backend options accepted by Configure.
type Options struct {
	Prefix                string           `json:"prefix"`
	Username              string           `json:"username"`
	Password              string           `json:"password"`
	DialTimeout           identdb.Duration `json:"dial-timeout"`
	OpTimeout             identdb.Duration `json:"operation-timeout"`
	InsecureTransport     bool             `json:"insecure-transport"`
	InsecureSkipTLSVerify bool             `json:"insecure-skip-tls-verify"`
	CertFile              string           `json:"cert-file"`
	KeyFile               string           `json:"key-file"`
	CAFile                string           `json:"ca-file"`
}

// Driver creates etcd connections.
type Driver struct{}

// DefaultHost returns 127.0.0.1.
func (d *Driver) DefaultHost() string {
	return DefaultHost
}

// DefaultPort returns 2379.
func (d *Driver) DefaultPort() uint16 {
	return DefaultPort
}

// Init prepares connection to the etcd member at host:port.
func (d *Driver) Init(log logging.Logger, host string, port uint16) (identdb.Conn, error) {
	if host == "" || port == 0 {
		return nil, identdb.NewError(identdb.ConnectFailed, Name,
			errors.Errorf("invalid endpoint %q:%d", host, port))
	}
	return &Conn{
		log:      log,
		endpoint: net.JoinHostPort(host, strconv.Itoa(int(port))),
		options: Options{
			Prefix:            DefaultPrefix,
			DialTimeout:       identdb.Duration(defaultDialTimeout),
			InsecureTransport: true,
		},
	}, nil
}

// Conn is a connection to an etcd cluster.
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
	if !strings.HasPrefix(opts.Prefix, "/") {
		return identdb.NewError(identdb.InvalidConfig, Name,
			errors.Errorf("prefix %q must start with '/'", opts.Prefix))
	}
	if !strings.HasSuffix(opts.Prefix, "/") {
		opts.Prefix += "/"
	}
	c.options = opts
	return nil
}

// etcdConfig translates options into cn-infra etcd configuration.
func (c *Conn) etcdConfig() *etcd.Config {
	return &etcd.Config{
		Endpoints:             []string{c.endpoint},
		DialTimeout:           time.Duration(c.options.DialTimeout),
		OpTimeout:             time.Duration(c.options.OpTimeout),
		InsecureTransport:     c.options.InsecureTransport,
		InsecureSkipTLSVerify: c.options.InsecureSkipTLSVerify,
		Certfile:              c.options.CertFile,
		Keyfile:               c.options.KeyFile,
		CAfile:                c.options.CAFile,
	}
}

// Start connects to etcd.
func (c *Conn) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return identdb.NewError(identdb.StartFailed, Name, errors.New("already started"))
	}

	clientCfg, err := etcd.ConfigToClient(c.etcdConfig())
	if err != nil {
		return identdb.NewError(identdb.StartFailed, Name, err)
	}
	clientCfg.Username = c.options.Username
	clientCfg.Password = c.options.Password

	closer, err := identdb.Open(ctx, func() (io.Closer, error) {
		bytesConn, err := etcd.NewEtcdConnectionWithBytes(*clientCfg, c.log)
		if err != nil {
			return nil, err
		}
		return bytesConn, nil
	})
	if err != nil {
		return identdb.NewError(identdb.StartFailed, Name, errors.Wrapf(err, "connect %s", c.endpoint))
	}
	bytesConn := closer.(*etcd.BytesConnectionEtcd)

	c.db = identdb.NewBrokerConn(Name, c.log, bytesConn.NewBroker(c.options.Prefix), hexKey, bytesConn)
	c.log.Infof("Connected to etcd identifier DB at %s (prefix %s)", c.endpoint, c.options.Prefix)
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

// Close closes the etcd client.
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

func hexKey(key []byte) string {
	return hex.EncodeToString(key)
}
