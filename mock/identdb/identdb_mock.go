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

package identdb

import (
	"context"
	"strings"
	"sync"

	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"

	"github.com/contiv/gtpila/mock/broker"
	"github.com/contiv/gtpila/plugins/ila/identdb"
)

// Name of the mock backend.
const Name = "mock"

// MockDriver creates connections backed by an in-memory broker shared by
// all of them. Failures of the setup steps can be injected.
type MockDriver struct {
	sync.Mutex
	Broker *broker.MockBroker

	InitErr      error
	ConfigureErr error
	StartErr     error

	// recorded calls
	Host    string
	Port    uint16
	Options string
	Starts  int
	Closes  int
}

// NewMockDriver returns driver with an empty broker.
func NewMockDriver() *MockDriver {
	return &MockDriver{Broker: broker.NewMockBroker()}
}

// DefaultHost returns "::1".
func (d *MockDriver) DefaultHost() string {
	return "::1"
}

// DefaultPort returns 6380.
func (d *MockDriver) DefaultPort() uint16 {
	return 6380
}

// Init records the endpoint.
func (d *MockDriver) Init(log logging.Logger, host string, port uint16) (identdb.Conn, error) {
	d.Lock()
	defer d.Unlock()

	d.Host, d.Port = host, port
	if d.InitErr != nil {
		return nil, identdb.NewError(identdb.ConnectFailed, Name, d.InitErr)
	}
	return &mockConn{driver: d, log: log}, nil
}

type mockConn struct {
	driver *MockDriver
	log    logging.Logger
	db     *identdb.BrokerConn
}

func (c *mockConn) Configure(options string) error {
	c.driver.Lock()
	defer c.driver.Unlock()

	if c.driver.ConfigureErr != nil {
		return identdb.NewError(identdb.InvalidConfig, Name, c.driver.ConfigureErr)
	}
	var opts struct {
		Tag      string `json:"tag"`
		Password string `json:"password"`
	}
	if err := identdb.ParseOptions(options, &opts); err != nil {
		return identdb.NewError(identdb.InvalidConfig, Name, err)
	}
	c.driver.Options = strings.TrimSpace(options)
	return nil
}

func (c *mockConn) Start(ctx context.Context) error {
	c.driver.Lock()
	defer c.driver.Unlock()

	c.driver.Starts++
	if c.driver.StartErr != nil {
		return identdb.NewError(identdb.StartFailed, Name, c.driver.StartErr)
	}
	if c.db != nil {
		return identdb.NewError(identdb.StartFailed, Name, errors.New("already started"))
	}
	c.db = identdb.NewBrokerConn(Name, c.log, c.driver.Broker, identdb.RawKey, nil)
	return nil
}

func (c *mockConn) session() (*identdb.BrokerConn, error) {
	c.driver.Lock()
	defer c.driver.Unlock()

	if c.db == nil {
		return nil, identdb.NewError(identdb.NotStarted, Name, nil)
	}
	return c.db, nil
}

func (c *mockConn) Write(ctx context.Context, key, value []byte) error {
	db, err := c.session()
	if err != nil {
		return err
	}
	return db.Write(ctx, key, value)
}

func (c *mockConn) Delete(ctx context.Context, key []byte) error {
	db, err := c.session()
	if err != nil {
		return err
	}
	return db.Delete(ctx, key)
}

func (c *mockConn) Read(ctx context.Context, key []byte) ([]byte, bool, error) {
	db, err := c.session()
	if err != nil {
		return nil, false, err
	}
	return db.Read(ctx, key)
}

func (c *mockConn) Close() error {
	c.driver.Lock()
	defer c.driver.Unlock()

	c.driver.Closes++
	c.db = nil
	return nil
}
