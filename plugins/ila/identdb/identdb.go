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
	"sort"
	"sync"

	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"
)

// Driver creates connections to one kind of key-value store.
type Driver interface {
	// Init prepares a connection to the store at host:port. Nothing is sent
	// over the network until Conn.Start.
	Init(log logging.Logger, host string, port uint16) (Conn, error)

	// DefaultHost returns the host used when none is configured.
	DefaultHost() string

	// DefaultPort returns the port used when none is configured.
	DefaultPort() uint16
}

// Conn is a connection to the identifier DB.
type Conn interface {
	// Configure applies backend specific options (auth, TLS, timeouts, ...)
	// given as a single YAML flow mapping, e.g. "{password: secret, db: 1}".
	Configure(options string) error

	// Start opens the session with the store. It does not retry.
	Start(ctx context.Context) error

	// Write stores value under key, replacing any previous value.
	Write(ctx context.Context, key, value []byte) error

	// Delete removes key. Deleting a key that does not exist is not an error.
	Delete(ctx context.Context, key []byte) error

	// Read returns value stored under key.
	Read(ctx context.Context, key []byte) (value []byte, found bool, err error)

	// Close terminates the session. The connection cannot be used afterwards.
	Close() error
}

var (
	driversMu sync.RWMutex
	drivers   = map[string]Driver{}
)

// Register makes a driver available under the given name.
// It panics if the name is empty or already taken.
func Register(name string, driver Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()

	if name == "" || driver == nil {
		panic("identdb: Register called with empty name or nil driver")
	}
	if _, dup := drivers[name]; dup {
		panic("identdb: Register called twice for driver " + name)
	}
	drivers[name] = driver
}

// Lookup returns driver registered under the given name.
func Lookup(name string) (Driver, error) {
	driversMu.RLock()
	defer driversMu.RUnlock()

	driver, found := drivers[name]
	if !found {
		return nil, NewError(ConnectFailed, name, errors.Errorf("unknown backend (available: %v)", listDrivers()))
	}
	return driver, nil
}

// Drivers returns sorted names of the registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	return listDrivers()
}

func listDrivers() []string {
	var names []string
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
