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

package ila

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/ligato/cn-infra/logging"
	"github.com/ligato/cn-infra/utils/safeclose"
	"github.com/pkg/errors"

	"github.com/contiv/gtpila/plugins/ila/identdb"
	"github.com/contiv/gtpila/plugins/ila/ilaaddr"
)

const (
	// DefaultOpTimeout bounds every write and delete in the identifier DB.
	DefaultOpTimeout = 300 * time.Millisecond

	// name used in errors that are not produced by a backend
	mapperName = "ila"
)

// BackendConfig selects and addresses the identifier DB.
type BackendConfig struct {
	// Name of the backend, used to look up Driver if it is nil.
	Name string

	Driver identdb.Driver

	// Host and Port default to the driver defaults.
	Host string
	Port uint16

	// Options are passed to Conn.Configure (skipped if empty).
	Options string
}

// Mapper maintains identifier entries of this node in the identifier DB.
// It owns the DB connection; Start, Stop and all DB operations are
// serialized.
type Mapper struct {
	log     logging.Logger
	locID   uint64
	timeout time.Duration
	metrics *Metrics

	mu       sync.Mutex
	calls    identdb.Ordered
	conn     identdb.Conn
	backend  string
	endpoint string
}

// MapperOption customizes Mapper.
type MapperOption func(*Mapper)

// WithTimeout sets the timeout of a single DB operation.
func WithTimeout(timeout time.Duration) MapperOption {
	return func(m *Mapper) {
		if timeout > 0 {
			m.timeout = timeout
		}
	}
}

// WithMetrics makes the mapper count its operations.
func WithMetrics(metrics *Metrics) MapperOption {
	return func(m *Mapper) {
		m.metrics = metrics
	}
}

// NewMapper creates mapper for the given locator id. The mapper cannot be
// used until it is started.
func NewMapper(log logging.Logger, locID uint64, opts ...MapperOption) *Mapper {
	m := &Mapper{
		log:     log,
		locID:   locID,
		timeout: DefaultOpTimeout,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// LocID returns the locator id stored with every entry.
func (m *Mapper) LocID() uint64 {
	return m.locID
}

// Backend returns the name of the started backend, empty if not started.
func (m *Mapper) Backend() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backend
}

// Endpoint returns host:port of the started backend.
func (m *Mapper) Endpoint() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endpoint
}

// Started returns true if the DB connection is up.
func (m *Mapper) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

// Start initializes, configures and starts the DB connection. If any of
// the steps fails the connection is discarded and the mapper stays stopped.
func (m *Mapper) Start(ctx context.Context, cfg BackendConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil {
		return identdb.NewError(identdb.StartFailed, cfg.Name,
			errors.Errorf("identifier DB %s already started", m.backend))
	}

	driver := cfg.Driver
	if driver == nil {
		var err error
		if driver, err = identdb.Lookup(cfg.Name); err != nil {
			m.log.Warnf("Unable to get identifier DB backend %s: %v", cfg.Name, err)
			return err
		}
	}
	host, port := cfg.Host, cfg.Port
	if host == "" {
		host = driver.DefaultHost()
	}
	if port == 0 {
		port = driver.DefaultPort()
	}

	conn, err := driver.Init(m.log, host, port)
	if err != nil {
		m.log.Warnf("Init identifier DB %s at [%s]:%d failed: %v", cfg.Name, host, port, err)
		return err
	}
	if cfg.Options != "" {
		if err = conn.Configure(cfg.Options); err != nil {
			m.log.Warnf("Parse options %s of identifier DB %s failed: %v", identdb.RedactOptions(cfg.Options), cfg.Name, err)
			safeclose.Close(conn)
			return err
		}
	}
	if err = conn.Start(ctx); err != nil {
		m.log.Warnf("Start identifier DB %s at [%s]:%d failed: %v", cfg.Name, host, port, err)
		safeclose.Close(conn)
		return err
	}

	m.conn = conn
	m.backend = cfg.Name
	m.endpoint = net.JoinHostPort(host, strconv.Itoa(int(port)))
	m.metrics.setBackendUp(true)
	m.log.Infof("Started identifier DB %s at %s", m.backend, m.endpoint)
	return nil
}

// Stop closes the DB connection. Entries already written stay in the DB.
func (m *Mapper) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return nil
	}
	err := safeclose.Close(m.conn)
	if err != nil {
		m.log.Warnf("Closing identifier DB %s failed: %v", m.backend, err)
	} else {
		m.log.Infof("Stopped identifier DB %s", m.backend)
	}
	m.conn = nil
	m.backend = ""
	m.endpoint = ""
	m.metrics.setBackendUp(false)
	return err
}

// CreateMapping writes the entry for addr if it is an ILA address.
// Skipped is returned with nil error for other addresses; on error the
// result is Failed. Nothing is retried.
func (m *Mapper) CreateMapping(ctx context.Context, addr net.IP) (Result, ilaaddr.Identifier, error) {
	c := ilaaddr.Classify(addr)
	if !c.Eligible {
		m.log.Debugf("Address %v is not an ILA address, no identifier entry created", addr)
		m.metrics.observe(opCreate, resultSkipped)
		return Skipped, 0, nil
	}

	entry := &Entry{Address: append(net.IP(nil), addr.To16()...), LocID: m.locID}
	value, err := entry.MarshalBinary()
	if err == nil {
		err = m.write(ctx, EncodeKey(c.Identifier), value)
	}
	if err != nil {
		m.log.Warnf("Create ILA identifier %v (%d) for %v failed: %v", c.Identifier, uint64(c.Identifier), addr, err)
		m.metrics.observe(opCreate, resultFailed)
		return Failed, c.Identifier, err
	}

	m.log.Debugf("Created ILA identifier %v for %v (type %v, locID %d)", c.Identifier, addr, c.Identifier.Type(), m.locID)
	m.metrics.observe(opCreate, resultCreated)
	return Created, c.Identifier, nil
}

// RemoveMapping deletes the entry of the identifier. Removing an identifier
// that is not in the DB succeeds.
func (m *Mapper) RemoveMapping(ctx context.Context, id ilaaddr.Identifier) error {
	err := m.delete(ctx, EncodeKey(id))
	if err != nil {
		m.log.Warnf("Remove ILA identifier %v (%d) failed, entry may be stale: %v", id, uint64(id), err)
		m.metrics.observe(opRemove, resultFailed)
		return err
	}
	m.log.Debugf("Removed ILA identifier %v", id)
	m.metrics.observe(opRemove, resultOK)
	return nil
}

// LookupMapping reads the entry of the identifier.
func (m *Mapper) LookupMapping(ctx context.Context, id ilaaddr.Identifier) (*Entry, bool, error) {
	value, found, err := m.read(ctx, EncodeKey(id))
	if err != nil {
		m.log.Warnf("Lookup ILA identifier %v (%d) failed: %v", id, uint64(id), err)
		m.metrics.observe(opLookup, resultFailed)
		return nil, false, err
	}
	m.metrics.observe(opLookup, resultOK)
	if !found {
		return nil, false, nil
	}
	entry := &Entry{}
	if err = entry.UnmarshalBinary(value); err != nil {
		err = errors.Wrapf(err, "entry of ILA identifier %v", id)
		m.log.Warnf("Lookup ILA identifier %v: %v", id, err)
		return nil, false, err
	}
	return entry, true, nil
}

// TestWrite writes the entry for the textual address regardless of any
// session. It is used to verify the DB setup while the configuration is
// being applied.
func (m *Mapper) TestWrite(ctx context.Context, address string) error {
	addr, err := ilaaddr.ParseAddress(address)
	if err != nil {
		m.log.Warnf("Invalid test address %q: %v", address, err)
		m.metrics.observe(opTestWrite, resultFailed)
		return identdb.NewError(identdb.InvalidConfig, mapperName, err)
	}
	result, id, err := m.CreateMapping(ctx, addr)
	if err != nil {
		m.log.Warnf("Set ident entry %v %s to %d failed: %v", id, address, m.locID, err)
		m.metrics.observe(opTestWrite, resultFailed)
		return errors.Wrapf(err, "test write of %s", address)
	}
	if result == Skipped {
		m.log.Warnf("Test address %s is not an ILA address, nothing was written", address)
		m.metrics.observe(opTestWrite, resultSkipped)
		return nil
	}
	m.metrics.observe(opTestWrite, resultOK)
	return nil
}

func (m *Mapper) write(ctx context.Context, key, value []byte) error {
	return m.do(ctx, identdb.WriteFailed, func(ctx context.Context, conn identdb.Conn) error {
		return conn.Write(ctx, key, value)
	})
}

func (m *Mapper) delete(ctx context.Context, key []byte) error {
	return m.do(ctx, identdb.DeleteFailed, func(ctx context.Context, conn identdb.Conn) error {
		return conn.Delete(ctx, key)
	})
}

func (m *Mapper) read(ctx context.Context, key []byte) ([]byte, bool, error) {
	var (
		data []byte
		ok   bool
	)
	err := m.do(ctx, identdb.ReadFailed, func(ctx context.Context, conn identdb.Conn) (err error) {
		data, ok, err = conn.Read(ctx, key)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return data, ok, nil
}

// do runs op on the active connection under the operation timeout. An op
// abandoned at the timeout delays the next one, ops never overtake each other.
// Errors not reported by the backend itself (timeouts) are given the failure
// kind.
func (m *Mapper) do(ctx context.Context, kind identdb.Kind, op func(context.Context, identdb.Conn) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return identdb.NewError(identdb.NotStarted, mapperName, errors.New("identifier DB is not started"))
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	conn := m.conn
	err := m.calls.Call(ctx, func() error {
		return op(ctx, conn)
	})
	if err != nil && identdb.KindOf(err) == 0 {
		err = identdb.NewError(kind, m.backend, err)
	}
	return err
}
