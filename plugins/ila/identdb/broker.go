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
	"io"
	"sync"

	"github.com/ligato/cn-infra/db/keyval"
	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"
)

// KeyFunc converts binary key into the key used by the broker.
type KeyFunc func(key []byte) string

// RawKey uses the key bytes as they are.
func RawKey(key []byte) string {
	return string(key)
}

// BrokerConn implements Write, Delete and Read of the Conn interface on top
// of a cn-infra bytes broker. Every call is bounded by the context passed
// in; a call still pending at the deadline is reported as failed and the
// next call waits for it (see Ordered).
type BrokerConn struct {
	backend string
	log     logging.Logger
	broker  keyval.BytesBroker
	keyFunc KeyFunc
	closer  io.Closer
	calls   Ordered
}

// NewBrokerConn wraps broker. Closer (may be nil) is called from Close.
func NewBrokerConn(backend string, log logging.Logger, broker keyval.BytesBroker,
	keyFunc KeyFunc, closer io.Closer) *BrokerConn {
	if keyFunc == nil {
		keyFunc = RawKey
	}
	return &BrokerConn{
		backend: backend,
		log:     log,
		broker:  broker,
		keyFunc: keyFunc,
		closer:  closer,
	}
}

// Write puts value under key.
func (bc *BrokerConn) Write(ctx context.Context, key, value []byte) error {
	k := bc.keyFunc(key)
	err := bc.calls.Call(ctx, func() error {
		return bc.broker.Put(k, value)
	})
	if err != nil {
		return NewError(WriteFailed, bc.backend, errors.Wrapf(err, "put %q", k))
	}
	return nil
}

// Delete removes key. A key that does not exist is ignored.
func (bc *BrokerConn) Delete(ctx context.Context, key []byte) error {
	k := bc.keyFunc(key)
	var existed bool
	err := bc.calls.Call(ctx, func() (err error) {
		existed, err = bc.broker.Delete(k)
		return err
	})
	if err != nil {
		return NewError(DeleteFailed, bc.backend, errors.Wrapf(err, "delete %q", k))
	}
	if !existed {
		bc.log.Debugf("%s: key %q was not present", bc.backend, k)
	}
	return nil
}

// Read gets value stored under key.
func (bc *BrokerConn) Read(ctx context.Context, key []byte) ([]byte, bool, error) {
	k := bc.keyFunc(key)
	var (
		data  []byte
		found bool
	)
	err := bc.calls.Call(ctx, func() (err error) {
		data, found, _, err = bc.broker.GetValue(k)
		return err
	})
	if err != nil {
		return nil, false, NewError(ReadFailed, bc.backend, errors.Wrapf(err, "get %q", k))
	}
	return data, found, nil
}

// Close calls the closer passed to NewBrokerConn.
func (bc *BrokerConn) Close() error {
	if bc.closer == nil {
		return nil
	}
	return bc.closer.Close()
}

// Call runs fn and waits until it returns or ctx is done, whichever comes
// first. The result of fn is dropped if ctx expires first.
func Call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Open runs open under ctx like Call. A connection that open returns after
// ctx expired is closed.
func Open(ctx context.Context, open func() (io.Closer, error)) (io.Closer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	type result struct {
		conn io.Closer
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := open()
		done <- result{conn: conn, err: err}
	}()
	select {
	case res := <-done:
		return res.conn, res.err
	case <-ctx.Done():
		go func() {
			if res := <-done; res.err == nil && res.conn != nil {
				res.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// Ordered runs calls one at a time, in the order they are made. A call
// abandoned because its context expired keeps blocking the following calls
// until it returns; a later operation never overtakes an earlier one.
// The zero value is ready to use.
type Ordered struct {
	mu      sync.Mutex
	pending chan struct{}
}

// Call runs fn like the package-level Call. If a previous call is still
// running, Call first waits for it; if ctx expires meanwhile, fn is not run.
func (o *Ordered) Call(ctx context.Context, fn func() error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pending != nil {
		select {
		case <-o.pending:
			o.pending = nil
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "previous operation still pending")
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var err error
	done := make(chan struct{})
	go func() {
		err = fn()
		close(done)
	}()
	select {
	case <-done:
		return err
	case <-ctx.Done():
		o.pending = done
		return ctx.Err()
	}
}

// Pending returns true if an abandoned call has not returned yet.
func (o *Ordered) Pending() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pending == nil {
		return false
	}
	select {
	case <-o.pending:
		o.pending = nil
		return false
	default:
		return true
	}
}
