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

package broker

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ligato/cn-infra/datasync"
	"github.com/ligato/cn-infra/db/keyval"
)

// MockBroker is an in-memory keyval.BytesBroker with injectable failures
// and latency.
type MockBroker struct {
	sync.Mutex
	Data map[string][]byte

	// errors returned by the respective operations when set
	PutErr    error
	DeleteErr error
	GetErr    error

	// Delay is applied before every operation.
	Delay time.Duration

	// operation counters
	Puts    int
	Deletes int
	Gets    int
}

// NewMockBroker returns empty broker.
func NewMockBroker() *MockBroker {
	return &MockBroker{Data: map[string][]byte{}}
}

// Keys returns sorted keys of all stored values.
func (mb *MockBroker) Keys() []string {
	mb.Lock()
	defer mb.Unlock()

	var res []string
	for k := range mb.Data {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

// Put stores a copy of data.
func (mb *MockBroker) Put(key string, data []byte, opts ...datasync.PutOption) error {
	mb.wait()
	mb.Lock()
	defer mb.Unlock()

	mb.Puts++
	if mb.PutErr != nil {
		return mb.PutErr
	}
	if mb.Data == nil {
		mb.Data = map[string][]byte{}
	}
	mb.Data[key] = append([]byte(nil), data...)
	return nil
}

// Delete removes the key, found is false if there was nothing to remove.
func (mb *MockBroker) Delete(key string, opts ...datasync.DelOption) (found bool, err error) {
	mb.wait()
	mb.Lock()
	defer mb.Unlock()

	mb.Deletes++
	if mb.DeleteErr != nil {
		return false, mb.DeleteErr
	}
	_, found = mb.Data[key]
	delete(mb.Data, key)
	return found, nil
}

// GetValue returns a copy of the stored data.
func (mb *MockBroker) GetValue(key string) (data []byte, found bool, revision int64, err error) {
	mb.wait()
	mb.Lock()
	defer mb.Unlock()

	mb.Gets++
	if mb.GetErr != nil {
		return nil, false, 0, mb.GetErr
	}
	data, found = mb.Data[key]
	return append([]byte(nil), data...), found, 0, nil
}

// NewTxn is not supported.
func (mb *MockBroker) NewTxn() keyval.BytesTxn {
	return nil
}

// ListKeys returns sorted keys starting with prefix.
func (mb *MockBroker) ListKeys(prefix string) (keyval.BytesKeyIterator, error) {
	mb.wait()
	mb.Lock()
	defer mb.Unlock()

	mb.Gets++
	if mb.GetErr != nil {
		return nil, mb.GetErr
	}
	it := &mockKeyIterator{}
	for _, kv := range mb.list(prefix) {
		it.keys = append(it.keys, kv.key)
	}
	return it, nil
}

// ListValues returns copies of values with key starting with prefix, sorted
// by key.
func (mb *MockBroker) ListValues(prefix string) (keyval.BytesKeyValIterator, error) {
	mb.wait()
	mb.Lock()
	defer mb.Unlock()

	mb.Gets++
	if mb.GetErr != nil {
		return nil, mb.GetErr
	}
	return &mockKeyValIterator{values: mb.list(prefix)}, nil
}

// list must be called with the lock held.
func (mb *MockBroker) list(prefix string) []*mockKeyVal {
	var res []*mockKeyVal
	for k, v := range mb.Data {
		if strings.HasPrefix(k, prefix) {
			res = append(res, &mockKeyVal{key: k, value: append([]byte(nil), v...)})
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].key < res[j].key
	})
	return res
}

func (mb *MockBroker) wait() {
	mb.Lock()
	delay := mb.Delay
	mb.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
}

type mockKeyIterator struct {
	keys []string
	idx  int
}

// GetNext returns the next key, revisions are not tracked.
func (it *mockKeyIterator) GetNext() (key string, rev int64, stop bool) {
	if it.idx == len(it.keys) {
		return "", 0, true
	}
	key = it.keys[it.idx]
	it.idx++
	return key, 0, false
}

// Close is a mock for mockKeyIterator
func (it *mockKeyIterator) Close() error {
	return nil
}

type mockKeyValIterator struct {
	values []*mockKeyVal
	idx    int
}

// GetNext returns the next key-value pair.
func (it *mockKeyValIterator) GetNext() (kv keyval.BytesKeyVal, stop bool) {
	if it.idx == len(it.values) {
		return nil, true
	}
	kv = it.values[it.idx]
	it.idx++
	return kv, false
}

// Close is a mock for mockKeyValIterator
func (it *mockKeyValIterator) Close() error {
	return nil
}

type mockKeyVal struct {
	key   string
	value []byte
}

func (kv *mockKeyVal) GetKey() string {
	return kv.key
}

func (kv *mockKeyVal) GetValue() []byte {
	return kv.value
}

func (kv *mockKeyVal) GetPrevValue() []byte {
	return nil
}

func (kv *mockKeyVal) GetRevision() int64 {
	return 0
}
