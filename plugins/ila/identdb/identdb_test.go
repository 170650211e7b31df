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
	"sync/atomic"
	"testing"
	"time"

	"github.com/ligato/cn-infra/logging"
	"github.com/ligato/cn-infra/logging/logrus"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/contiv/gtpila/mock/broker"
)

type nopDriver struct{}

func (nopDriver) Init(log logging.Logger, host string, port uint16) (Conn, error) {
	return nil, nil
}
func (nopDriver) DefaultHost() string { return "::1" }
func (nopDriver) DefaultPort() uint16 { return 1 }

func TestRegistry(t *testing.T) {
	RegisterTestingT(t)

	Register("test-nop", nopDriver{})
	Expect(Drivers()).To(ContainElement("test-nop"))

	d, err := Lookup("test-nop")
	Expect(err).ToNot(HaveOccurred())
	Expect(d.DefaultPort()).To(BeEquivalentTo(1))

	_, err = Lookup("no-such-backend")
	Expect(err).To(HaveOccurred())
	Expect(IsKind(err, ConnectFailed)).To(BeTrue())

	Expect(func() { Register("test-nop", nopDriver{}) }).To(Panic())
	Expect(func() { Register("", nopDriver{}) }).To(Panic())
}

func TestErrorKinds(t *testing.T) {
	RegisterTestingT(t)

	cause := errors.New("connection refused")
	err := NewError(StartFailed, "redis", cause)
	Expect(err.Error()).To(Equal("redis: start failed: connection refused"))
	Expect(KindOf(err)).To(Equal(StartFailed))
	Expect(IsConfigurationError(err)).To(BeTrue())
	Expect(errors.Cause(err)).To(Equal(cause))

	wrapped := errors.Wrap(NewError(WriteFailed, "redis", cause), "create mapping")
	Expect(IsKind(wrapped, WriteFailed)).To(BeTrue())
	Expect(IsConfigurationError(wrapped)).To(BeFalse())

	Expect(KindOf(cause)).To(BeZero())
	Expect(IsKind(nil, WriteFailed)).To(BeFalse())
	Expect(NewError(NotStarted, "etcd", nil).Error()).To(Equal("etcd: not started"))
	Expect(Kind(42).String()).To(Equal("kind(42)"))
}

func TestParseOptions(t *testing.T) {
	RegisterTestingT(t)

	type opts struct {
		Password string   `json:"password"`
		DB       int      `json:"db"`
		Timeout  Duration `json:"timeout"`
	}

	var o opts
	Expect(ParseOptions("", &o)).To(Succeed())
	Expect(o).To(Equal(opts{}))

	Expect(ParseOptions("  {password: pw, db: 2, timeout: 250ms}  ", &o)).To(Succeed())
	Expect(o).To(Equal(opts{Password: "pw", DB: 2, Timeout: Duration(250 * time.Millisecond)}))

	o = opts{}
	Expect(ParseOptions("password: pw, timeout: 1000", &o)).To(Succeed())
	Expect(o).To(Equal(opts{Password: "pw", Timeout: Duration(1000)}))

	o = opts{}
	Expect(ParseOptions(`{"db": 7}`, &o)).To(Succeed())
	Expect(o.DB).To(Equal(7))

	Expect(ParseOptions("{db: 1, user: x}", &o)).ToNot(Succeed())
	Expect(ParseOptions("{db: [}", &o)).ToNot(Succeed())
	Expect(ParseOptions("{timeout: forever}", &o)).ToNot(Succeed())
}

func TestBrokerConn(t *testing.T) {
	RegisterTestingT(t)

	mb := broker.NewMockBroker()
	bc := NewBrokerConn("test", logrus.DefaultLogger(), mb, nil, nil)
	ctx := context.Background()

	// upsert
	Expect(bc.Write(ctx, []byte("k1"), []byte("v1"))).To(Succeed())
	Expect(bc.Write(ctx, []byte("k1"), []byte("v2"))).To(Succeed())
	Expect(mb.Keys()).To(Equal([]string{"k1"}))

	value, found, err := bc.Read(ctx, []byte("k1"))
	Expect(err).ToNot(HaveOccurred())
	Expect(found).To(BeTrue())
	Expect(value).To(Equal([]byte("v2")))

	// delete is idempotent
	Expect(bc.Delete(ctx, []byte("k1"))).To(Succeed())
	Expect(bc.Delete(ctx, []byte("k1"))).To(Succeed())
	Expect(bc.Delete(ctx, []byte("never-written"))).To(Succeed())
	_, found, err = bc.Read(ctx, []byte("k1"))
	Expect(err).ToNot(HaveOccurred())
	Expect(found).To(BeFalse())

	// backend failures
	mb.PutErr = errors.New("READONLY")
	Expect(IsKind(bc.Write(ctx, []byte("k2"), nil), WriteFailed)).To(BeTrue())
	mb.DeleteErr = errors.New("connection reset")
	Expect(IsKind(bc.Delete(ctx, []byte("k2")), DeleteFailed)).To(BeTrue())
	mb.GetErr = errors.New("connection reset")
	_, _, err = bc.Read(ctx, []byte("k2"))
	Expect(IsKind(err, ReadFailed)).To(BeTrue())

	Expect(bc.Close()).To(Succeed())
}

func TestBrokerConnTimeout(t *testing.T) {
	RegisterTestingT(t)

	mb := broker.NewMockBroker()
	mb.Delay = 500 * time.Millisecond
	bc := NewBrokerConn("test", logrus.DefaultLogger(), mb, RawKey, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := bc.Delete(ctx, []byte("k"))
	Expect(time.Since(start)).To(BeNumerically("<", 400*time.Millisecond))
	Expect(IsKind(err, DeleteFailed)).To(BeTrue())
	Expect(errors.Cause(err)).To(Equal(context.DeadlineExceeded))

	// already expired context fails without touching the broker
	err = bc.Write(ctx, []byte("k"), []byte("v"))
	Expect(IsKind(err, WriteFailed)).To(BeTrue())
}

func TestOrderedCalls(t *testing.T) {
	RegisterTestingT(t)

	var (
		calls   Ordered
		release = make(chan struct{})
		later   int32
	)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := calls.Call(ctx, func() error {
		<-release
		return nil
	})
	Expect(err).To(Equal(context.DeadlineExceeded))
	Expect(calls.Pending()).To(BeTrue())

	// the next call waits for the abandoned one and gives up with it
	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	err = calls.Call(ctx2, func() error {
		atomic.AddInt32(&later, 1)
		return nil
	})
	Expect(errors.Cause(err)).To(Equal(context.DeadlineExceeded))
	Expect(atomic.LoadInt32(&later)).To(BeZero())

	close(release)
	Expect(calls.Call(context.Background(), func() error {
		atomic.AddInt32(&later, 1)
		return nil
	})).To(Succeed())
	Expect(atomic.LoadInt32(&later)).To(BeEquivalentTo(1))
	Expect(calls.Pending()).To(BeFalse())
}

type countingCloser struct {
	closes int32
}

func (c *countingCloser) Close() error {
	atomic.AddInt32(&c.closes, 1)
	return nil
}

func TestOpen(t *testing.T) {
	RegisterTestingT(t)

	conn := &countingCloser{}
	opened, err := Open(context.Background(), func() (io.Closer, error) {
		return conn, nil
	})
	Expect(err).ToNot(HaveOccurred())
	Expect(opened).To(BeIdenticalTo(conn))
	Expect(atomic.LoadInt32(&conn.closes)).To(BeZero())

	// connection completed after the deadline is not leaked
	late := &countingCloser{}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	opened, err = Open(ctx, func() (io.Closer, error) {
		time.Sleep(100 * time.Millisecond)
		return late, nil
	})
	Expect(err).To(Equal(context.DeadlineExceeded))
	Expect(opened).To(BeNil())
	Eventually(func() int32 {
		return atomic.LoadInt32(&late.closes)
	}, time.Second, 10*time.Millisecond).Should(BeEquivalentTo(1))

	_, err = Open(context.Background(), func() (io.Closer, error) {
		return nil, errors.New("connection refused")
	})
	Expect(err).To(MatchError("connection refused"))
}

func TestRedactOptions(t *testing.T) {
	RegisterTestingT(t)

	Expect(RedactOptions("")).To(BeEmpty())
	Expect(RedactOptions("{password: secret, db: 2}")).To(Equal(`{"db":2,"password":"*****"}`))
	Expect(RedactOptions("tls: {keyPassword: pw}")).To(Equal(`{"tls":{"keyPassword":"*****"}}`))
	Expect(RedactOptions("{password: [")).ToNot(ContainSubstring("password"))

	var o struct {
		DB int `json:"db"`
	}
	err := ParseOptions("{password: secret, db: 2}", &o)
	Expect(err).To(HaveOccurred())
	Expect(err.Error()).ToNot(ContainSubstring("secret"))
}

func TestCustomKeyFunc(t *testing.T) {
	RegisterTestingT(t)

	mb := broker.NewMockBroker()
	bc := NewBrokerConn("test", logrus.DefaultLogger(), mb, func(key []byte) string {
		return "/prefix/" + string(key)
	}, nil)
	Expect(bc.Write(context.Background(), []byte("a"), []byte("b"))).To(Succeed())
	Expect(mb.Keys()).To(Equal([]string{"/prefix/a"}))
}
