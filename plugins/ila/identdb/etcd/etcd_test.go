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

package etcd

import (
	"context"
	"testing"
	"time"

	"github.com/ligato/cn-infra/logging/logrus"
	. "github.com/onsi/gomega"

	"github.com/contiv/gtpila/plugins/ila/identdb"
)

func TestConfigure(t *testing.T) {
	RegisterTestingT(t)

	d, err := identdb.Lookup(Name)
	Expect(err).ToNot(HaveOccurred())
	Expect(d.DefaultPort()).To(BeEquivalentTo(2379))

	conn, err := d.Init(logrus.DefaultLogger(), "fd00::10", 2379)
	Expect(err).ToNot(HaveOccurred())
	c := conn.(*Conn)

	cfg := c.etcdConfig()
	Expect(cfg.Endpoints).To(Equal([]string{"[fd00::10]:2379"}))
	Expect(cfg.InsecureTransport).To(BeTrue())
	Expect(c.options.Prefix).To(Equal(DefaultPrefix))

	err = c.Configure(`{prefix: /ila/ids, operation-timeout: 500ms, insecure-transport: false, ca-file: /etc/ca.pem}`)
	Expect(err).ToNot(HaveOccurred())
	cfg = c.etcdConfig()
	Expect(cfg.OpTimeout).To(Equal(500 * time.Millisecond))
	Expect(cfg.InsecureTransport).To(BeFalse())
	Expect(cfg.CAfile).To(Equal("/etc/ca.pem"))
	Expect(c.options.Prefix).To(Equal("/ila/ids/"))

	err = c.Configure(`{prefix: ila}`)
	Expect(identdb.IsKind(err, identdb.InvalidConfig)).To(BeTrue())
	err = c.Configure(`{endpoint: x}`)
	Expect(identdb.IsKind(err, identdb.InvalidConfig)).To(BeTrue())
}

func TestInitAndNotStarted(t *testing.T) {
	RegisterTestingT(t)

	_, err := (&Driver{}).Init(logrus.DefaultLogger(), "", 2379)
	Expect(identdb.IsKind(err, identdb.ConnectFailed)).To(BeTrue())

	conn, err := (&Driver{}).Init(logrus.DefaultLogger(), "127.0.0.1", 2379)
	Expect(err).ToNot(HaveOccurred())
	err = conn.Write(context.Background(), []byte{1}, []byte{2})
	Expect(identdb.IsKind(err, identdb.NotStarted)).To(BeTrue())
	err = conn.Delete(context.Background(), []byte{1})
	Expect(identdb.IsKind(err, identdb.NotStarted)).To(BeTrue())
}

func TestHexKey(t *testing.T) {
	RegisterTestingT(t)

	Expect(hexKey([]byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x20})).To(Equal("0100000000000020"))
}
