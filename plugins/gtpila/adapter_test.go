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

package gtpila

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ligato/cn-infra/logging"
	"github.com/ligato/cn-infra/logging/logrus"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/wmnsk/go-pfcp/ie"

	mockidentdb "github.com/contiv/gtpila/mock/identdb"
	"github.com/contiv/gtpila/plugins/ila"
	"github.com/contiv/gtpila/plugins/ila/identdb"
	"github.com/contiv/gtpila/plugins/ila/ilaaddr"
)

const testLocID = 5

// mapperAPI exposes Mapper as the ILA API.
type mapperAPI struct {
	*ila.Mapper
	creates int
}

func (m *mapperAPI) CreateIdent(ctx context.Context, addr net.IP) (ila.Result, ilaaddr.Identifier, error) {
	m.creates++
	return m.CreateMapping(ctx, addr)
}

func (m *mapperAPI) RemoveIdent(ctx context.Context, id ilaaddr.Identifier) error {
	return m.RemoveMapping(ctx, id)
}

func (m *mapperAPI) LookupIdent(ctx context.Context, id ilaaddr.Identifier) (*ila.Entry, bool, error) {
	return m.LookupMapping(ctx, id)
}

func (m *mapperAPI) GetLocID() uint64 {
	return m.LocID()
}

func newTestLogger() logging.Logger {
	log := logrus.DefaultLogger()
	log.SetLevel(logging.DebugLevel)
	return log
}

func newTestAdapter(driver *mockidentdb.MockDriver, opts ...ila.MapperOption) (*Adapter, *mapperAPI, error) {
	log := newTestLogger()
	api := &mapperAPI{Mapper: ila.NewMapper(log, testLocID, opts...)}
	err := api.Start(context.Background(), ila.BackendConfig{Name: mockidentdb.Name, Driver: driver})
	return NewAdapter(log, api), api, err
}

func TestSessionLifecycle(t *testing.T) {
	RegisterTestingT(t)

	driver := mockidentdb.NewMockDriver()
	adapter, api, err := newTestAdapter(driver)
	Expect(err).ToNot(HaveOccurred())
	defer api.Stop()

	ctx := context.Background()
	ueIP := ie.NewUEIPAddress(0x02|ueIPFlagV6, "10.0.0.1", "2001:db8:1:2:2000::1", 0, 0)
	outcome, err := adapter.SessionAddressAssigned(ctx, ueIP)
	Expect(err).ToNot(HaveOccurred())
	Expect(outcome.Result).To(Equal(ila.Created))
	Expect(outcome.Identifier).To(BeEquivalentTo(0x2000000000000001))

	entry, found, err := api.LookupIdent(ctx, outcome.Identifier)
	Expect(err).ToNot(HaveOccurred())
	Expect(found).To(BeTrue())
	Expect(entry.LocID).To(BeEquivalentTo(testLocID))

	Expect(adapter.SessionRemoved(ctx, outcome)).To(Succeed())
	Expect(driver.Broker.Keys()).To(BeEmpty())
}

func TestSessionWithoutILAAddress(t *testing.T) {
	RegisterTestingT(t)

	driver := mockidentdb.NewMockDriver()
	adapter, api, err := newTestAdapter(driver)
	Expect(err).ToNot(HaveOccurred())
	defer api.Stop()

	ctx := context.Background()

	// IPv4 only
	outcome, err := adapter.SessionAddressAssigned(ctx, ie.NewUEIPAddress(0x02, "10.0.0.1", "", 0, 0))
	Expect(err).ToNot(HaveOccurred())
	Expect(outcome.Result).To(Equal(ila.Skipped))
	Expect(api.creates).To(BeZero())

	// plain IPv6 address
	outcome, err = adapter.SessionAddressAssigned(ctx, ie.NewUEIPAddress(ueIPFlagV6, "", "2001:db8::1", 0, 0))
	Expect(err).ToNot(HaveOccurred())
	Expect(outcome.Result).To(Equal(ila.Skipped))

	outcome, err = adapter.SessionAddressAssigned(ctx, nil)
	Expect(err).ToNot(HaveOccurred())
	Expect(outcome.Result).To(Equal(ila.Skipped))

	// PDI without UE IP address
	outcome, err = adapter.SessionAddressAssigned(ctx, ie.NewPDI(ie.NewSourceInterface(ie.SrcInterfaceAccess)))
	Expect(err).ToNot(HaveOccurred())
	Expect(outcome.Result).To(Equal(ila.Skipped))

	// wrong IE
	outcome, err = adapter.SessionAddressAssigned(ctx, ie.NewRecoveryTimeStamp(time.Now()))
	Expect(err).To(HaveOccurred())
	Expect(outcome.Result).To(Equal(ila.Skipped))

	Expect(driver.Broker.Puts).To(BeZero())
	Expect(adapter.SessionRemoved(ctx, outcome)).To(Succeed())
	Expect(driver.Broker.Deletes).To(BeZero())
}

func TestSessionNestedAddress(t *testing.T) {
	RegisterTestingT(t)

	driver := mockidentdb.NewMockDriver()
	adapter, api, err := newTestAdapter(driver)
	Expect(err).ToNot(HaveOccurred())
	defer api.Stop()

	ctx := context.Background()
	pdi := ie.NewPDI(
		ie.NewSourceInterface(ie.SrcInterfaceAccess),
		ie.NewUEIPAddress(ueIPFlagV6, "", "2001:db8:1:2:2000::1", 0, 0),
	)
	outcome, err := adapter.SessionAddressAssigned(ctx, pdi)
	Expect(err).ToNot(HaveOccurred())
	Expect(outcome.Result).To(Equal(ila.Created))
	Expect(outcome.Identifier).To(BeEquivalentTo(0x2000000000000001))

	pdr := ie.NewCreatePDR(ie.NewPDRID(1), ie.NewPDI(
		ie.NewSourceInterface(ie.SrcInterfaceAccess),
		ie.NewUEIPAddress(ueIPFlagV6, "", "2001:db8:1:2:2000::2", 0, 0),
	))
	outcome2, err := adapter.SessionAddressAssigned(ctx, pdr)
	Expect(err).ToNot(HaveOccurred())
	Expect(outcome2.Result).To(Equal(ila.Created))
	Expect(outcome2.Identifier).To(BeEquivalentTo(0x2000000000000002))
	Expect(driver.Broker.Keys()).To(HaveLen(2))

	// Create PDR whose PDI has no UE IP address
	outcome3, err := adapter.SessionAddressAssigned(ctx, ie.NewCreatePDR(ie.NewPDRID(2),
		ie.NewPDI(ie.NewSourceInterface(ie.SrcInterfaceAccess))))
	Expect(err).ToNot(HaveOccurred())
	Expect(outcome3.Result).To(Equal(ila.Skipped))

	Expect(adapter.SessionRemoved(ctx, outcome3)).To(Succeed())
	Expect(driver.Broker.Keys()).To(HaveLen(2))
	Expect(adapter.SessionRemoved(ctx, outcome)).To(Succeed())
	Expect(adapter.SessionRemoved(ctx, outcome2)).To(Succeed())
	Expect(driver.Broker.Keys()).To(BeEmpty())
}

func TestStartFailure(t *testing.T) {
	RegisterTestingT(t)

	driver := mockidentdb.NewMockDriver()
	driver.StartErr = errors.New("connection refused")
	adapter, api, err := newTestAdapter(driver)
	Expect(identdb.IsConfigurationError(err)).To(BeTrue())

	// the node does not start, if it did, nothing would reach the DB
	outcome, err := adapter.AddressAssigned(context.Background(), net.ParseIP("2001:db8:1:2:2000::1"))
	Expect(identdb.IsKind(err, identdb.NotStarted)).To(BeTrue())
	Expect(outcome.Result).To(Equal(ila.Failed))
	Expect(driver.Broker.Puts).To(BeZero())
	Expect(api.Started()).To(BeFalse())
}

func TestCreateFailure(t *testing.T) {
	RegisterTestingT(t)

	driver := mockidentdb.NewMockDriver()
	adapter, api, err := newTestAdapter(driver)
	Expect(err).ToNot(HaveOccurred())
	defer api.Stop()

	driver.Broker.Lock()
	driver.Broker.PutErr = errors.New("OOM command not allowed")
	driver.Broker.Unlock()

	outcome, err := adapter.AddressAssigned(context.Background(), net.ParseIP("2001:db8:1:2:2000::1"))
	Expect(identdb.IsKind(err, identdb.WriteFailed)).To(BeTrue())
	Expect(outcome.Result).To(Equal(ila.Failed))
	Expect(outcome.Identifier).To(BeEquivalentTo(0x2000000000000001))

	// removal of the failed entry is attempted
	Expect(adapter.SessionRemoved(context.Background(), outcome)).To(Succeed())
	Expect(driver.Broker.Deletes).To(Equal(1))
}

func TestSessionRemovedTimeout(t *testing.T) {
	RegisterTestingT(t)

	driver := mockidentdb.NewMockDriver()
	adapter, api, err := newTestAdapter(driver, ila.WithTimeout(20*time.Millisecond))
	Expect(err).ToNot(HaveOccurred())
	defer api.Stop()

	ctx := context.Background()
	outcome, err := adapter.AddressAssigned(ctx, net.ParseIP("2001:db8:1:2:2000::1"))
	Expect(err).ToNot(HaveOccurred())

	driver.Broker.Lock()
	driver.Broker.Delay = 500 * time.Millisecond
	driver.Broker.Unlock()

	start := time.Now()
	err = adapter.SessionRemoved(ctx, outcome)
	Expect(time.Since(start)).To(BeNumerically("<", 400*time.Millisecond))
	Expect(identdb.IsKind(err, identdb.DeleteFailed)).To(BeTrue())
}
