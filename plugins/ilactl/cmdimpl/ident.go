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

package cmdimpl

import (
	"context"
	"fmt"
	"io"
	"net"
	"text/tabwriter"
	"time"

	"github.com/ligato/cn-infra/logging"
	"github.com/ligato/cn-infra/logging/logrus"
	"github.com/pkg/errors"

	"github.com/contiv/gtpila/plugins/ila"
	"github.com/contiv/gtpila/plugins/ila/identdb"
	"github.com/contiv/gtpila/plugins/ila/ilaaddr"
)

// DBParams select the identifier DB and the locator id written into entries.
type DBParams struct {
	Backend string
	Host    string
	Port    uint16
	Options string
	LocID   uint64
	Timeout time.Duration

	// Driver overrides Backend.
	Driver identdb.Driver
}

// Backends prints names of all compiled-in identifier DB backends.
func Backends(out io.Writer) {
	for _, name := range identdb.Drivers() {
		fmt.Fprintln(out, name)
	}
}

// Classify prints how the given addresses are split into locator and
// identifier.
func Classify(out io.Writer, addrs []string) error {
	w := getTabWriter(out)
	fmt.Fprintf(w, "ADDRESS\tILA\tLOCATOR\tIDENTIFIER\tTYPE\tC\n")
	for _, s := range addrs {
		addr, err := ilaaddr.ParseAddress(s)
		if err != nil {
			w.Flush()
			return err
		}
		c := ilaaddr.Classify(addr)
		fmt.Fprintf(w, "%s\t%t\t%v\t%v\t%v\t%t\n",
			addr, c.Eligible, c.Locator, c.Identifier, c.Identifier.Type(), c.Identifier.ChecksumNeutral())
	}
	return w.Flush()
}

// PutIdent writes identifier entries of the given addresses.
func PutIdent(ctx context.Context, out io.Writer, params DBParams, addrs []string) error {
	if params.LocID == 0 {
		return errors.New("locator id must be set")
	}
	return withMapper(ctx, params, func(m *ila.Mapper) error {
		w := getTabWriter(out)
		fmt.Fprintf(w, "ADDRESS\tIDENTIFIER\tRESULT\n")
		defer w.Flush()

		for _, s := range addrs {
			addr, err := ilaaddr.ParseAddress(s)
			if err != nil {
				return err
			}
			result, id, err := m.CreateMapping(ctx, addr)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%v\t%v\n", addr, id, result)
		}
		return nil
	})
}

// GetIdent prints identifier entries.
func GetIdent(ctx context.Context, out io.Writer, params DBParams, args []string) error {
	ids, err := parseIdents(args)
	if err != nil {
		return err
	}
	return withMapper(ctx, params, func(m *ila.Mapper) error {
		w := getTabWriter(out)
		fmt.Fprintf(w, "IDENTIFIER\tTYPE\tADDRESS\tLOC-ID\n")
		defer w.Flush()

		for _, id := range ids {
			entry, found, err := m.LookupMapping(ctx, id)
			if err != nil {
				return err
			}
			if !found {
				fmt.Fprintf(w, "%v\t%v\t-\t-\n", id, id.Type())
				continue
			}
			fmt.Fprintf(w, "%v\t%v\t%v\t%d\n", id, id.Type(), entry.Address, entry.LocID)
		}
		return nil
	})
}

// DelIdent removes identifier entries.
func DelIdent(ctx context.Context, out io.Writer, params DBParams, args []string) error {
	ids, err := parseIdents(args)
	if err != nil {
		return err
	}
	return withMapper(ctx, params, func(m *ila.Mapper) error {
		for _, id := range ids {
			if err := m.RemoveMapping(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(out, "removed %v\n", id)
		}
		return nil
	})
}

// withMapper runs fn with mapper connected to the identifier DB.
func withMapper(ctx context.Context, params DBParams, fn func(m *ila.Mapper) error) error {
	logger := logrus.DefaultLogger()
	logger.SetLevel(logging.ErrorLevel)

	m := ila.NewMapper(logger, params.LocID, ila.WithTimeout(params.Timeout))
	err := m.Start(ctx, ila.BackendConfig{
		Name:    params.Backend,
		Driver:  params.Driver,
		Host:    params.Host,
		Port:    params.Port,
		Options: params.Options,
	})
	if err != nil {
		return err
	}
	defer m.Stop()
	return fn(m)
}

// parseIdents accepts identifiers as well as full addresses.
func parseIdents(args []string) ([]ilaaddr.Identifier, error) {
	var ids []ilaaddr.Identifier
	for _, arg := range args {
		if ip := net.ParseIP(arg); ip != nil {
			addr, err := ilaaddr.ParseAddress(arg)
			if err != nil {
				return nil, err
			}
			ids = append(ids, ilaaddr.ExtractIdentifier(addr))
			continue
		}
		id, err := ilaaddr.ParseIdentifier(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func getTabWriter(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
}
