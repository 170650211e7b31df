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
	"net/http"

	"github.com/unrolled/render"

	"github.com/contiv/gtpila/plugins/ila/identdb"
	"github.com/contiv/gtpila/plugins/ila/ilaaddr"
)

const (
	// prefix used for REST urls of the ILA plugin.
	urlPrefix = "/ila/"

	// identURL is URL used to read, create and remove identifier entries.
	// Arguments:
	//   * id   (identifier, GET and DELETE)
	//   * addr (UE address, all methods; GET and DELETE use its identifier)
	identURL = urlPrefix + "ident"

	// configURL is URL used to read the applied configuration.
	configURL = urlPrefix + "config"

	idArg   = "id"
	addrArg = "addr"
)

// errorString wraps string representation of an error that, unlike the original
// error, can be marshalled.
type errorString struct {
	Error string
}

// identReply is returned by the ident API.
type identReply struct {
	Identifier string `json:"identifier"`
	Type       string `json:"type"`
	Result     string `json:"result,omitempty"`
	Entry      *Entry `json:"entry,omitempty"`
}

// configReply is returned by the config API.
type configReply struct {
	Config   *Config `json:"config"`
	Backend  string  `json:"backend"`
	Endpoint string  `json:"endpoint"`
	Started  bool    `json:"started"`
}

// registerHandlers registers all supported REST APIs.
func (p *Plugin) registerHandlers() {
	if p.HTTPHandlers == nil {
		p.Log.Warn("No http handler provided, skipping registration of ILA REST handlers")
		return
	}
	p.HTTPHandlers.RegisterHTTPHandler(identURL, p.identGetHandler, "GET")
	p.HTTPHandlers.RegisterHTTPHandler(identURL, p.identCreateHandler, "POST")
	p.HTTPHandlers.RegisterHTTPHandler(identURL, p.identDeleteHandler, "DELETE")
	p.HTTPHandlers.RegisterHTTPHandler(configURL, p.configGetHandler, "GET")
}

// identGetHandler is the GET handler for "ident" API.
func (p *Plugin) identGetHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		id, err := identFromArgs(req)
		if err != nil {
			formatter.JSON(w, http.StatusBadRequest, errorString{err.Error()})
			return
		}
		entry, found, err := p.mapper.LookupMapping(req.Context(), id)
		if err != nil {
			formatter.JSON(w, statusOf(err), errorString{err.Error()})
			return
		}
		if !found {
			formatter.JSON(w, http.StatusNotFound, errorString{"identifier " + id.String() + " not found"})
			return
		}
		formatter.JSON(w, http.StatusOK, identReply{Identifier: id.String(), Type: id.Type().String(), Entry: entry})
	}
}

// identCreateHandler is the POST handler for "ident" API.
func (p *Plugin) identCreateHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		addr, err := ilaaddr.ParseAddress(req.URL.Query().Get(addrArg))
		if err != nil {
			formatter.JSON(w, http.StatusBadRequest, errorString{err.Error()})
			return
		}
		result, id, err := p.mapper.CreateMapping(req.Context(), addr)
		if err != nil {
			formatter.JSON(w, statusOf(err), errorString{err.Error()})
			return
		}
		reply := identReply{Identifier: id.String(), Type: id.Type().String(), Result: result.String()}
		if result == Created {
			reply.Entry = &Entry{Address: addr, LocID: p.mapper.LocID()}
		}
		formatter.JSON(w, http.StatusOK, reply)
	}
}

// identDeleteHandler is the DELETE handler for "ident" API.
func (p *Plugin) identDeleteHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		id, err := identFromArgs(req)
		if err != nil {
			formatter.JSON(w, http.StatusBadRequest, errorString{err.Error()})
			return
		}
		if err = p.mapper.RemoveMapping(req.Context(), id); err != nil {
			formatter.JSON(w, statusOf(err), errorString{err.Error()})
			return
		}
		formatter.JSON(w, http.StatusOK, identReply{Identifier: id.String(), Type: id.Type().String()})
	}
}

// configGetHandler is the GET handler for "config" API.
func (p *Plugin) configGetHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		config := p.config.redacted()
		formatter.JSON(w, http.StatusOK, configReply{
			Config:   &config,
			Backend:  p.mapper.Backend(),
			Endpoint: p.mapper.Endpoint(),
			Started:  p.mapper.Started(),
		})
	}
}

// identFromArgs returns the identifier given either directly or by an address.
func identFromArgs(req *http.Request) (ilaaddr.Identifier, error) {
	args := req.URL.Query()
	if id := args.Get(idArg); id != "" {
		return ilaaddr.ParseIdentifier(id)
	}
	addr, err := ilaaddr.ParseAddress(args.Get(addrArg))
	if err != nil {
		return 0, err
	}
	return ilaaddr.ExtractIdentifier(addr), nil
}

// statusOf maps DB errors to HTTP status codes.
func statusOf(err error) int {
	switch identdb.KindOf(err) {
	case identdb.NotStarted, identdb.ConnectFailed:
		return http.StatusServiceUnavailable
	case identdb.WriteFailed, identdb.DeleteFailed, identdb.ReadFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
