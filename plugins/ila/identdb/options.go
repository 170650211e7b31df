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
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
)

// ParseOptions decodes the backend option string into the given struct.
// The string is a YAML (or JSON) mapping, the enclosing braces are optional:
//
//	{password: secret, db: 2}
//	password: secret
//
// Fields not known to the target struct are rejected.
func ParseOptions(options string, into interface{}) error {
	options = strings.TrimSpace(options)
	if options == "" {
		return nil
	}
	if !strings.HasPrefix(options, "{") && !strings.Contains(options, "\n") {
		options = "{" + options + "}"
	}

	data, err := yaml.YAMLToJSON([]byte(options))
	if err != nil {
		return errors.Wrap(err, "malformed options")
	}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		return errors.Wrap(err, "invalid options")
	}
	return nil
}

// redactedValue replaces secret option values in RedactOptions.
const redactedValue = "*****"

// RedactOptions returns the option string as a JSON mapping with the values
// of all password options masked. It is used wherever options are logged
// or exposed.
func RedactOptions(options string) string {
	var opts map[string]interface{}
	if err := ParseOptions(options, &opts); err != nil {
		return "<malformed>"
	}
	if opts == nil {
		return ""
	}
	redact(opts)
	data, err := json.Marshal(opts)
	if err != nil {
		return "<malformed>"
	}
	return string(data)
}

func redact(opts map[string]interface{}) {
	for key, value := range opts {
		if strings.Contains(strings.ToLower(key), "password") {
			opts[key] = redactedValue
			continue
		}
		if nested, isMap := value.(map[string]interface{}); isMap {
			redact(nested)
		}
	}
}

// Duration is time.Duration that can be given either as a string
// understood by time.ParseDuration or as a number of nanoseconds.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	}
	var ns int64
	if err := json.Unmarshal(data, &ns); err != nil {
		return errors.Errorf("invalid duration %s", string(data))
	}
	*d = Duration(ns)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
