/**
 * Copyright 2025 uk
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package util

import (
	"fmt"
	"strings"

	"github.com/itchyny/gojq"
)

// JQ holds a set of named, compiled jq queries that are applied together to one document.
type JQ struct {
	Queries     map[string]*gojq.Code
	TextQueries map[string]string
}

func NewJQ() *JQ {
	return &JQ{Queries: map[string]*gojq.Code{}, TextQueries: map[string]string{}}
}

// Parse compiles queries of the form name=query.
func (jq *JQ) Parse(queries ...string) (*JQ, error) {
	for _, query := range queries {
		key, val, found := strings.Cut(query, "=")
		if !found {
			return nil, fmt.Errorf("jq query [%s] must be of the form name=query", query)
		}
		q, err := gojq.Parse(val)
		if err != nil {
			return nil, fmt.Errorf("failed to parse jq query [%s]: %w", query, err)
		}
		code, err := gojq.Compile(q)
		if err != nil {
			return nil, fmt.Errorf("failed to compile jq query [%s]: %w", query, err)
		}
		jq.Queries[key] = code
		jq.TextQueries[key] = val
	}
	return jq, nil
}

func MustJQ(queries ...string) *JQ {
	jq, err := NewJQ().Parse(queries...)
	if err != nil {
		panic(err)
	}
	return jq
}

// Apply runs every query against v. A query that yields one value maps to that value,
// several values map to a slice, and no value leaves the key out.
func (jq *JQ) Apply(v any) (map[string]any, error) {
	out := map[string]any{}
	for id, q := range jq.Queries {
		results := []any{}
		iter := q.Run(v)
		for {
			value, ok := iter.Next()
			if !ok {
				break
			}
			if err, ok := value.(error); ok {
				return nil, fmt.Errorf("jq query [%s] failed: %w", id, err)
			}
			results = append(results, value)
		}
		switch len(results) {
		case 0:
		case 1:
			out[id] = results[0]
		default:
			out[id] = results
		}
	}
	return out, nil
}

// ApplyStrings is Apply restricted to string results; other values become "".
func (jq *JQ) ApplyStrings(v any) (map[string]string, error) {
	values, err := jq.Apply(v)
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	for k := range jq.Queries {
		if s, ok := values[k].(string); ok {
			out[k] = s
		} else {
			out[k] = ""
		}
	}
	return out, nil
}
