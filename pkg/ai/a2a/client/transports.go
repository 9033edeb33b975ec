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

package a2aclient

import (
	"fmt"
	"strings"

	"slackagent/pkg/ai/a2a/conn"
)

var (
	DefaultTransports = []conn.Protocol{conn.JSONRPC, conn.HTTPJSON}

	transportAliases = map[string]conn.Protocol{
		"jsonrpc":   conn.JSONRPC,
		"json-rpc":  conn.JSONRPC,
		"http+json": conn.HTTPJSON,
		"http-json": conn.HTTPJSON,
		"rest":      conn.HTTPJSON,
		"grpc":      conn.GRPC,
	}
)

// ParseTransports reads a comma separated transport preference such as "grpc, rest".
// An empty value selects JSON-RPC then HTTP+JSON.
func ParseTransports(raw string) ([]conn.Protocol, error) {
	result := []conn.Protocol{}
	for _, token := range strings.Split(raw, ",") {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		p, ok := transportAliases[token]
		if !ok {
			return nil, fmt.Errorf("%w: unknown transport [%s]", ErrInvalidConfiguration, token)
		}
		result = append(result, p)
	}
	if len(result) == 0 {
		return append([]conn.Protocol{}, DefaultTransports...), nil
	}
	return result, nil
}
