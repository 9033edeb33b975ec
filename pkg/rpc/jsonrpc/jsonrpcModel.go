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

package jsonrpc

import (
	"encoding/json"
	"fmt"
)

const Version = "2.0"

type JSONRPCMessage struct {
	ID      string `json:"id,omitempty"`
	JSONRPC string `json:"jsonrpc,omitempty"`
}

type JSONRPCRequest struct {
	JSONRPCMessage
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

type JSONRPCResponse struct {
	JSONRPCMessage
	Result json.RawMessage `json:"result,omitempty"`
	Error  *JSONRPCError   `json:"error,omitempty"`
}

type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func NewJSONRPCRequest(id, method string, params any) *JSONRPCRequest {
	return &JSONRPCRequest{
		JSONRPCMessage: JSONRPCMessage{
			JSONRPC: Version,
			ID:      id,
		},
		Method: method,
		Params: params,
	}
}

func (e *JSONRPCError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}
