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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"slackagent/pkg/constants"

	"github.com/google/uuid"
)

// Call posts a single JSON-RPC request to url and decodes the result into result.
// A JSON-RPC error object is returned as *JSONRPCError.
func Call(ctx context.Context, client *http.Client, url, method string, params any, result any) error {
	body, err := json.Marshal(NewJSONRPCRequest(uuid.NewString(), method, params))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	req.Header.Set(constants.HeaderAccept, constants.ContentTypeJSON)
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("jsonrpc call [%s] failed: %w", method, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("jsonrpc call [%s] returned HTTP %d: %s", method, resp.StatusCode, string(payload))
	}
	rpcResp := &JSONRPCResponse{}
	if err := json.Unmarshal(payload, rpcResp); err != nil {
		return fmt.Errorf("invalid jsonrpc response for [%s]: %w", method, err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("failed to decode result of [%s]: %w", method, err)
		}
	}
	return nil
}
