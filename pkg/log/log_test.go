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

package log

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"slackagent/pkg/global"
	"slackagent/pkg/server/middleware"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogToggles(t *testing.T) {
	r := mux.NewRouter()
	middleware.LinkMiddlewareChain(r, Middleware)
	original := global.Flags.EnableSlackLogs
	defer func() { global.Flags.EnableSlackLogs = original }()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/log/slack/false", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, global.Flags.EnableSlackLogs)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/log", nil))
	levels := map[string]bool{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &levels))
	assert.False(t, levels["slack"])
	assert.Contains(t, levels, "agent")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/log/nope/true", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
