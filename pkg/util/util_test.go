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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJQApply(t *testing.T) {
	jq, err := NewJQ().Parse("user=.event.user", "ts=.event.item.ts // \"\"", "ids=.items[].id")
	require.NoError(t, err)
	doc := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(`{"event":{"user":"U1","item":{}},"items":[{"id":"a"},{"id":"b"}]}`), &doc))
	out, err := jq.Apply(doc)
	require.NoError(t, err)
	assert.Equal(t, "U1", out["user"])
	assert.Equal(t, "", out["ts"])
	assert.Equal(t, []any{"a", "b"}, out["ids"])

	strs, err := jq.ApplyStrings(doc)
	require.NoError(t, err)
	assert.Equal(t, "U1", strs["user"])
	assert.Equal(t, "", strs["ids"])
}

func TestJQParseErrors(t *testing.T) {
	_, err := NewJQ().Parse("noequals")
	assert.Error(t, err)
	_, err = NewJQ().Parse("bad=.[")
	assert.Error(t, err)
	assert.Panics(t, func() { MustJQ("bad=.[") })
}

func TestAddRouteWithTrailingSlash(t *testing.T) {
	r := mux.NewRouter()
	sub := PathRouter(r, "/a2a")
	AddRoute(sub, "/card", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("card"))
	}, http.MethodGet)
	for _, path := range []string{"/a2a/card", "/a2a/card/"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, "card", rec.Body.String(), path)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/a2a/card", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestIsYes(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", " on "} {
		assert.True(t, IsYes(v), v)
	}
	for _, v := range []string{"", "0", "off", "maybe"} {
		assert.False(t, IsYes(v), v)
	}
}
