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

package slack

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"slackagent/pkg/constants"
	"slackagent/pkg/server/middleware"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningSecret = "8f742231b10e8888abcd99yyyzzz85a5"

type recordingHandler struct {
	lock   sync.Mutex
	events []*CallbackEvent
}

func (h *recordingHandler) HandleEvent(cb *CallbackEvent) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.events = append(h.events, cb)
}

func (h *recordingHandler) received() []*CallbackEvent {
	h.lock.Lock()
	defer h.lock.Unlock()
	return append([]*CallbackEvent{}, h.events...)
}

func newEventsServer(t *testing.T, now time.Time) (*httptest.Server, *recordingHandler) {
	handler := &recordingHandler{}
	api := NewEventsAPI(testSigningSecret, handler)
	api.now = func() time.Time { return now }
	r := mux.NewRouter()
	middleware.LinkMiddlewareChain(r, api.Middleware())
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, handler
}

func postSigned(t *testing.T, url, body string, ts time.Time, secret string) *http.Response {
	timestamp := strconv.FormatInt(ts.Unix(), 10)
	req, err := http.NewRequest(http.MethodPost, url+"/slack/events", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	req.Header.Set(constants.HeaderSlackRequestTimestamp, timestamp)
	req.Header.Set(constants.HeaderSlackSignature, Sign(secret, timestamp, []byte(body)))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestVerifySignature(t *testing.T) {
	now := time.Unix(1531420618, 0)
	body := []byte("token=xyzz0WbapA4vBCDEFasx0q6G&team_id=T1DC2JH3J")
	header := http.Header{}
	header.Set(constants.HeaderSlackRequestTimestamp, "1531420618")
	header.Set(constants.HeaderSlackSignature, Sign(testSigningSecret, "1531420618", body))
	assert.NoError(t, VerifySignature(testSigningSecret, header, body, now))
	assert.ErrorIs(t, VerifySignature("other-secret", header, body, now), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature(testSigningSecret, header, []byte("tampered"), now), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature(testSigningSecret, header, body, now.Add(6*time.Minute)), ErrStaleRequest)
	assert.NoError(t, VerifySignature(testSigningSecret, header, body, now.Add(-4*time.Minute)))
	assert.ErrorIs(t, VerifySignature(testSigningSecret, http.Header{}, body, now), ErrMissingSignature)

	header.Set(constants.HeaderSlackRequestTimestamp, "yesterday")
	assert.ErrorIs(t, VerifySignature(testSigningSecret, header, body, now), ErrStaleRequest)
}

func TestSignFormat(t *testing.T) {
	sig := Sign("secret", "1", []byte("body"))
	assert.True(t, strings.HasPrefix(sig, "v0="))
	assert.Len(t, sig, 3+64)
}

func TestEventsAPIURLVerification(t *testing.T) {
	now := time.Now()
	server, handler := newEventsServer(t, now)
	resp := postSigned(t, server.URL, `{"type":"url_verification","challenge":"3eZbrw1aB"}`, now, testSigningSecret)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "3eZbrw1aB", string(body))
	assert.Empty(t, handler.received())
}

func TestEventsAPIDispatchesCallbacks(t *testing.T) {
	now := time.Now()
	server, handler := newEventsServer(t, now)
	resp := postSigned(t, server.URL, reactionPayload, now, testSigningSecret)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	events := handler.received()
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Reaction)
	assert.Equal(t, "C1", events[0].Reaction.Channel)
}

func TestEventsAPIRejectsBadRequests(t *testing.T) {
	now := time.Now()
	server, handler := newEventsServer(t, now)

	resp := postSigned(t, server.URL, reactionPayload, now, "wrong-secret")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postSigned(t, server.URL, reactionPayload, now.Add(-10*time.Minute), testSigningSecret)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postSigned(t, server.URL, "not json", now, testSigningSecret)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Empty(t, handler.received())
}
