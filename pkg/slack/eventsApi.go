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
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"slackagent/pkg/constants"
	"slackagent/pkg/global"
	"slackagent/pkg/server/middleware"
	"slackagent/pkg/util"

	"github.com/gorilla/mux"
)

const (
	maxSignatureSkew = 5 * time.Minute
	maxEventBodySize = 1 << 20
	signatureVersion = "v0"
)

var (
	ErrMissingSignature = errors.New("missing slack signature headers")
	ErrStaleRequest     = errors.New("slack request timestamp outside allowed window")
	ErrBadSignature     = errors.New("slack signature mismatch")
)

// EventHandler receives parsed Events API deliveries.
type EventHandler interface {
	HandleEvent(cb *CallbackEvent)
}

// EventsAPI serves the Slack Events API request URL.
type EventsAPI struct {
	signingSecret string
	handler       EventHandler
	now           func() time.Time
}

func NewEventsAPI(signingSecret string, handler EventHandler) *EventsAPI {
	return &EventsAPI{signingSecret: signingSecret, handler: handler, now: time.Now}
}

func (e *EventsAPI) Middleware() *middleware.Middleware {
	return middleware.NewMiddleware("slack", e.setRoutes, nil)
}

func (e *EventsAPI) setRoutes(r *mux.Router, root *mux.Router) {
	slackRouter := util.PathRouter(r, "/slack")
	util.AddRoute(slackRouter, "/events", e.handleEvents, "POST")
}

func (e *EventsAPI) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBodySize))
	if err != nil {
		util.SendBadRequest(fmt.Sprintf("Failed to read body with error [%s]", err.Error()), w, r)
		return
	}
	if err := VerifySignature(e.signingSecret, r.Header, body, e.now()); err != nil {
		log.Printf("Slack: Rejected event request: %s\n", err.Error())
		util.SendError(http.StatusUnauthorized, err.Error(), w, r)
		return
	}
	cb, err := ParseCallback(body)
	if err != nil {
		util.SendBadRequest(err.Error(), w, r)
		return
	}
	switch cb.Type {
	case CallbackTypeURLVerification:
		w.Header().Set(constants.HeaderContentType, "text/plain")
		fmt.Fprint(w, cb.Challenge)
		util.AddLogMessage("Answered slack url verification", r)
		return
	case CallbackTypeEventCallback:
		if global.Flags.EnableSlackLogs {
			retry := r.Header.Get(constants.HeaderSlackRetryNum)
			log.Printf("Slack: Event [%s] type [%s] retry [%s]\n", cb.EventID, cb.EventType, retry)
		}
		e.handler.HandleEvent(cb)
	default:
		util.AddLogMessage(fmt.Sprintf("Ignored slack callback type [%s]", cb.Type), r)
	}
	w.WriteHeader(http.StatusOK)
}

// VerifySignature checks the v0 request signature Slack attaches to every request.
func VerifySignature(signingSecret string, header http.Header, body []byte, now time.Time) error {
	signature := header.Get(constants.HeaderSlackSignature)
	timestamp := header.Get(constants.HeaderSlackRequestTimestamp)
	if signature == "" || timestamp == "" {
		return ErrMissingSignature
	}
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp [%s]", ErrStaleRequest, timestamp)
	}
	if math.Abs(now.Sub(time.Unix(ts, 0)).Seconds()) > maxSignatureSkew.Seconds() {
		return ErrStaleRequest
	}
	expected := Sign(signingSecret, timestamp, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}

func Sign(signingSecret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(signingSecret))
	fmt.Fprintf(mac, "%s:%s:", signatureVersion, timestamp)
	mac.Write(body)
	return signatureVersion + "=" + hex.EncodeToString(mac.Sum(nil))
}
