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
	"net/http"
	"strings"

	"slackagent/pkg/server/middleware"
	"slackagent/pkg/util"

	"github.com/gorilla/mux"
)

// Middleware exposes the client on the admin server for diagnostics.
func (c *Client) Middleware() *middleware.Middleware {
	return middleware.NewMiddleware("a2a", c.setRoutes, nil)
}

func (c *Client) setRoutes(r *mux.Router, root *mux.Router) {
	a2aClientRouter := util.PathRouter(r, "/a2a/client")
	util.AddRoute(a2aClientRouter, "/card", c.getCard, "GET")
	util.AddRoute(a2aClientRouter, "/session", c.getSession, "GET")
	util.AddRoute(a2aClientRouter, "/ask", c.askAgent, "POST")
}

func (c *Client) getCard(w http.ResponseWriter, r *http.Request) {
	card, err := c.Card(r.Context())
	if err != nil {
		util.SendError(http.StatusBadGateway, fmt.Sprintf("Failed to load agent card from [%s]: %s", c.config.BaseURL, err.Error()), w, r)
		return
	}
	util.WriteJsonPayload(w, card)
	util.AddLogMessage(fmt.Sprintf("Reported agent card [%s]", card.Name), r)
}

func (c *Client) getSession(w http.ResponseWriter, r *http.Request) {
	state := map[string]any{
		"baseURL":    c.config.BaseURL,
		"transports": c.config.Transports,
		"state":      c.session.State(),
	}
	if card := c.session.Card(); card != nil {
		state["agent"] = card.Name
	}
	util.WriteJsonPayload(w, state)
}

func (c *Client) askAgent(w http.ResponseWriter, r *http.Request) {
	payload := &AskRequest{}
	if err := util.ReadJsonPayload(r, payload); err != nil {
		util.SendBadRequest(fmt.Sprintf("Failed to parse payload with error [%s]", err.Error()), w, r)
		return
	}
	if strings.TrimSpace(payload.Text) == "" {
		util.SendBadRequest("Missing text to ask", w, r)
		return
	}
	req := c.NewAskRequest(payload.Text, payload.ContextID)
	if payload.PollInterval > 0 {
		req.PollInterval = payload.PollInterval
	}
	if payload.PollTimeout != nil {
		req.PollTimeout = payload.PollTimeout
	}
	result, err := c.Ask(r.Context(), req)
	if err != nil {
		util.SendError(http.StatusBadGateway, fmt.Sprintf("Error asking agent at [%s]: %s", c.config.BaseURL, err.Error()), w, r)
		return
	}
	util.WriteJsonPayload(w, result)
	util.AddLogMessage(fmt.Sprintf("Asked agent at [%s] with context [%s]", c.config.BaseURL, result.ContextID), r)
}
