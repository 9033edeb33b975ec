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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"slackagent/pkg/global"

	"github.com/gorilla/websocket"
)

const (
	envelopeHello      = "hello"
	envelopeDisconnect = "disconnect"
	envelopeEventsAPI  = "events_api"

	minReconnectBackoff = time.Second
	maxReconnectBackoff = 30 * time.Second
)

var errNoAppToken = errors.New("socket mode needs an app-level token")

// ConnectionOpener hands out Socket Mode websocket URLs.
type ConnectionOpener interface {
	OpenConnection(ctx context.Context, appToken string) (string, error)
}

type socketEnvelope struct {
	EnvelopeID   string          `json:"envelope_id,omitempty"`
	Type         string          `json:"type"`
	Reason       string          `json:"reason,omitempty"`
	RetryAttempt int             `json:"retry_attempt,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

type socketAck struct {
	EnvelopeID string `json:"envelope_id"`
}

// SocketMode receives events over a websocket instead of a public request URL.
type SocketMode struct {
	appToken   string
	opener     ConnectionOpener
	handler    EventHandler
	dialer     *websocket.Dialer
	minBackoff time.Duration
	maxBackoff time.Duration
	connected  atomic.Bool
}

func NewSocketMode(appToken string, opener ConnectionOpener, handler EventHandler) *SocketMode {
	return &SocketMode{
		appToken:   appToken,
		opener:     opener,
		handler:    handler,
		dialer:     websocket.DefaultDialer,
		minBackoff: minReconnectBackoff,
		maxBackoff: maxReconnectBackoff,
	}
}

// Run keeps a Socket Mode connection open until ctx ends, reconnecting whenever Slack asks
// for it or the connection drops.
func (s *SocketMode) Run(ctx context.Context) error {
	failures := 0
	for {
		if ctx.Err() != nil {
			return nil
		}
		err := s.runOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			failures = 0
			log.Println("Slack: Socket Mode connection closed by Slack, reconnecting")
			continue
		}
		failures++
		wait := reconnectBackoff(s.minBackoff, s.maxBackoff, failures)
		log.Printf("Slack: Socket Mode connection failed (attempt %d), retrying in %s: %s\n", failures, wait, err.Error())
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// runOnce serves one websocket. A nil return means Slack asked for a reconnect.
func (s *SocketMode) runOnce(ctx context.Context) error {
	wsURL, err := s.opener.OpenConnection(ctx, s.appToken)
	if err != nil {
		return err
	}
	ws, _, err := s.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial socket mode url: %w", err)
	}
	defer ws.Close()
	defer s.connected.Store(false)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			ws.Close()
		case <-done:
		}
	}()
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return fmt.Errorf("socket mode read failed: %w", err)
		}
		env := &socketEnvelope{}
		if err := json.Unmarshal(data, env); err != nil {
			log.Printf("Slack: Ignoring malformed socket mode frame: %s\n", err.Error())
			continue
		}
		if env.EnvelopeID != "" {
			if err := ws.WriteJSON(&socketAck{EnvelopeID: env.EnvelopeID}); err != nil {
				return fmt.Errorf("failed to ack envelope [%s]: %w", env.EnvelopeID, err)
			}
		}
		switch env.Type {
		case envelopeHello:
			s.connected.Store(true)
			log.Println("Slack: Socket Mode connected")
		case envelopeDisconnect:
			s.connected.Store(false)
			if global.Flags.EnableSlackLogs {
				log.Printf("Slack: Socket Mode disconnect requested, reason [%s]\n", env.Reason)
			}
			return nil
		case envelopeEventsAPI:
			cb, err := ParseCallback(env.Payload)
			if err != nil {
				log.Printf("Slack: Ignoring events_api envelope [%s]: %s\n", env.EnvelopeID, err.Error())
				continue
			}
			if global.Flags.EnableSlackLogs {
				log.Printf("Slack: Event [%s] type [%s] retry [%d]\n", cb.EventID, cb.EventType, env.RetryAttempt)
			}
			s.handler.HandleEvent(cb)
		default:
			if global.Flags.EnableSlackLogs {
				log.Printf("Slack: Ignoring socket mode envelope type [%s]\n", env.Type)
			}
		}
	}
}

// Connected reports whether Slack has greeted the current connection.
func (s *SocketMode) Connected() bool {
	return s.connected.Load()
}

func reconnectBackoff(min, max time.Duration, failures int) time.Duration {
	wait := min
	for i := 1; i < failures && wait < max; i++ {
		wait *= 2
	}
	if wait > max {
		wait = max
	}
	return wait
}

func (s *SocketMode) Validate() error {
	if s.appToken == "" {
		return errNoAppToken
	}
	return nil
}
