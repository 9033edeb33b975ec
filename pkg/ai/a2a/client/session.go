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
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"slackagent/pkg/ai/a2a/conn"
	"slackagent/pkg/ai/a2a/model"
	"slackagent/pkg/global"
	"slackagent/pkg/metrics"
	"slackagent/pkg/transport"
)

type sessionState int

const (
	sessionUninitialized sessionState = iota
	sessionReady
)

func (s sessionState) String() string {
	if s == sessionReady {
		return "ready"
	}
	return "uninitialized"
}

// Session lazily binds the client to its remote agent. The first Ensure discovers the card
// and opens the connection; later calls reuse them until Close.
type Session struct {
	config    *ClientConfig
	fetchCard CardFetcher
	newConn   conn.Factory
	lock      sync.Mutex
	state     sessionState
	transport transport.ClientTransport
	conn      conn.Connection
	card      *model.AgentCard
}

func newSession(config *ClientConfig, fetchCard CardFetcher, newConn conn.Factory) *Session {
	if fetchCard == nil {
		fetchCard = FetchAgentCard
	}
	if newConn == nil {
		newConn = conn.NewConnection
	}
	return &Session{config: config, fetchCard: fetchCard, newConn: newConn}
}

func (s *Session) Ensure(ctx context.Context) (conn.Connection, *model.AgentCard, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.state == sessionReady {
		return s.conn, s.card, nil
	}
	ct := transport.CreateHTTPClient(transport.HTTPClientOptions{
		Label:       s.config.BaseURL,
		Headers:     s.config.Headers,
		VerifyTLS:   s.config.VerifyTLS,
		ConnTimeout: s.config.Timeout,
		Listener:    metrics.UpdateTargetConnCount,
	})
	card, err := s.fetchCard(ctx, ct.HTTP(), s.config.BaseURL)
	if err == nil && card == nil {
		err = errors.New("no agent card returned")
	}
	if err != nil {
		ct.Close()
		if !errors.Is(err, ErrDiscoveryFailed) {
			err = fmt.Errorf("%w: %w", ErrDiscoveryFailed, err)
		}
		return nil, nil, err
	}
	if !s.config.UseExtendedCard {
		card = card.WithoutExtendedCard()
	}
	c, err := s.newConn(&conn.Config{
		HTTPClient:   ct.HTTP(),
		Transports:   s.config.Transports,
		Headers:      s.config.Headers,
		VerifyTLS:    s.config.VerifyTLS,
		UserAgent:    s.config.UserAgent,
		ConnTimeout:  s.config.Timeout,
		ConnListener: metrics.UpdateTargetConnCount,
	}, card)
	if err != nil {
		ct.Close()
		return nil, nil, fmt.Errorf("%w: %w", ErrConnectionSetupFailed, err)
	}
	if s.config.UseExtendedCard {
		extended, err := c.GetCard(ctx)
		if err != nil {
			c.Close()
			ct.Close()
			return nil, nil, fmt.Errorf("%w: %w", ErrDiscoveryFailed, err)
		}
		card = extended
	}
	s.transport = ct
	s.conn = c
	s.card = card
	s.state = sessionReady
	metrics.UpdateSessionCount()
	if global.Flags.EnableClientLogs {
		log.Printf("A2A: Session ready with agent [%s] over [%s] at [%s]\n", card.Name, c.Protocol(), c.URL())
	}
	return c, card, nil
}

// Card returns the card of record, or nil before the session is ready.
func (s *Session) Card() *model.AgentCard {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.card
}

func (s *Session) State() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state.String()
}

func (s *Session) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	var err error
	if s.conn != nil {
		err = s.conn.Close()
	}
	if s.transport != nil {
		s.transport.Close()
	}
	s.conn = nil
	s.card = nil
	s.transport = nil
	s.state = sessionUninitialized
	return err
}
