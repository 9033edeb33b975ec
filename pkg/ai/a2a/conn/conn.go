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

package conn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"slackagent/pkg/ai/a2a/model"
	"slackagent/pkg/transport"

	"google.golang.org/grpc"
)

type Protocol string

const (
	JSONRPC  Protocol = model.TransportJSONRPC
	HTTPJSON Protocol = model.TransportHTTPJSON
	GRPC     Protocol = model.TransportGRPC
)

var ErrNoCompatibleTransport = errors.New("no compatible transport")

// Connection is a live binding to one remote agent endpoint over one protocol.
// Implementations are safe for concurrent use.
type Connection interface {
	Protocol() Protocol
	URL() string
	SendMessage(ctx context.Context, msg *model.Message) (model.Event, error)
	StreamMessage(ctx context.Context, msg *model.Message) (EventStream, error)
	GetTask(ctx context.Context, taskID string, historyLength *int) (*model.Task, error)
	GetCard(ctx context.Context) (*model.AgentCard, error)
	Close() error
}

// EventStream yields raw events in arrival order. Next returns io.EOF once the server ends
// the stream.
type EventStream interface {
	Next(ctx context.Context) (model.Event, error)
	Close() error
}

type Config struct {
	HTTPClient      *http.Client
	Transports      []Protocol
	Headers         map[string]string
	VerifyTLS       bool
	UserAgent       string
	ConnTimeout     time.Duration
	ConnListener    transport.ConnListener
	GRPCDialOptions []grpc.DialOption
}

// Factory builds a connection for a card. NewConnection is the default.
type Factory func(cfg *Config, card *model.AgentCard) (Connection, error)

// SelectInterface walks the card's endpoints in server preference order and returns the
// first whose transport the client supports.
func SelectInterface(card *model.AgentCard, supported []Protocol) (Protocol, string, error) {
	if card == nil {
		return "", "", fmt.Errorf("%w: missing agent card", ErrNoCompatibleTransport)
	}
	for _, i := range card.Interfaces() {
		for _, p := range supported {
			if strings.EqualFold(i.Transport, string(p)) {
				return p, i.URL, nil
			}
		}
	}
	offered := []string{}
	for _, i := range card.Interfaces() {
		offered = append(offered, i.Transport)
	}
	return "", "", fmt.Errorf("%w: server offers %v, client supports %v", ErrNoCompatibleTransport, offered, supported)
}

func NewConnection(cfg *Config, card *model.AgentCard) (Connection, error) {
	protocol, url, err := SelectInterface(card, cfg.Transports)
	if err != nil {
		return nil, err
	}
	if url == "" {
		return nil, fmt.Errorf("empty url for transport [%s]", protocol)
	}
	switch protocol {
	case JSONRPC:
		return newJSONRPCConn(url, card, cfg)
	case HTTPJSON:
		return newRESTConn(url, card, cfg)
	case GRPC:
		return newGRPCConn(url, card, cfg)
	default:
		return nil, fmt.Errorf("unsupported transport [%s]", protocol)
	}
}

type singleEventStream struct {
	event model.Event
	done  bool
	lock  sync.Mutex
}

// NewSingleEventStream presents the result of a unary send as a stream of one event.
func NewSingleEventStream(event model.Event) EventStream {
	return &singleEventStream{event: event}
}

func (s *singleEventStream) Next(ctx context.Context) (model.Event, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.done || s.event == nil {
		return nil, io.EOF
	}
	s.done = true
	return s.event, nil
}

func (s *singleEventStream) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.done = true
	return nil
}

// cardOrExtended returns a copy of the public card unless it advertises an authenticated
// extended card, in which case fetch is used to retrieve it.
func cardOrExtended(ctx context.Context, card *model.AgentCard, fetch func(context.Context) (*model.AgentCard, error)) (*model.AgentCard, error) {
	if card == nil {
		return nil, errors.New("no agent card")
	}
	if !card.AuthExtCard {
		clone := *card
		return &clone, nil
	}
	extended, err := fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch extended agent card: %w", err)
	}
	if !extended.Valid() {
		return nil, errors.New("extended agent card is missing name or url")
	}
	return extended, nil
}
