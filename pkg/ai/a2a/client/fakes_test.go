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
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"slackagent/pkg/ai/a2a/conn"
	"slackagent/pkg/ai/a2a/model"
)

type fakeConn struct {
	lock        sync.Mutex
	events      []model.Event
	streamErr   error
	tasks       []*model.Task
	taskErrs    []error
	card        *model.AgentCard
	cardErr     error
	sent        []*model.Message
	unaryCalls  int
	streamCalls int
	taskCalls   int
	closed      bool
}

type fakeStream struct {
	events []model.Event
	err    error
}

func (s *fakeStream) Next(ctx context.Context) (model.Event, error) {
	if len(s.events) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	e := s.events[0]
	s.events = s.events[1:]
	return e, nil
}

func (s *fakeStream) Close() error {
	return nil
}

func (f *fakeConn) Protocol() conn.Protocol {
	return conn.JSONRPC
}

func (f *fakeConn) URL() string {
	return "http://agent.test"
}

func (f *fakeConn) SendMessage(ctx context.Context, msg *model.Message) (model.Event, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.unaryCalls++
	f.sent = append(f.sent, msg)
	if len(f.events) == 0 {
		return nil, errors.New("no events scripted")
	}
	return f.events[len(f.events)-1], nil
}

func (f *fakeConn) StreamMessage(ctx context.Context, msg *model.Message) (conn.EventStream, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.streamCalls++
	f.sent = append(f.sent, msg)
	return &fakeStream{events: append([]model.Event{}, f.events...), err: f.streamErr}, nil
}

func (f *fakeConn) GetTask(ctx context.Context, taskID string, historyLength *int) (*model.Task, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	i := f.taskCalls
	f.taskCalls++
	if i < len(f.taskErrs) && f.taskErrs[i] != nil {
		return nil, f.taskErrs[i]
	}
	if i < len(f.tasks) {
		return f.tasks[i], nil
	}
	if len(f.tasks) > 0 {
		return f.tasks[len(f.tasks)-1], nil
	}
	return nil, errors.New("no tasks scripted")
}

func (f *fakeConn) GetCard(ctx context.Context) (*model.AgentCard, error) {
	if f.cardErr != nil {
		return nil, f.cardErr
	}
	return f.card, nil
}

func (f *fakeConn) Close() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) lastSent() *model.Message {
	f.lock.Lock()
	defer f.lock.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

type fakeAgent struct {
	card       *model.AgentCard
	fetchErr   error
	connErr    error
	conn       *fakeConn
	fetches    atomic.Int32
	builds     atomic.Int32
	lastConfig *conn.Config
	lastCard   *model.AgentCard
}

func streamingCard() *model.AgentCard {
	return &model.AgentCard{Name: "helper", URL: "http://agent.test", Capabilities: model.AgentCapabilities{Streaming: true}}
}

func (a *fakeAgent) fetch(ctx context.Context, httpClient *http.Client, baseURL string) (*model.AgentCard, error) {
	a.fetches.Add(1)
	time.Sleep(5 * time.Millisecond)
	if a.fetchErr != nil {
		return nil, a.fetchErr
	}
	return a.card, nil
}

func (a *fakeAgent) build(cfg *conn.Config, card *model.AgentCard) (conn.Connection, error) {
	a.builds.Add(1)
	a.lastConfig = cfg
	a.lastCard = card
	if a.connErr != nil {
		return nil, a.connErr
	}
	return a.conn, nil
}

type recordingSleeper struct {
	lock   sync.Mutex
	sleeps []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.sleeps = append(s.sleeps, d)
	return ctx.Err()
}

func (a *fakeAgent) client(config ClientConfig, sleeper *recordingSleeper) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "http://agent.test"
	}
	if sleeper == nil {
		sleeper = &recordingSleeper{}
	}
	return NewClient(config,
		WithCardFetcher(a.fetch),
		WithConnectionFactory(a.build),
		WithPoller(&Poller{Sleep: sleeper.Sleep, Now: time.Now}),
		WithMessageIDs(func() string { return "msg-1" }))
}

func working(id, contextID string) *model.Task {
	return &model.Task{ID: id, ContextID: contextID, Status: model.TaskStatus{State: model.TaskStateWorking}}
}

func agentMessage(text string) *model.Message {
	return &model.Message{Role: model.RoleAgent, Parts: model.Parts{model.NewTextPart(text)}}
}
