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
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"

	"slackagent/pkg/ai/a2a/model"
	"slackagent/pkg/global"
	"slackagent/pkg/rpc/jsonrpc"
	"slackagent/pkg/util"

	goa2aclient "trpc.group/trpc-go/trpc-a2a-go/client"
	a2aproto "trpc.group/trpc-go/trpc-a2a-go/protocol"
)

const methodGetExtendedCard = "agent/getAuthenticatedExtendedCard"

type jsonrpcConn struct {
	url        string
	card       *model.AgentCard
	httpClient *http.Client
	client     *goa2aclient.A2AClient
}

type jsonrpcStream struct {
	events <-chan a2aproto.StreamingMessageEvent
	cancel context.CancelFunc
	once   sync.Once
}

func newJSONRPCConn(url string, card *model.AgentCard, cfg *Config) (*jsonrpcConn, error) {
	if cfg.HTTPClient == nil {
		return nil, fmt.Errorf("jsonrpc transport requires an http client")
	}
	c := &jsonrpcConn{url: url, card: card, httpClient: cfg.HTTPClient}
	client, err := goa2aclient.NewA2AClient(url, goa2aclient.WithHTTPClient(cfg.HTTPClient),
		goa2aclient.WithHTTPReqHandler(c), goa2aclient.WithUserAgent(cfg.UserAgent))
	if err != nil {
		return nil, fmt.Errorf("failed to create jsonrpc client for [%s]: %w", url, err)
	}
	c.client = client
	return c, nil
}

func (c *jsonrpcConn) Protocol() Protocol {
	return JSONRPC
}

func (c *jsonrpcConn) URL() string {
	return c.url
}

func (c *jsonrpcConn) SendMessage(ctx context.Context, msg *model.Message) (model.Event, error) {
	m, err := toTRPCMessage(msg)
	if err != nil {
		return nil, err
	}
	result, err := c.client.SendMessage(ctx, a2aproto.SendMessageParams{Message: m})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("empty result from [%s]", c.url)
	}
	return fromTRPCResult(result.Result)
}

func (c *jsonrpcConn) StreamMessage(ctx context.Context, msg *model.Message) (EventStream, error) {
	m, err := toTRPCMessage(msg)
	if err != nil {
		return nil, err
	}
	streamCtx, cancel := context.WithCancel(ctx)
	events, err := c.client.StreamMessage(streamCtx, a2aproto.SendMessageParams{Message: m})
	if err != nil {
		cancel()
		return nil, err
	}
	return &jsonrpcStream{events: events, cancel: cancel}, nil
}

func (c *jsonrpcConn) GetTask(ctx context.Context, taskID string, historyLength *int) (*model.Task, error) {
	task, err := c.client.GetTasks(ctx, a2aproto.TaskQueryParams{ID: taskID, HistoryLength: historyLength})
	if err != nil {
		return nil, err
	}
	event, err := fromTRPCResult(task)
	if err != nil {
		return nil, err
	}
	t, ok := event.(*model.Task)
	if !ok {
		return nil, fmt.Errorf("tasks/get returned %s instead of a task", event.EventKind())
	}
	return t, nil
}

func (c *jsonrpcConn) GetCard(ctx context.Context) (*model.AgentCard, error) {
	return cardOrExtended(ctx, c.card, func(ctx context.Context) (*model.AgentCard, error) {
		card := &model.AgentCard{}
		if err := jsonrpc.Call(ctx, c.httpClient, c.url, methodGetExtendedCard, nil, card); err != nil {
			return nil, err
		}
		return card, nil
	})
}

func (c *jsonrpcConn) Close() error {
	return nil
}

// Handle lets the trpc client route every request through this connection.
func (c *jsonrpcConn) Handle(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
	if client == nil {
		return nil, fmt.Errorf("jsonrpcConn.Handle: http client is nil")
	}
	if global.Flags.EnableClientLogs && global.Flags.LogRequestHeaders {
		log.Printf("JSONRPC: %s %s headers: %s\n", req.Method, req.URL.String(), util.ToJSON(req.Header))
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jsonrpcConn.Handle: http request failed: %w", err)
	}
	return resp, nil
}

func (s *jsonrpcStream) Next(ctx context.Context) (model.Event, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case event, ok := <-s.events:
		if !ok {
			return nil, io.EOF
		}
		return fromTRPCResult(event.Result)
	}
}

func (s *jsonrpcStream) Close() error {
	s.once.Do(s.cancel)
	return nil
}

func toTRPCMessage(msg *model.Message) (a2aproto.Message, error) {
	out := a2aproto.Message{}
	b, err := json.Marshal(msg)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("failed to convert message: %w", err)
	}
	return out, nil
}

// fromTRPCResult converts a trpc protocol value into the local event model through its
// A2A JSON form.
func fromTRPCResult(result any) (model.Event, error) {
	kind := ""
	switch result.(type) {
	case *a2aproto.Message:
		kind = model.KindMessage
	case *a2aproto.Task:
		kind = model.KindTask
	case *a2aproto.TaskStatusUpdateEvent:
		kind = model.KindStatusUpdate
	case *a2aproto.TaskArtifactUpdateEvent:
		kind = model.KindArtifactUpdate
	case nil:
		return nil, fmt.Errorf("empty event")
	}
	b, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	if kind == "" {
		return model.DecodeEvent(b)
	}
	return model.DecodeEventOfKind(kind, b)
}
