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
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"slackagent/pkg/ai/a2a/conn"
	"slackagent/pkg/ai/a2a/model"
	"slackagent/pkg/constants"
	"slackagent/pkg/global"
	"slackagent/pkg/metrics"

	"github.com/google/uuid"
)

type ClientConfig struct {
	BaseURL         string            `json:"baseURL" yaml:"baseURL"`
	Headers         map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Transports      []conn.Protocol   `json:"transports" yaml:"transports"`
	Timeout         time.Duration     `json:"timeout" yaml:"timeout"`
	PollInterval    time.Duration     `json:"pollInterval" yaml:"pollInterval"`
	PollTimeout     *time.Duration    `json:"pollTimeout,omitempty" yaml:"pollTimeout,omitempty"`
	UseExtendedCard bool              `json:"useExtendedCard" yaml:"useExtendedCard"`
	VerifyTLS       bool              `json:"verifyTLS" yaml:"verifyTLS"`
	UserAgent       string            `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
}

// AskRequest is one conversational turn. A nil PollTimeout polls without a deadline; any set
// value, zero included, bounds polling.
type AskRequest struct {
	Text         string         `json:"text"`
	ContextID    string         `json:"contextId,omitempty"`
	PollInterval time.Duration  `json:"pollInterval,omitempty"`
	PollTimeout  *time.Duration `json:"pollTimeout,omitempty"`
}

type AskResult struct {
	Text      string `json:"text"`
	ContextID string `json:"contextId,omitempty"`
}

type Client struct {
	config  *ClientConfig
	session *Session
	poller  *Poller
	newID   func() string
}

type Option func(*clientOptions)

type clientOptions struct {
	fetchCard CardFetcher
	newConn   conn.Factory
	poller    *Poller
	newID     func() string
}

func WithCardFetcher(f CardFetcher) Option {
	return func(o *clientOptions) { o.fetchCard = f }
}

func WithConnectionFactory(f conn.Factory) Option {
	return func(o *clientOptions) { o.newConn = f }
}

func WithPoller(p *Poller) Option {
	return func(o *clientOptions) { o.poller = p }
}

func WithMessageIDs(f func() string) Option {
	return func(o *clientOptions) { o.newID = f }
}

func NewClient(config ClientConfig, opts ...Option) *Client {
	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if len(config.Transports) == 0 {
		config.Transports = append([]conn.Protocol{}, DefaultTransports...)
	}
	if config.UserAgent == "" {
		config.UserAgent = constants.AppName + "/" + global.Version
	}
	if o.poller == nil {
		o.poller = NewPoller()
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	c := &Client{config: &config, poller: o.poller, newID: o.newID}
	c.session = newSession(c.config, o.fetchCard, o.newConn)
	return c
}

func (c *Client) Config() ClientConfig {
	return *c.config
}

// NewAskRequest fills the poll settings from the client configuration.
func (c *Client) NewAskRequest(text, contextID string) AskRequest {
	return AskRequest{
		Text:         text,
		ContextID:    contextID,
		PollInterval: c.config.PollInterval,
		PollTimeout:  c.config.PollTimeout,
	}
}

// Card returns the card of record, establishing the session if needed.
func (c *Client) Card(ctx context.Context) (*model.AgentCard, error) {
	_, card, err := c.session.Ensure(ctx)
	return card, err
}

func (c *Client) Close() error {
	return c.session.Close()
}

// Ask sends one user turn and reduces everything the agent sends back into a single answer
// and the context id to continue the conversation with.
func (c *Client) Ask(ctx context.Context, req AskRequest) (*AskResult, error) {
	start := time.Now()
	result, err := c.ask(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.UpdateAskCount(outcome, time.Since(start))
	return result, err
}

func (c *Client) ask(ctx context.Context, req AskRequest) (*AskResult, error) {
	cn, card, err := c.session.Ensure(ctx)
	if err != nil {
		return nil, err
	}
	msg := model.NewUserMessage(c.newID(), req.ContextID, model.NewTextPart(req.Text))
	stream, err := openStream(ctx, cn, card, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to send message to agent [%s] at [%s]: %w", card.Name, cn.URL(), err)
	}
	defer stream.Close()

	tracker := NewTaskTracker()
	collector := NewArtifactCollector()
	contextOut := req.ContextID
	var final *model.Message
	var lastTask *model.Task

events:
	for {
		raw, err := stream.Next(ctx)
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("stream from agent [%s] failed: %w", card.Name, err)
		}
		event, err := tracker.Process(raw)
		if err != nil {
			log.Printf("A2A: Skipping stream event: %s\n", err.Error())
			continue
		}
		switch e := event.(type) {
		case *model.FinalMessage:
			final = e.Message
			if final != nil && final.ContextID != "" {
				contextOut = final.ContextID
			}
			break events
		case *model.TaskSnapshot:
			lastTask = e.Task
			if lastTask.ContextID != "" {
				contextOut = lastTask.ContextID
			}
			switch u := e.Update.(type) {
			case *model.ArtifactUpdate:
				collector.Add(u)
			case *model.StatusUpdate:
				if u.Final {
					break events
				}
			}
		default:
			log.Printf("A2A: Ignoring stream event of type %T\n", event)
		}
	}

	if final != nil {
		return &AskResult{Text: orNoText(model.RenderMessage(final)), ContextID: contextOut}, nil
	}
	if lastTask == nil {
		return &AskResult{Text: constants.NoResponse, ContextID: contextOut}, nil
	}
	if lastTask.IsPending() {
		var deadline *time.Time
		if req.PollTimeout != nil {
			d := time.Now().Add(max(*req.PollTimeout, 0))
			deadline = &d
		}
		if global.Flags.EnableClientLogs {
			log.Printf("A2A: Stream ended with task [%s] in state [%s], polling\n", lastTask.ID, lastTask.Status.State)
		}
		lastTask, err = c.poller.PollUntilDone(ctx, cn, lastTask, req.PollInterval, deadline)
		if err != nil {
			return nil, err
		}
		if lastTask.ContextID != "" {
			contextOut = lastTask.ContextID
		}
	}
	text := collector.Combined()
	if text == "" {
		text = TaskText(lastTask)
	}
	return &AskResult{Text: orNoText(text), ContextID: contextOut}, nil
}

// openStream falls back to a unary send when the agent does not stream.
func openStream(ctx context.Context, cn conn.Connection, card *model.AgentCard, msg *model.Message) (conn.EventStream, error) {
	if card.SupportsStreaming() {
		return cn.StreamMessage(ctx, msg)
	}
	event, err := cn.SendMessage(ctx, msg)
	if err != nil {
		return nil, err
	}
	return conn.NewSingleEventStream(event), nil
}

// TaskText extracts an answer from a finished task: its artifacts, else its status message,
// else the latest agent message in its history.
func TaskText(task *model.Task) string {
	if task == nil {
		return ""
	}
	texts := []string{}
	for _, a := range task.Artifacts {
		if a == nil || len(a.Parts) == 0 {
			continue
		}
		if text := model.RenderArtifact(a); text != "" {
			texts = append(texts, text)
		}
	}
	if text := strings.TrimSpace(strings.Join(texts, "\n")); text != "" {
		return text
	}
	if text := model.RenderMessage(task.Status.Message); text != "" {
		return text
	}
	for i := len(task.History) - 1; i >= 0; i-- {
		if m := task.History[i]; m != nil && m.Role == model.RoleAgent {
			if text := model.RenderMessage(m); text != "" {
				return text
			}
		}
	}
	return ""
}

func orNoText(text string) string {
	if text == "" {
		return constants.NoResponseText
	}
	return text
}
