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
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"slackagent/pkg/ai/a2a/model"
	"slackagent/pkg/constants"
	"slackagent/pkg/global"
)

type restConn struct {
	url        string
	card       *model.AgentCard
	httpClient *http.Client
	userAgent  string
}

type restStream struct {
	body   io.ReadCloser
	reader *sseReader
	cancel context.CancelFunc
	once   sync.Once
}

func newRESTConn(url string, card *model.AgentCard, cfg *Config) (*restConn, error) {
	if cfg.HTTPClient == nil {
		return nil, fmt.Errorf("http+json transport requires an http client")
	}
	return &restConn{
		url:        strings.TrimRight(url, "/"),
		card:       card,
		httpClient: cfg.HTTPClient,
		userAgent:  cfg.UserAgent,
	}, nil
}

func (c *restConn) Protocol() Protocol {
	return HTTPJSON
}

func (c *restConn) URL() string {
	return c.url
}

func (c *restConn) SendMessage(ctx context.Context, msg *model.Message) (model.Event, error) {
	body, err := newSendRequest(msg)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, "/v1/message:send", body, constants.ContentTypeJSON)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return decodeStreamResponse(payload)
}

func (c *restConn) StreamMessage(ctx context.Context, msg *model.Message) (EventStream, error) {
	body, err := newSendRequest(msg)
	if err != nil {
		return nil, err
	}
	streamCtx, cancel := context.WithCancel(ctx)
	resp, err := c.do(streamCtx, http.MethodPost, "/v1/message:stream", body, constants.ContentTypeEventStream)
	if err != nil {
		cancel()
		return nil, err
	}
	return &restStream{body: resp.Body, reader: newSSEReader(resp.Body), cancel: cancel}, nil
}

func (c *restConn) GetTask(ctx context.Context, taskID string, historyLength *int) (*model.Task, error) {
	path := "/v1/tasks/" + url.PathEscape(taskID)
	if historyLength != nil {
		path += "?historyLength=" + strconv.Itoa(*historyLength)
	}
	resp, err := c.do(ctx, http.MethodGet, path, nil, constants.ContentTypeJSON)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return decodeTask(payload)
}

func (c *restConn) GetCard(ctx context.Context) (*model.AgentCard, error) {
	return cardOrExtended(ctx, c.card, func(ctx context.Context) (*model.AgentCard, error) {
		resp, err := c.do(ctx, http.MethodGet, "/v1/card", nil, constants.ContentTypeJSON)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return decodeCard(payload)
	})
}

func (c *restConn) Close() error {
	return nil
}

// do sends the request and returns the response only for 2xx statuses.
func (c *restConn) do(ctx context.Context, method, path string, body []byte, accept string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	}
	req.Header.Set(constants.HeaderAccept, accept)
	if c.userAgent != "" {
		req.Header.Set(constants.HeaderUserAgent, c.userAgent)
	}
	if global.Flags.EnableClientLogs && global.Flags.Debug {
		log.Printf("REST: %s %s\n", method, req.URL.String())
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s %s returned HTTP %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}

func (s *restStream) Next(ctx context.Context) (model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.reader.ReadEvent()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return decodeStreamResponse(data)
}

func (s *restStream) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.body.Close()
	})
	return err
}
