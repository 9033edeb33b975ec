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
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"slackagent/pkg/constants"
)

const (
	DefaultAPIURL = "https://slack.com/api/"

	ErrCodeAlreadyReacted = "already_reacted"
	ErrCodeRateLimited    = "ratelimited"

	defaultCallTimeout = 30 * time.Second
)

// APIError is a Slack Web API response with ok=false.
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack %s failed: %s", e.Method, e.Code)
}

// IsErrorCode reports whether err is a Slack API error with the given code.
func IsErrorCode(err error, code string) bool {
	apiErr := &APIError{}
	return errors.As(err, &apiErr) && apiErr.Code == code
}

type Message struct {
	Type     string `json:"type"`
	User     string `json:"user,omitempty"`
	BotID    string `json:"bot_id,omitempty"`
	Text     string `json:"text"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts,omitempty"`
}

type AuthInfo struct {
	UserID string `json:"user_id"`
	User   string `json:"user"`
	TeamID string `json:"team_id"`
	Team   string `json:"team"`
	BotID  string `json:"bot_id,omitempty"`
}

type apiResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// WebClient calls the handful of Slack Web API methods the bot needs.
type WebClient struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

func NewWebClient(token string, httpClient *http.Client) *WebClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &WebClient{token: token, baseURL: DefaultAPIURL, httpClient: httpClient}
}

func (c *WebClient) WithBaseURL(baseURL string) *WebClient {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	c.baseURL = baseURL
	return c
}

func (c *WebClient) AuthTest(ctx context.Context) (*AuthInfo, error) {
	info := &AuthInfo{}
	if err := c.call(ctx, "auth.test", c.token, url.Values{}, info); err != nil {
		return nil, err
	}
	return info, nil
}

// FetchMessage returns the single message at ts in channel, or nil when there is none.
func (c *WebClient) FetchMessage(ctx context.Context, channel, ts string) (*Message, error) {
	params := url.Values{
		"channel":   {channel},
		"latest":    {ts},
		"oldest":    {ts},
		"inclusive": {"true"},
		"limit":     {"1"},
	}
	history := &struct {
		Messages []*Message `json:"messages"`
	}{}
	if err := c.call(ctx, "conversations.history", c.token, params, history); err != nil {
		return nil, err
	}
	if len(history.Messages) == 0 {
		return nil, nil
	}
	return history.Messages[0], nil
}

func (c *WebClient) AddReaction(ctx context.Context, channel, ts, name string) error {
	params := url.Values{
		"channel":   {channel},
		"timestamp": {ts},
		"name":      {name},
	}
	return c.call(ctx, "reactions.add", c.token, params, nil)
}

// OpenConnection asks for a Socket Mode websocket URL. It authenticates with the app-level
// token rather than the bot token.
func (c *WebClient) OpenConnection(ctx context.Context, appToken string) (string, error) {
	conn := &struct {
		URL string `json:"url"`
	}{}
	if err := c.call(ctx, "apps.connections.open", appToken, url.Values{}, conn); err != nil {
		return "", err
	}
	if conn.URL == "" {
		return "", fmt.Errorf("slack apps.connections.open returned no url")
	}
	return conn.URL, nil
}

func (c *WebClient) call(ctx context.Context, method, token string, params url.Values, out any) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultCallTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+method, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create slack %s request: %w", method, err)
	}
	req.Header.Set(constants.HeaderContentType, "application/x-www-form-urlencoded")
	req.Header.Set(constants.HeaderAuthorization, "Bearer "+token)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack %s request failed: %w", method, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read slack %s response: %w", method, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return &APIError{Method: method, Code: ErrCodeRateLimited}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("slack %s returned HTTP %d: %s", method, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	status := &apiResponse{}
	if err := json.Unmarshal(body, status); err != nil {
		return fmt.Errorf("failed to parse slack %s response: %w", method, err)
	}
	if !status.OK {
		code := status.Error
		if code == "" {
			code = "unknown_error"
		}
		return &APIError{Method: method, Code: code}
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse slack %s response: %w", method, err)
		}
	}
	return nil
}
