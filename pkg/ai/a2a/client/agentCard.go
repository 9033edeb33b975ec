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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"slackagent/pkg/ai/a2a/model"
	"slackagent/pkg/constants"
	"slackagent/pkg/global"
	"slackagent/pkg/metrics"
)

// CardPaths are tried in order against the agent base url.
var CardPaths = []string{"/.well-known/agent-card.json", "/.well-known/agent.json", "/v1/card"}

// CardFetcher discovers the agent card for a base url. FetchAgentCard is the default.
type CardFetcher func(ctx context.Context, httpClient *http.Client, baseURL string) (*model.AgentCard, error)

func FetchAgentCard(ctx context.Context, httpClient *http.Client, baseURL string) (*model.AgentCard, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	errs := []error{}
	for _, path := range CardPaths {
		card, err := loadAgentCard(ctx, httpClient, baseURL+path)
		if err == nil {
			metrics.UpdateCardFetchCount(path, "ok")
			if global.Flags.EnableClientLogs {
				log.Printf("A2A: Loaded agent card [%s] from [%s%s]\n", card.Name, baseURL, path)
			}
			return card, nil
		}
		metrics.UpdateCardFetchCount(path, "error")
		if global.Flags.EnableClientLogs {
			log.Printf("A2A: Agent card not available at [%s%s]: %s\n", baseURL, path, err.Error())
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrDiscoveryFailed, ctx.Err())
		}
		errs = append(errs, fmt.Errorf("%s: %w", path, err))
	}
	return nil, fmt.Errorf("%w: no agent card at [%s]: %w", ErrDiscoveryFailed, baseURL, errors.Join(errs...))
}

func loadAgentCard(ctx context.Context, httpClient *http.Client, url string) (*model.AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request with error: %w", err)
	}
	req.Header.Set(constants.HeaderAccept, constants.ContentTypeJSON)
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch agent card: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("agent card request failed with status code: %d", resp.StatusCode)
	}
	card := &model.AgentCard{}
	if err := json.NewDecoder(resp.Body).Decode(card); err != nil {
		return nil, fmt.Errorf("failed to parse agent card: %w", err)
	}
	if !card.Valid() {
		return nil, errors.New("agent card is missing name or url")
	}
	return card, nil
}
