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
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	a2aclient "slackagent/pkg/ai/a2a/client"
	"slackagent/pkg/global"
	"slackagent/pkg/metrics"
)

const (
	OutcomeDuplicate      = "duplicate"
	OutcomeIgnoredEmoji   = "ignored_emoji"
	OutcomeIgnoredSelf    = "ignored_self"
	OutcomeIgnoredItem    = "ignored_item"
	OutcomeFetchFailed    = "fetch_failed"
	OutcomeMessageMissing = "message_missing"
	OutcomeAskFailed      = "ask_failed"
	OutcomeAnswered       = "answered"
	OutcomePanicked       = "panicked"
)

// Asker is the remote agent side of a trigger.
type Asker interface {
	NewAskRequest(text, contextID string) a2aclient.AskRequest
	Ask(ctx context.Context, req a2aclient.AskRequest) (*a2aclient.AskResult, error)
}

// API is the Slack side of a trigger.
type API interface {
	FetchMessage(ctx context.Context, channel, ts string) (*Message, error)
	AddReaction(ctx context.Context, channel, ts, name string) error
}

type HandlerConfig struct {
	TriggerEmoji    string
	TriggerReaction string
	AckReaction     string
	BotUserID       string
	TriggerTimeout  time.Duration
}

// Handler turns trigger reactions into agent asks. Each trigger runs in its own goroutine
// bound to the handler's root context.
type Handler struct {
	config  HandlerConfig
	api     API
	agent   Asker
	dedupe  *Deduper
	rootCtx context.Context
	wg      sync.WaitGroup
}

func NewHandler(ctx context.Context, config HandlerConfig, api API, agent Asker, dedupe *Deduper) *Handler {
	if dedupe == nil {
		dedupe = NewDeduper(DefaultDedupeWindow)
	}
	return &Handler{config: config, api: api, agent: agent, dedupe: dedupe, rootCtx: ctx}
}

// HandleEvent accepts one delivery and returns without waiting for the agent.
func (h *Handler) HandleEvent(cb *CallbackEvent) {
	if cb == nil || cb.Reaction == nil {
		return
	}
	if h.dedupe.Seen(cb.EventID) {
		metrics.UpdateReactionCount(OutcomeDuplicate)
		if global.Flags.EnableSlackLogs {
			log.Printf("Slack: Dropping duplicate event [%s]\n", cb.EventID)
		}
		return
	}
	ev := cb.Reaction
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				metrics.UpdateReactionCount(OutcomePanicked)
				log.Printf("Slack: Reaction handler panicked for event [%s]: %v\n%s\n", ev.EventID, r, string(debug.Stack()))
			}
		}()
		h.HandleReaction(h.rootCtx, ev)
	}()
}

// Wait blocks until all in-flight triggers finish.
func (h *Handler) Wait() {
	h.wg.Wait()
}

// HandleReaction processes one reaction synchronously and returns its outcome.
func (h *Handler) HandleReaction(ctx context.Context, ev *ReactionEvent) (outcome string) {
	defer func() { metrics.UpdateReactionCount(outcome) }()
	if ev.Reaction != h.config.TriggerEmoji {
		return OutcomeIgnoredEmoji
	}
	botUserID := h.config.BotUserID
	if botUserID == "" {
		botUserID = ev.BotUserID
	}
	if botUserID != "" && ev.User == botUserID {
		return OutcomeIgnoredSelf
	}
	if ev.ItemType != ItemTypeMessage || ev.Channel == "" || ev.ItemTS == "" {
		return OutcomeIgnoredItem
	}
	if h.config.TriggerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.TriggerTimeout)
		defer cancel()
	}
	message, err := h.api.FetchMessage(ctx, ev.Channel, ev.ItemTS)
	if err != nil {
		log.Printf("Slack: Failed to fetch message [%s] in channel [%s]: %s\n", ev.ItemTS, ev.Channel, err.Error())
		return OutcomeFetchFailed
	}
	if message == nil {
		return OutcomeMessageMissing
	}
	threadTS := message.ThreadTS
	if threadTS == "" {
		threadTS = message.TS
	}
	if threadTS == "" {
		return OutcomeMessageMissing
	}
	threadKey := fmt.Sprintf("%s:%s:%s", ev.TeamID, ev.Channel, threadTS)
	contextID := "slack:" + threadKey

	if err := h.api.AddReaction(ctx, ev.Channel, ev.ItemTS, h.config.TriggerReaction); err != nil && !IsErrorCode(err, ErrCodeAlreadyReacted) {
		log.Printf("Slack: WARNING: Failed to add reaction [%s]: %s\n", h.config.TriggerReaction, err.Error())
	}

	prompt := RenderPrompt(PromptInput{
		Channel:      ev.Channel,
		ThreadTS:     threadTS,
		MessageTS:    ev.ItemTS,
		TriggerEmoji: h.config.TriggerEmoji,
		AckReaction:  h.config.AckReaction,
		Text:         message.Text,
	})
	log.Printf("Slack: Triggering agent for thread [%s]\n", threadKey)
	result, err := h.agent.Ask(ctx, h.agent.NewAskRequest(prompt, contextID))
	if err != nil {
		log.Printf("Slack: Agent request for thread [%s] failed: %s\n", threadKey, err.Error())
		return OutcomeAskFailed
	}
	if global.Flags.EnableSlackLogs {
		log.Printf("Slack: Agent finished thread [%s] with [%d] chars of response\n", threadKey, len(result.Text))
	}
	return OutcomeAnswered
}
