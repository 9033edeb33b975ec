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
	"encoding/json"
	"fmt"

	"slackagent/pkg/util"
)

const (
	CallbackTypeURLVerification = "url_verification"
	CallbackTypeEventCallback   = "event_callback"

	EventTypeReactionAdded = "reaction_added"

	ItemTypeMessage = "message"
)

// ReactionEvent is a reaction_added event flattened to the fields the handler looks at.
type ReactionEvent struct {
	EventID   string `json:"eventId,omitempty"`
	TeamID    string `json:"teamId,omitempty"`
	BotUserID string `json:"botUserId,omitempty"`
	User      string `json:"user"`
	Reaction  string `json:"reaction"`
	ItemType  string `json:"itemType"`
	Channel   string `json:"channel"`
	ItemTS    string `json:"itemTs"`
}

// CallbackEvent is one Events API delivery, from either HTTP or Socket Mode.
type CallbackEvent struct {
	Type      string
	Challenge string
	EventID   string
	EventType string
	Reaction  *ReactionEvent
}

var callbackQuery = util.MustJQ(
	"type=.type",
	"challenge=.challenge",
	"eventId=.event_id",
	"eventType=.event.type",
	"teamId=.team_id // .event.item_team // .authorizations[0].team_id",
	"botUserId=.authorizations[0].user_id",
	"user=.event.user",
	"reaction=.event.reaction",
	"itemType=.event.item.type",
	"channel=.event.item.channel",
	"itemTs=.event.item.ts",
)

func ParseCallback(payload []byte) (*CallbackEvent, error) {
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse slack event payload: %w", err)
	}
	if _, ok := doc.(map[string]any); !ok {
		return nil, fmt.Errorf("slack event payload is not an object")
	}
	fields, err := callbackQuery.ApplyStrings(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to read slack event payload: %w", err)
	}
	cb := &CallbackEvent{
		Type:      fields["type"],
		Challenge: fields["challenge"],
		EventID:   fields["eventId"],
		EventType: fields["eventType"],
	}
	if cb.Type == CallbackTypeEventCallback && cb.EventType == EventTypeReactionAdded {
		cb.Reaction = &ReactionEvent{
			EventID:   fields["eventId"],
			TeamID:    fields["teamId"],
			BotUserID: fields["botUserId"],
			User:      fields["user"],
			Reaction:  fields["reaction"],
			ItemType:  fields["itemType"],
			Channel:   fields["channel"],
			ItemTS:    fields["itemTs"],
		}
	}
	return cb, nil
}
