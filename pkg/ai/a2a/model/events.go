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

package model

import (
	"encoding/json"
	"fmt"
)

// Event is a raw protocol event as produced by a connection: Message, Task, StatusUpdate
// or ArtifactUpdate.
type Event interface {
	EventKind() string
	isEvent()
}

// UpdateDetail is the incremental change carried by a TaskSnapshot.
type UpdateDetail interface {
	isUpdateDetail()
}

// StreamEvent is what the conversation driver consumes: either a FinalMessage or a TaskSnapshot.
type StreamEvent interface {
	isStreamEvent()
}

type StatusUpdate struct {
	TaskID    string     `json:"taskId"`
	ContextID string     `json:"contextId"`
	Status    TaskStatus `json:"status"`
	Final     bool       `json:"final"`
	Metadata  AnyMap     `json:"metadata,omitempty"`
}

type ArtifactUpdate struct {
	TaskID    string    `json:"taskId"`
	ContextID string    `json:"contextId"`
	Artifact  *Artifact `json:"artifact"`
	Append    bool      `json:"append,omitempty"`
	LastChunk bool      `json:"lastChunk,omitempty"`
	Metadata  AnyMap    `json:"metadata,omitempty"`
}

type FinalMessage struct {
	Message *Message
}

// TaskSnapshot carries the aggregated task after applying Update. Update is nil when the
// snapshot came from a full task event.
type TaskSnapshot struct {
	Task   *Task
	Update UpdateDetail
}

func (*Message) EventKind() string        { return KindMessage }
func (*Task) EventKind() string           { return KindTask }
func (*StatusUpdate) EventKind() string   { return KindStatusUpdate }
func (*ArtifactUpdate) EventKind() string { return KindArtifactUpdate }

func (*Message) isEvent()        {}
func (*Task) isEvent()           {}
func (*StatusUpdate) isEvent()   {}
func (*ArtifactUpdate) isEvent() {}

func (*StatusUpdate) isUpdateDetail()   {}
func (*ArtifactUpdate) isUpdateDetail() {}

func (*FinalMessage) isStreamEvent() {}
func (*TaskSnapshot) isStreamEvent() {}

func (u *StatusUpdate) MarshalJSON() ([]byte, error) {
	type alias StatusUpdate
	return json.Marshal(struct {
		Kind string `json:"kind"`
		*alias
	}{KindStatusUpdate, (*alias)(u)})
}

func (u *ArtifactUpdate) MarshalJSON() ([]byte, error) {
	type alias ArtifactUpdate
	return json.Marshal(struct {
		Kind string `json:"kind"`
		*alias
	}{KindArtifactUpdate, (*alias)(u)})
}

type eventProbe struct {
	Kind     string          `json:"kind"`
	ID       string          `json:"id"`
	TaskID   string          `json:"taskId"`
	Role     string          `json:"role"`
	Status   json.RawMessage `json:"status"`
	Artifact json.RawMessage `json:"artifact"`
}

// DecodeEvent decodes an A2A JSON event by its "kind" discriminator, falling back to the
// shape of the object when the discriminator is missing.
func DecodeEvent(raw []byte) (Event, error) {
	probe := eventProbe{}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse event: %w", err)
	}
	kind := probe.Kind
	if kind == "" {
		switch {
		case len(probe.Artifact) > 0:
			kind = KindArtifactUpdate
		case len(probe.Status) > 0 && probe.ID != "":
			kind = KindTask
		case len(probe.Status) > 0 && probe.TaskID != "":
			kind = KindStatusUpdate
		case probe.Role != "":
			kind = KindMessage
		}
	}
	return DecodeEventOfKind(kind, raw)
}

func DecodeEventOfKind(kind string, raw []byte) (Event, error) {
	var event Event
	switch kind {
	case KindMessage:
		event = &Message{}
	case KindTask:
		event = &Task{}
	case KindStatusUpdate:
		event = &StatusUpdate{}
	case KindArtifactUpdate:
		event = &ArtifactUpdate{}
	default:
		return nil, fmt.Errorf("unknown event kind [%s]", kind)
	}
	if err := json.Unmarshal(raw, event); err != nil {
		return nil, fmt.Errorf("failed to parse %s event: %w", kind, err)
	}
	return event, nil
}
