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
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

type TaskState string

const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input-required"
	TaskStateAuthRequired  TaskState = "auth-required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateFailed        TaskState = "failed"
	TaskStateCanceled      TaskState = "canceled"
	TaskStateRejected      TaskState = "rejected"
	TaskStateUnknown       TaskState = "unknown"
)

const (
	KindMessage        = "message"
	KindTask           = "task"
	KindStatusUpdate   = "status-update"
	KindArtifactUpdate = "artifact-update"
)

type Message struct {
	Role      Role   `json:"role"`
	Parts     Parts  `json:"parts"`
	MessageID string `json:"messageId"`
	ContextID string `json:"contextId,omitempty"`
	TaskID    string `json:"taskId,omitempty"`
	Metadata  AnyMap `json:"metadata,omitempty"`
}

type Artifact struct {
	ArtifactID  string `json:"artifactId"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Parts       Parts  `json:"parts"`
	Metadata    AnyMap `json:"metadata,omitempty"`
}

type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
}

type Task struct {
	ID        string      `json:"id"`
	ContextID string      `json:"contextId"`
	Status    TaskStatus  `json:"status"`
	History   []*Message  `json:"history,omitempty"`
	Artifacts []*Artifact `json:"artifacts,omitempty"`
	Metadata  AnyMap      `json:"metadata,omitempty"`
}

func NewUserMessage(messageID, contextID string, parts ...Part) *Message {
	return &Message{Role: RoleUser, Parts: parts, MessageID: messageID, ContextID: contextID}
}

// IsPending reports whether the agent is still expected to make progress on its own.
func (s TaskState) IsPending() bool {
	return s == TaskStateSubmitted || s == TaskStateWorking
}

func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled, TaskStateRejected:
		return true
	}
	return false
}

func (t *Task) IsPending() bool {
	return t != nil && t.Status.State.IsPending()
}

func (m *Message) MarshalJSON() ([]byte, error) {
	type alias Message
	return json.Marshal(struct {
		Kind string `json:"kind"`
		*alias
	}{KindMessage, (*alias)(m)})
}

func (t *Task) MarshalJSON() ([]byte, error) {
	type alias Task
	return json.Marshal(struct {
		Kind string `json:"kind"`
		*alias
	}{KindTask, (*alias)(t)})
}
