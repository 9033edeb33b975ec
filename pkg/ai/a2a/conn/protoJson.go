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
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"slackagent/pkg/ai/a2a/model"
)

// The HTTP+JSON and gRPC bindings share the proto3 JSON mapping of the A2A messages:
// camelCase field names, enum value names, and "content" instead of "parts" on messages.

type pjPart struct {
	Text *string `json:"text,omitempty"`
	File *pjFile `json:"file,omitempty"`
	Data *pjData `json:"data,omitempty"`
}

type pjFile struct {
	FileWithURI   *string `json:"fileWithUri,omitempty"`
	FileWithBytes *string `json:"fileWithBytes,omitempty"`
	MimeType      string  `json:"mimeType,omitempty"`
	Name          string  `json:"name,omitempty"`
}

type pjData struct {
	Data model.AnyMap `json:"data"`
}

type pjMessage struct {
	MessageID string         `json:"messageId,omitempty"`
	ContextID string         `json:"contextId,omitempty"`
	TaskID    string         `json:"taskId,omitempty"`
	Role      string         `json:"role,omitempty"`
	Content   []*pjPart      `json:"content,omitempty"`
	Parts     []*pjPart      `json:"parts,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type pjStatus struct {
	State     string     `json:"state,omitempty"`
	Message   *pjMessage `json:"message,omitempty"`
	Timestamp string     `json:"timestamp,omitempty"`
}

type pjArtifact struct {
	ArtifactID  string    `json:"artifactId,omitempty"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	Parts       []*pjPart `json:"parts,omitempty"`
}

type pjTask struct {
	ID        string        `json:"id,omitempty"`
	ContextID string        `json:"contextId,omitempty"`
	Status    *pjStatus     `json:"status,omitempty"`
	Artifacts []*pjArtifact `json:"artifacts,omitempty"`
	History   []*pjMessage  `json:"history,omitempty"`
}

type pjStatusUpdate struct {
	TaskID    string    `json:"taskId,omitempty"`
	ContextID string    `json:"contextId,omitempty"`
	Status    *pjStatus `json:"status,omitempty"`
	Final     bool      `json:"final,omitempty"`
}

type pjArtifactUpdate struct {
	TaskID    string      `json:"taskId,omitempty"`
	ContextID string      `json:"contextId,omitempty"`
	Artifact  *pjArtifact `json:"artifact,omitempty"`
	Append    bool        `json:"append,omitempty"`
	LastChunk bool        `json:"lastChunk,omitempty"`
}

// pjStreamResponse covers both StreamResponse and SendMessageResponse, whose payload
// oneofs share field names.
type pjStreamResponse struct {
	Task           *pjTask           `json:"task,omitempty"`
	Message        *pjMessage        `json:"message,omitempty"`
	Msg            *pjMessage        `json:"msg,omitempty"`
	StatusUpdate   *pjStatusUpdate   `json:"statusUpdate,omitempty"`
	ArtifactUpdate *pjArtifactUpdate `json:"artifactUpdate,omitempty"`
}

type pjSendConfiguration struct {
	AcceptedOutputModes []string `json:"acceptedOutputModes,omitempty"`
	Blocking            bool     `json:"blocking,omitempty"`
}

type pjSendRequest struct {
	Message       *pjMessage           `json:"message"`
	Configuration *pjSendConfiguration `json:"configuration,omitempty"`
}

type pjGetTaskRequest struct {
	Name          string `json:"name"`
	HistoryLength *int   `json:"historyLength,omitempty"`
}

func newSendRequest(msg *model.Message) ([]byte, error) {
	if msg == nil {
		return nil, errors.New("no message to send")
	}
	return json.Marshal(&pjSendRequest{Message: messageToPJ(msg)})
}

func messageToPJ(msg *model.Message) *pjMessage {
	out := &pjMessage{
		MessageID: msg.MessageID,
		ContextID: msg.ContextID,
		TaskID:    msg.TaskID,
		Role:      roleToPJ(msg.Role),
		Metadata:  msg.Metadata,
	}
	for _, p := range msg.Parts {
		if pp := partToPJ(p); pp != nil {
			out.Content = append(out.Content, pp)
		}
	}
	return out
}

func partToPJ(part model.Part) *pjPart {
	switch p := part.(type) {
	case *model.TextPart:
		text := p.Text
		return &pjPart{Text: &text}
	case *model.DataPart:
		return &pjPart{Data: &pjData{Data: p.Data}}
	case *model.FilePart:
		f := &pjFile{MimeType: p.MimeType, Name: p.Name}
		switch c := p.File.(type) {
		case *model.FileURI:
			uri := c.URI
			f.FileWithURI = &uri
		case *model.FileBytes:
			b := c.Bytes
			f.FileWithBytes = &b
		}
		return &pjPart{File: f}
	default:
		return nil
	}
}

func roleToPJ(role model.Role) string {
	switch role {
	case model.RoleAgent:
		return "ROLE_AGENT"
	case model.RoleUser:
		return "ROLE_USER"
	default:
		return "ROLE_UNSPECIFIED"
	}
}

func roleFromPJ(role string) model.Role {
	switch strings.ToLower(strings.TrimPrefix(role, "ROLE_")) {
	case "agent":
		return model.RoleAgent
	case "user":
		return model.RoleUser
	default:
		return model.Role(strings.ToLower(role))
	}
}

// stateFromPJ maps TASK_STATE_INPUT_REQUIRED style names to input-required. Plain A2A
// state names pass through unchanged.
func stateFromPJ(state string) model.TaskState {
	s := strings.ToLower(strings.TrimPrefix(state, "TASK_STATE_"))
	s = strings.ReplaceAll(s, "_", "-")
	switch s {
	case "cancelled":
		return model.TaskStateCanceled
	case "", "unspecified":
		return model.TaskStateUnknown
	}
	return model.TaskState(s)
}

func (p *pjPart) toModel() model.Part {
	switch {
	case p == nil:
		return &model.UnknownPart{}
	case p.Text != nil:
		return model.NewTextPart(*p.Text)
	case p.File != nil:
		fp := &model.FilePart{Name: p.File.Name, MimeType: p.File.MimeType}
		if p.File.FileWithURI != nil {
			fp.File = &model.FileURI{URI: *p.File.FileWithURI}
		} else if p.File.FileWithBytes != nil {
			fp.File = &model.FileBytes{Bytes: *p.File.FileWithBytes}
		}
		return fp
	case p.Data != nil:
		return model.NewDataPart(p.Data.Data)
	default:
		return &model.UnknownPart{}
	}
}

func partsToModel(parts []*pjPart) model.Parts {
	out := model.Parts{}
	for _, p := range parts {
		out = append(out, p.toModel())
	}
	return out
}

func (m *pjMessage) toModel() *model.Message {
	if m == nil {
		return nil
	}
	parts := m.Content
	if len(parts) == 0 {
		parts = m.Parts
	}
	return &model.Message{
		MessageID: m.MessageID,
		ContextID: m.ContextID,
		TaskID:    m.TaskID,
		Role:      roleFromPJ(m.Role),
		Parts:     partsToModel(parts),
		Metadata:  m.Metadata,
	}
}

func (s *pjStatus) toModel() model.TaskStatus {
	if s == nil {
		return model.TaskStatus{State: model.TaskStateUnknown}
	}
	return model.TaskStatus{
		State:     stateFromPJ(s.State),
		Message:   s.Message.toModel(),
		Timestamp: s.Timestamp,
	}
}

func (a *pjArtifact) toModel() *model.Artifact {
	if a == nil {
		return nil
	}
	return &model.Artifact{
		ArtifactID:  a.ArtifactID,
		Name:        a.Name,
		Description: a.Description,
		Parts:       partsToModel(a.Parts),
	}
}

func (t *pjTask) toModel() *model.Task {
	if t == nil {
		return nil
	}
	task := &model.Task{
		ID:        t.ID,
		ContextID: t.ContextID,
		Status:    t.Status.toModel(),
	}
	for _, a := range t.Artifacts {
		if a != nil {
			task.Artifacts = append(task.Artifacts, a.toModel())
		}
	}
	for _, m := range t.History {
		if m != nil {
			task.History = append(task.History, m.toModel())
		}
	}
	return task
}

func (r *pjStreamResponse) toModel() (model.Event, error) {
	switch {
	case r.Task != nil:
		return r.Task.toModel(), nil
	case r.Message != nil:
		return r.Message.toModel(), nil
	case r.Msg != nil:
		return r.Msg.toModel(), nil
	case r.StatusUpdate != nil:
		return &model.StatusUpdate{
			TaskID:    r.StatusUpdate.TaskID,
			ContextID: r.StatusUpdate.ContextID,
			Status:    r.StatusUpdate.Status.toModel(),
			Final:     r.StatusUpdate.Final,
		}, nil
	case r.ArtifactUpdate != nil:
		artifact := r.ArtifactUpdate.Artifact.toModel()
		if artifact == nil {
			artifact = &model.Artifact{}
		}
		return &model.ArtifactUpdate{
			TaskID:    r.ArtifactUpdate.TaskID,
			ContextID: r.ArtifactUpdate.ContextID,
			Artifact:  artifact,
			Append:    r.ArtifactUpdate.Append,
			LastChunk: r.ArtifactUpdate.LastChunk,
		}, nil
	default:
		return nil, errors.New("stream response has no payload")
	}
}

func decodeStreamResponse(raw []byte) (model.Event, error) {
	r := &pjStreamResponse{}
	if err := json.Unmarshal(raw, r); err != nil {
		return nil, fmt.Errorf("invalid stream response: %w", err)
	}
	return r.toModel()
}

func decodeTask(raw []byte) (*model.Task, error) {
	t := &pjTask{}
	if err := json.Unmarshal(raw, t); err != nil {
		return nil, fmt.Errorf("invalid task: %w", err)
	}
	return t.toModel(), nil
}

func decodeCard(raw []byte) (*model.AgentCard, error) {
	card := &model.AgentCard{}
	if err := json.Unmarshal(raw, card); err != nil {
		return nil, fmt.Errorf("invalid agent card: %w", err)
	}
	return card, nil
}
