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
	"net/http"
	"net/http/httptest"
	"testing"

	"slackagent/pkg/ai/a2a/model"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type restAgent struct {
	server   *httptest.Server
	lastSend map[string]any
	lastTask *http.Request
	headers  http.Header
}

func newRESTAgent(t *testing.T) *restAgent {
	a := &restAgent{}
	r := mux.NewRouter()
	r.HandleFunc("/v1/message:send", func(w http.ResponseWriter, req *http.Request) {
		a.headers = req.Header.Clone()
		body, _ := io.ReadAll(req.Body)
		require.NoError(t, json.Unmarshal(body, &a.lastSend))
		io.WriteString(w, `{"task":{"id":"t1","contextId":"c1","status":{"state":"TASK_STATE_WORKING"}}}`)
	}).Methods(http.MethodPost)
	r.HandleFunc("/v1/message:stream", func(w http.ResponseWriter, req *http.Request) {
		a.headers = req.Header.Clone()
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"task\":{\"id\":\"t1\",\"status\":{\"state\":\"TASK_STATE_SUBMITTED\"}}}\n\n")
		fmt.Fprint(w, ": ping\n\n")
		fmt.Fprint(w, "data: {\"artifactUpdate\":{\"taskId\":\"t1\",\"artifact\":{\"artifactId\":\"a1\",\"parts\":[{\"text\":\"partial\"}]}}}\n\n")
		fmt.Fprint(w, "data: {\"statusUpdate\":{\"taskId\":\"t1\",\"final\":true,\"status\":{\"state\":\"TASK_STATE_COMPLETED\"}}}\n\n")
	}).Methods(http.MethodPost)
	r.HandleFunc("/v1/tasks/{id}", func(w http.ResponseWriter, req *http.Request) {
		a.lastTask = req
		id := mux.Vars(req)["id"]
		if id == "missing" {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, `{"id":%q,"status":{"state":"TASK_STATE_COMPLETED"},"artifacts":[{"artifactId":"a1","parts":[{"text":"done"}]}]}`, id)
	}).Methods(http.MethodGet)
	r.HandleFunc("/v1/card", func(w http.ResponseWriter, req *http.Request) {
		io.WriteString(w, `{"name":"extended","url":"`+a.server.URL+`","preferredTransport":"HTTP+JSON","capabilities":{"streaming":true}}`)
	}).Methods(http.MethodGet)
	a.server = httptest.NewServer(r)
	t.Cleanup(a.server.Close)
	return a
}

func (a *restAgent) connect(t *testing.T, extended bool) Connection {
	card := testCard(a.server.URL, "HTTP+JSON")
	card.AuthExtCard = extended
	c, err := NewConnection(&Config{HTTPClient: a.server.Client(), Transports: []Protocol{HTTPJSON}, UserAgent: "slackagent-test"}, card)
	require.NoError(t, err)
	assert.Equal(t, HTTPJSON, c.Protocol())
	return c
}

func TestRESTSendMessage(t *testing.T) {
	a := newRESTAgent(t)
	c := a.connect(t, false)
	defer c.Close()

	e, err := c.SendMessage(context.Background(), model.NewUserMessage("m1", "c1", model.NewTextPart("hi")))
	require.NoError(t, err)
	task, ok := e.(*model.Task)
	require.True(t, ok)
	assert.Equal(t, "t1", task.ID)
	assert.Equal(t, model.TaskStateWorking, task.Status.State)

	msg := a.lastSend["message"].(map[string]any)
	assert.Equal(t, "m1", msg["messageId"])
	assert.Equal(t, "ROLE_USER", msg["role"])
	assert.Equal(t, "slackagent-test", a.headers.Get("User-Agent"))
	assert.Equal(t, "application/json", a.headers.Get("Content-Type"))
}

func TestRESTStreamMessage(t *testing.T) {
	a := newRESTAgent(t)
	c := a.connect(t, false)
	ctx := context.Background()

	stream, err := c.StreamMessage(ctx, model.NewUserMessage("m1", "c1", model.NewTextPart("hi")))
	require.NoError(t, err)
	defer stream.Close()

	kinds := []string{}
	for {
		e, err := stream.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		kinds = append(kinds, e.EventKind())
	}
	assert.Equal(t, []string{model.KindTask, model.KindArtifactUpdate, model.KindStatusUpdate}, kinds)
	assert.Equal(t, "text/event-stream", a.headers.Get("Accept"))
}

func TestRESTGetTask(t *testing.T) {
	a := newRESTAgent(t)
	c := a.connect(t, false)
	zero := 0

	task, err := c.GetTask(context.Background(), "t9", &zero)
	require.NoError(t, err)
	assert.Equal(t, "t9", task.ID)
	assert.Equal(t, model.TaskStateCompleted, task.Status.State)
	assert.Equal(t, "done", model.RenderArtifact(task.Artifacts[0]))
	assert.Equal(t, "0", a.lastTask.URL.Query().Get("historyLength"))

	_, err = c.GetTask(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "task not found")
}

func TestRESTGetCard(t *testing.T) {
	a := newRESTAgent(t)

	card, err := a.connect(t, false).GetCard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "helper", card.Name)

	card, err = a.connect(t, true).GetCard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "extended", card.Name)
}
