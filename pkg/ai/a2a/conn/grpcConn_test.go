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
	"io"
	"net"
	"strings"
	"sync"
	"testing"

	"slackagent/pkg/ai/a2a/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

type grpcAgent struct {
	lis       *bufconn.Listener
	server    *grpc.Server
	responses map[string][]string
	lock      sync.Mutex
	requests  map[string]map[string]any
	md        metadata.MD
}

func newGRPCAgent(t *testing.T, responses map[string][]string) *grpcAgent {
	desc, err := loadA2ADescriptors()
	require.NoError(t, err)
	a := &grpcAgent{
		lis:       bufconn.Listen(1 << 20),
		responses: responses,
		requests:  map[string]map[string]any{},
	}
	a.server = grpc.NewServer(grpc.UnknownServiceHandler(func(srv any, stream grpc.ServerStream) error {
		full, _ := grpc.MethodFromServerStream(stream)
		if !strings.HasPrefix(full, "/"+a2aFullService+"/") {
			return status.Errorf(codes.Unimplemented, "unknown method %s", full)
		}
		name := full[strings.LastIndex(full, "/")+1:]
		md := desc.service.Methods().ByName(protoreflect.Name(name))
		if md == nil {
			return status.Errorf(codes.Unimplemented, "unknown method %s", full)
		}
		req := dynamicpb.NewMessage(md.Input())
		if err := stream.RecvMsg(req); err != nil {
			return err
		}
		b, _ := protojson.Marshal(req)
		decoded := map[string]any{}
		json.Unmarshal(b, &decoded)
		incoming, _ := metadata.FromIncomingContext(stream.Context())
		a.lock.Lock()
		a.requests[name] = decoded
		a.md = incoming
		a.lock.Unlock()
		outs, ok := a.responses[name]
		if !ok {
			return status.Errorf(codes.NotFound, "no response for %s", name)
		}
		for _, out := range outs {
			resp := dynamicpb.NewMessage(md.Output())
			if err := protojson.Unmarshal([]byte(out), resp); err != nil {
				return status.Errorf(codes.Internal, "bad fixture: %v", err)
			}
			if err := stream.SendMsg(resp); err != nil {
				return err
			}
		}
		return nil
	}))
	go a.server.Serve(a.lis)
	t.Cleanup(a.server.Stop)
	return a
}

func (a *grpcAgent) connect(t *testing.T, extended bool) Connection {
	card := testCard("passthrough:///bufnet", "GRPC")
	card.AuthExtCard = extended
	c, err := NewConnection(&Config{
		Transports: []Protocol{GRPC},
		Headers:    map[string]string{"X-Api-Key": "secret"},
		GRPCDialOptions: []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return a.lis.DialContext(ctx)
			}),
		},
	}, card)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func (a *grpcAgent) request(name string) map[string]any {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.requests[name]
}

func (a *grpcAgent) incoming() metadata.MD {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.md
}

func TestGRPCTarget(t *testing.T) {
	target, useTLS := grpcTarget("https://agent.example.com")
	assert.Equal(t, "agent.example.com:443", target)
	assert.True(t, useTLS)

	target, useTLS = grpcTarget("grpcs://agent.example.com:8443")
	assert.Equal(t, "agent.example.com:8443", target)
	assert.True(t, useTLS)

	target, useTLS = grpcTarget("http://localhost:50051")
	assert.Equal(t, "localhost:50051", target)
	assert.False(t, useTLS)

	target, useTLS = grpcTarget("passthrough:///bufnet")
	assert.Equal(t, "passthrough:///bufnet", target)
	assert.False(t, useTLS)
}

func TestCompileA2AProto(t *testing.T) {
	desc, err := loadA2ADescriptors()
	require.NoError(t, err)
	assert.Equal(t, protoreflect.FullName(a2aFullService), desc.service.FullName())
	assert.True(t, desc.sendStream.IsStreamingServer())
	assert.False(t, desc.sendMessage.IsStreamingServer())
}

func TestGRPCSendMessage(t *testing.T) {
	a := newGRPCAgent(t, map[string][]string{
		rpcSendMessage: {`{"message":{"messageId":"r1","role":"ROLE_AGENT","content":[{"text":"hello back"}]}}`},
	})
	c := a.connect(t, false)

	e, err := c.SendMessage(context.Background(), model.NewUserMessage("m1", "c1", model.NewTextPart("hello")))
	require.NoError(t, err)
	msg, ok := e.(*model.Message)
	require.True(t, ok)
	assert.Equal(t, model.RoleAgent, msg.Role)
	assert.Equal(t, "hello back", model.RenderMessage(msg))

	req := a.request(rpcSendMessage)
	m := req["message"].(map[string]any)
	assert.Equal(t, "m1", m["messageId"])
	assert.Equal(t, "c1", m["contextId"])
	assert.Equal(t, "ROLE_USER", m["role"])
	assert.Equal(t, []string{"secret"}, a.incoming().Get("x-api-key"))
}

func TestGRPCStreamMessage(t *testing.T) {
	a := newGRPCAgent(t, map[string][]string{
		rpcSendStream: {
			`{"task":{"id":"t1","contextId":"c1","status":{"state":"TASK_STATE_SUBMITTED"}}}`,
			`{"statusUpdate":{"taskId":"t1","contextId":"c1","status":{"state":"TASK_STATE_WORKING","timestamp":"2025-01-02T03:04:05Z"}}}`,
			`{"artifactUpdate":{"taskId":"t1","artifact":{"artifactId":"a1","parts":[{"data":{"data":{"ok":true}}}]},"lastChunk":true}}`,
			`{"statusUpdate":{"taskId":"t1","final":true,"status":{"state":"TASK_STATE_COMPLETED"}}}`,
		},
	})
	c := a.connect(t, false)
	ctx := context.Background()

	stream, err := c.StreamMessage(ctx, model.NewUserMessage("m1", "c1", model.NewTextPart("go")))
	require.NoError(t, err)
	defer stream.Close()

	events := []model.Event{}
	for {
		e, err := stream.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		events = append(events, e)
	}
	require.Len(t, events, 4)
	assert.Equal(t, "t1", events[0].(*model.Task).ID)
	working := events[1].(*model.StatusUpdate)
	assert.Equal(t, model.TaskStateWorking, working.Status.State)
	assert.Equal(t, "2025-01-02T03:04:05Z", working.Status.Timestamp)
	artifact := events[2].(*model.ArtifactUpdate)
	assert.True(t, artifact.LastChunk)
	assert.Equal(t, map[string]any{"ok": true}, map[string]any(artifact.Artifact.Parts[0].(*model.DataPart).Data))
	final := events[3].(*model.StatusUpdate)
	assert.True(t, final.Final)
	assert.Equal(t, model.TaskStateCompleted, final.Status.State)
}

func TestGRPCGetTask(t *testing.T) {
	a := newGRPCAgent(t, map[string][]string{
		rpcGetTask: {`{"id":"t1","status":{"state":"TASK_STATE_INPUT_REQUIRED","message":{"role":"ROLE_AGENT","content":[{"text":"which branch?"}]}}}`},
	})
	c := a.connect(t, false)
	zero := 0

	task, err := c.GetTask(context.Background(), "t1", &zero)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStateInputRequired, task.Status.State)
	assert.Equal(t, "which branch?", model.RenderMessage(task.Status.Message))
	assert.Equal(t, "tasks/t1", a.request(rpcGetTask)["name"])
}

func TestGRPCGetCard(t *testing.T) {
	a := newGRPCAgent(t, map[string][]string{
		rpcGetAgentCard: {`{"name":"extended","url":"passthrough:///bufnet","preferredTransport":"GRPC","capabilities":{"streaming":true},"supportsAuthenticatedExtendedCard":true}`},
	})

	card, err := a.connect(t, false).GetCard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "helper", card.Name)

	card, err = a.connect(t, true).GetCard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "extended", card.Name)
	assert.True(t, card.Capabilities.Streaming)
}

func TestGRPCErrorStatus(t *testing.T) {
	a := newGRPCAgent(t, map[string][]string{})
	c := a.connect(t, false)

	_, err := c.GetTask(context.Background(), "t1", nil)
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
}
