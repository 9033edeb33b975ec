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
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"strings"
	"sync"

	"slackagent/pkg/ai/a2a/model"
	"slackagent/pkg/global"
	"slackagent/pkg/transport"

	"github.com/jhump/protoreflect/v2/grpcdynamic"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

type grpcConn struct {
	url     string
	target  string
	card    *model.AgentCard
	conn    *grpc.ClientConn
	stub    *grpcdynamic.Stub
	desc    *a2aDescriptors
	headers map[string]string
}

type grpcStream struct {
	stream *grpcdynamic.ServerStream
	cancel context.CancelFunc
	once   sync.Once
}

var unmarshalOptions = protojson.UnmarshalOptions{DiscardUnknown: true}

// grpcTarget converts a card url into a dial target. https and grpcs urls use TLS and default
// to port 443. Targets with any other scheme are handed to grpc unchanged.
func grpcTarget(rawURL string) (target string, useTLS bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL, false
	}
	switch strings.ToLower(u.Scheme) {
	case "https", "grpcs":
		host := u.Host
		if u.Port() == "" {
			host = net.JoinHostPort(u.Hostname(), "443")
		}
		return host, true
	case "http", "grpc":
		return u.Host, false
	default:
		return rawURL, false
	}
}

func newGRPCConn(rawURL string, card *model.AgentCard, cfg *Config) (*grpcConn, error) {
	desc, err := loadA2ADescriptors()
	if err != nil {
		return nil, err
	}
	target, useTLS := grpcTarget(rawURL)
	var creds credentials.TransportCredentials
	if useTLS {
		creds = credentials.NewTLS(&tls.Config{InsecureSkipVerify: !cfg.VerifyTLS})
	} else {
		creds = insecure.NewCredentials()
	}
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		transport.NewGRPCIntercept(target, cfg.ConnListener).DialOption(),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, grpc.WithUserAgent(cfg.UserAgent))
	}
	opts = append(opts, cfg.GRPCDialOptions...)
	cc, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for [%s]: %w", rawURL, err)
	}
	if global.Flags.EnableClientLogs {
		log.Printf("GRPC: created client for url [%s] target [%s] tls [%t]\n", rawURL, target, useTLS)
	}
	headers := map[string]string{}
	for k, v := range cfg.Headers {
		headers[strings.ToLower(k)] = v
	}
	return &grpcConn{
		url:     rawURL,
		target:  target,
		card:    card,
		conn:    cc,
		stub:    grpcdynamic.NewStub(cc),
		desc:    desc,
		headers: headers,
	}, nil
}

func (c *grpcConn) Protocol() Protocol {
	return GRPC
}

func (c *grpcConn) URL() string {
	return c.url
}

func (c *grpcConn) outgoing(ctx context.Context) context.Context {
	if len(c.headers) == 0 {
		return ctx
	}
	kv := make([]string, 0, len(c.headers)*2)
	for k, v := range c.headers {
		kv = append(kv, k, v)
	}
	return metadata.AppendToOutgoingContext(ctx, kv...)
}

func newInput(md protoreflect.MethodDescriptor, payload []byte) (*dynamicpb.Message, error) {
	input := dynamicpb.NewMessage(md.Input())
	if len(payload) > 0 {
		if err := unmarshalOptions.Unmarshal(payload, input); err != nil {
			return nil, fmt.Errorf("failed to build %s request: %w", md.Name(), err)
		}
	}
	return input, nil
}

func toJSON(msg proto.Message) ([]byte, error) {
	if msg == nil {
		return nil, errors.New("empty grpc response")
	}
	return protojson.Marshal(msg)
}

func (c *grpcConn) SendMessage(ctx context.Context, msg *model.Message) (model.Event, error) {
	payload, err := newSendRequest(msg)
	if err != nil {
		return nil, err
	}
	input, err := newInput(c.desc.sendMessage, payload)
	if err != nil {
		return nil, err
	}
	output, err := c.stub.InvokeRpc(c.outgoing(ctx), c.desc.sendMessage, input)
	if err != nil {
		return nil, err
	}
	b, err := toJSON(output)
	if err != nil {
		return nil, err
	}
	return decodeStreamResponse(b)
}

func (c *grpcConn) StreamMessage(ctx context.Context, msg *model.Message) (EventStream, error) {
	payload, err := newSendRequest(msg)
	if err != nil {
		return nil, err
	}
	input, err := newInput(c.desc.sendStream, payload)
	if err != nil {
		return nil, err
	}
	streamCtx, cancel := context.WithCancel(c.outgoing(ctx))
	stream, err := c.stub.InvokeRpcServerStream(streamCtx, c.desc.sendStream, input)
	if err != nil {
		cancel()
		return nil, err
	}
	return &grpcStream{stream: stream, cancel: cancel}, nil
}

func (c *grpcConn) GetTask(ctx context.Context, taskID string, historyLength *int) (*model.Task, error) {
	payload, err := json.Marshal(&pjGetTaskRequest{Name: "tasks/" + taskID, HistoryLength: historyLength})
	if err != nil {
		return nil, err
	}
	input, err := newInput(c.desc.getTask, payload)
	if err != nil {
		return nil, err
	}
	output, err := c.stub.InvokeRpc(c.outgoing(ctx), c.desc.getTask, input)
	if err != nil {
		return nil, err
	}
	b, err := toJSON(output)
	if err != nil {
		return nil, err
	}
	return decodeTask(b)
}

func (c *grpcConn) GetCard(ctx context.Context) (*model.AgentCard, error) {
	return cardOrExtended(ctx, c.card, func(ctx context.Context) (*model.AgentCard, error) {
		input := dynamicpb.NewMessage(c.desc.getCard.Input())
		output, err := c.stub.InvokeRpc(c.outgoing(ctx), c.desc.getCard, input)
		if err != nil {
			return nil, err
		}
		b, err := toJSON(output)
		if err != nil {
			return nil, err
		}
		return decodeCard(b)
	})
}

func (c *grpcConn) Close() error {
	return c.conn.Close()
}

func (s *grpcStream) Next(ctx context.Context) (model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	msg, err := s.stream.RecvMsg()
	if err == io.EOF {
		return nil, io.EOF
	} else if err != nil {
		return nil, err
	}
	b, err := toJSON(msg)
	if err != nil {
		return nil, err
	}
	return decodeStreamResponse(b)
}

func (s *grpcStream) Close() error {
	s.once.Do(s.cancel)
	return nil
}
