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
	"fmt"
	"sync"

	"github.com/bufbuild/protocompile"
	"google.golang.org/protobuf/reflect/protoreflect"
)

const (
	a2aProtoFile    = "a2a.proto"
	a2aServiceName  = "A2AService"
	a2aFullService  = "a2a.v1.A2AService"
	rpcSendMessage  = "SendMessage"
	rpcSendStream   = "SendStreamingMessage"
	rpcGetTask      = "GetTask"
	rpcGetAgentCard = "GetAgentCard"
)

// a2aProtoSource is the subset of the A2A gRPC binding this client calls. Field numbers and
// service names follow the published a2a.v1 package so the wire format matches real servers.
const a2aProtoSource = `
syntax = "proto3";

package a2a.v1;

import "google/protobuf/struct.proto";
import "google/protobuf/timestamp.proto";

service A2AService {
  rpc SendMessage(SendMessageRequest) returns (SendMessageResponse);
  rpc SendStreamingMessage(SendMessageRequest) returns (stream StreamResponse);
  rpc GetTask(GetTaskRequest) returns (Task);
  rpc GetAgentCard(GetAgentCardRequest) returns (AgentCard);
}

message SendMessageConfiguration {
  repeated string accepted_output_modes = 1;
  int32 history_length = 3;
  bool blocking = 4;
}

message SendMessageRequest {
  Message message = 1;
  SendMessageConfiguration configuration = 2;
  google.protobuf.Struct metadata = 3;
}

message SendMessageResponse {
  oneof payload {
    Task task = 1;
    Message message = 2;
  }
}

message StreamResponse {
  oneof payload {
    Task task = 1;
    Message message = 2;
    TaskStatusUpdateEvent status_update = 3;
    TaskArtifactUpdateEvent artifact_update = 4;
  }
}

message GetTaskRequest {
  string name = 1;
  int32 history_length = 2;
}

message GetAgentCardRequest {}

enum Role {
  ROLE_UNSPECIFIED = 0;
  ROLE_USER = 1;
  ROLE_AGENT = 2;
}

message Message {
  string message_id = 1;
  string context_id = 2;
  string task_id = 3;
  Role role = 4;
  repeated Part content = 5;
  google.protobuf.Struct metadata = 6;
  repeated string extensions = 7;
}

message Part {
  oneof part {
    string text = 1;
    FilePart file = 2;
    DataPart data = 3;
  }
}

message FilePart {
  oneof file {
    string file_with_uri = 1;
    bytes file_with_bytes = 2;
  }
  string mime_type = 3;
  string name = 4;
}

message DataPart {
  google.protobuf.Struct data = 1;
}

enum TaskState {
  TASK_STATE_UNSPECIFIED = 0;
  TASK_STATE_SUBMITTED = 1;
  TASK_STATE_WORKING = 2;
  TASK_STATE_COMPLETED = 3;
  TASK_STATE_FAILED = 4;
  TASK_STATE_CANCELLED = 5;
  TASK_STATE_INPUT_REQUIRED = 6;
  TASK_STATE_REJECTED = 7;
  TASK_STATE_AUTH_REQUIRED = 8;
}

message TaskStatus {
  TaskState state = 1;
  Message message = 2;
  google.protobuf.Timestamp timestamp = 3;
}

message Artifact {
  string artifact_id = 1;
  string name = 3;
  string description = 4;
  repeated Part parts = 5;
  google.protobuf.Struct metadata = 6;
  repeated string extensions = 7;
}

message Task {
  string id = 1;
  string context_id = 2;
  TaskStatus status = 3;
  repeated Artifact artifacts = 4;
  repeated Message history = 5;
  google.protobuf.Struct metadata = 6;
}

message TaskStatusUpdateEvent {
  string task_id = 1;
  string context_id = 2;
  TaskStatus status = 3;
  bool final = 4;
  google.protobuf.Struct metadata = 5;
}

message TaskArtifactUpdateEvent {
  string task_id = 1;
  string context_id = 2;
  Artifact artifact = 3;
  bool append = 4;
  bool last_chunk = 5;
  google.protobuf.Struct metadata = 6;
}

message AgentCapabilities {
  bool streaming = 1;
  bool push_notifications = 2;
}

message AgentInterface {
  string url = 1;
  string transport = 2;
}

message AgentProvider {
  string url = 1;
  string organization = 2;
}

message AgentSkill {
  string id = 1;
  string name = 2;
  string description = 3;
  repeated string tags = 4;
  repeated string examples = 5;
  repeated string input_modes = 6;
  repeated string output_modes = 7;
}

message AgentCard {
  string protocol_version = 16;
  string name = 1;
  string description = 2;
  string url = 3;
  string preferred_transport = 14;
  repeated AgentInterface additional_interfaces = 15;
  AgentProvider provider = 4;
  string version = 5;
  string documentation_url = 6;
  AgentCapabilities capabilities = 7;
  repeated string default_input_modes = 10;
  repeated string default_output_modes = 11;
  repeated AgentSkill skills = 12;
  bool supports_authenticated_extended_card = 13;
}
`

type a2aDescriptors struct {
	service     protoreflect.ServiceDescriptor
	sendMessage protoreflect.MethodDescriptor
	sendStream  protoreflect.MethodDescriptor
	getTask     protoreflect.MethodDescriptor
	getCard     protoreflect.MethodDescriptor
}

var loadA2ADescriptors = sync.OnceValues(compileA2AProto)

func compileA2AProto() (*a2aDescriptors, error) {
	compiler := protocompile.Compiler{Resolver: protocompile.WithStandardImports(&protocompile.SourceResolver{
		Accessor: protocompile.SourceAccessorFromMap(map[string]string{a2aProtoFile: a2aProtoSource}),
	})}
	files, err := compiler.Compile(context.Background(), a2aProtoFile)
	if err != nil {
		return nil, fmt.Errorf("failed to compile a2a proto: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("a2a proto produced no files")
	}
	sd := files[0].Services().ByName(a2aServiceName)
	if sd == nil {
		return nil, fmt.Errorf("service [%s] not found in a2a proto", a2aServiceName)
	}
	d := &a2aDescriptors{service: sd}
	methods := sd.Methods()
	for name, target := range map[protoreflect.Name]*protoreflect.MethodDescriptor{
		rpcSendMessage:  &d.sendMessage,
		rpcSendStream:   &d.sendStream,
		rpcGetTask:      &d.getTask,
		rpcGetAgentCard: &d.getCard,
	} {
		md := methods.ByName(name)
		if md == nil {
			return nil, fmt.Errorf("method [%s] not found in service [%s]", name, a2aServiceName)
		}
		*target = md
	}
	return d, nil
}
