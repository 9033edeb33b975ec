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

const (
	TransportJSONRPC  = "JSONRPC"
	TransportHTTPJSON = "HTTP+JSON"
	TransportGRPC     = "GRPC"
)

type AgentCapabilities struct {
	Streaming              bool `json:"streaming,omitempty"`
	PushNotifications      bool `json:"pushNotifications,omitempty"`
	StateTransitionHistory bool `json:"stateTransitionHistory,omitempty"`
}

type AgentProvider struct {
	Organization string `json:"organization"`
	URL          string `json:"url,omitempty"`
}

type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
	InputModes  []string `json:"inputModes,omitempty"`
	OutputModes []string `json:"outputModes,omitempty"`
}

type AgentInterface struct {
	URL       string `json:"url"`
	Transport string `json:"transport"`
}

type AgentCard struct {
	ProtocolVersion      string                `json:"protocolVersion,omitempty"`
	Name                 string                `json:"name"`
	Description          string                `json:"description"`
	URL                  string                `json:"url"`
	PreferredTransport   string                `json:"preferredTransport,omitempty"`
	AdditionalInterfaces []*AgentInterface     `json:"additionalInterfaces,omitempty"`
	Provider             *AgentProvider        `json:"provider,omitempty"`
	Version              string                `json:"version"`
	DocumentationURL     string                `json:"documentationUrl,omitempty"`
	Capabilities         AgentCapabilities     `json:"capabilities"`
	SecuritySchemes      map[string]AnyMap     `json:"securitySchemes,omitempty"`
	Security             []AnyMap              `json:"security,omitempty"`
	DefaultInputModes    []string              `json:"defaultInputModes"`
	DefaultOutputModes   []string              `json:"defaultOutputModes"`
	Skills               []*AgentSkill         `json:"skills"`
	AuthExtCard          bool                  `json:"supportsAuthenticatedExtendedCard,omitempty"`
}

func (c *AgentCard) Valid() bool {
	return c != nil && c.Name != "" && c.URL != ""
}

// Interfaces lists the card's endpoints in server preference order: the preferred transport
// at the card url first, then the additional interfaces.
func (c *AgentCard) Interfaces() []*AgentInterface {
	if c == nil {
		return nil
	}
	preferred := c.PreferredTransport
	if preferred == "" {
		preferred = TransportJSONRPC
	}
	interfaces := []*AgentInterface{{URL: c.URL, Transport: preferred}}
	for _, i := range c.AdditionalInterfaces {
		if i != nil {
			interfaces = append(interfaces, i)
		}
	}
	return interfaces
}

// WithoutExtendedCard returns a shallow copy with the extended card flag cleared.
func (c *AgentCard) WithoutExtendedCard() *AgentCard {
	if c == nil {
		return nil
	}
	clone := *c
	clone.AuthExtCard = false
	return &clone
}

func (c *AgentCard) SupportsStreaming() bool {
	return c != nil && c.Capabilities.Streaming
}
