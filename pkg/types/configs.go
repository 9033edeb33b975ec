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

package types

import (
	"errors"
	"time"
)

// Settings is the process configuration after defaults, settings file, environment and
// command line have been applied.
type Settings struct {
	SlackBotToken          string            `yaml:"slackBotToken"`
	SlackSigningSecret     string            `yaml:"slackSigningSecret"`
	SlackAppToken          string            `yaml:"slackAppToken"`
	SlackTriggerEmoji      string            `yaml:"slackTriggerEmoji"`
	SlackTriggerReaction   string            `yaml:"slackTriggerReaction"`
	SlackAgentAckReaction  string            `yaml:"slackAgentAckReaction"`
	SlackAPIURL            string            `yaml:"slackAPIURL"`
	Host                   string            `yaml:"host"`
	Port                   int               `yaml:"port"`
	A2AURL                 string            `yaml:"a2aURL"`
	A2AHeaders             map[string]string `yaml:"a2aHeaders"`
	A2ATransports          string            `yaml:"a2aTransports"`
	A2ATimeoutSeconds      float64           `yaml:"a2aTimeoutSeconds"`
	A2APollIntervalSeconds float64           `yaml:"a2aPollIntervalSeconds"`
	A2APollTimeoutSeconds  *float64          `yaml:"a2aPollTimeoutSeconds,omitempty"`
	A2AUseExtendedCard     bool              `yaml:"a2aUseExtendedCard"`
	A2AVerifyTLS           bool              `yaml:"a2aVerifyTLS"`
	TriggerTimeoutSeconds  float64           `yaml:"triggerTimeoutSeconds"`
}

func DefaultSettings() *Settings {
	return &Settings{
		SlackTriggerEmoji:      "slackagent",
		SlackTriggerReaction:   "eyes",
		SlackAgentAckReaction:  "white_check_mark",
		Host:                   "0.0.0.0",
		Port:                   3000,
		A2AHeaders:             map[string]string{},
		A2ATimeoutSeconds:      600,
		A2APollIntervalSeconds: 0.5,
		A2AVerifyTLS:           true,
	}
}

// SocketMode reports whether events arrive over Socket Mode instead of the HTTP Events API.
func (s *Settings) SocketMode() bool {
	return s.SlackAppToken != ""
}

func (s *Settings) Validate() error {
	var errs []error
	if s.SlackBotToken == "" {
		errs = append(errs, errors.New("SLACK_BOT_TOKEN is required"))
	}
	if !s.SocketMode() && s.SlackSigningSecret == "" {
		errs = append(errs, errors.New("SLACK_SIGNING_SECRET is required unless SLACK_APP_TOKEN enables socket mode"))
	}
	if s.A2AURL == "" {
		errs = append(errs, errors.New("SLACKAGENT_A2A_URL is required"))
	}
	if s.Port <= 0 || s.Port > 65535 {
		errs = append(errs, errors.New("PORT must be between 1 and 65535"))
	}
	if s.SlackTriggerEmoji == "" {
		errs = append(errs, errors.New("SLACK_TRIGGER_EMOJI must not be empty"))
	}
	return errors.Join(errs...)
}

func Seconds(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}

func (s *Settings) A2ATimeout() time.Duration {
	return Seconds(s.A2ATimeoutSeconds)
}

func (s *Settings) A2APollInterval() time.Duration {
	return Seconds(s.A2APollIntervalSeconds)
}

// A2APollTimeout is nil when no poll deadline is configured. Zero stops polling at once.
func (s *Settings) A2APollTimeout() *time.Duration {
	if s.A2APollTimeoutSeconds == nil {
		return nil
	}
	d := Seconds(*s.A2APollTimeoutSeconds)
	return &d
}

func (s *Settings) TriggerTimeout() time.Duration {
	return Seconds(s.TriggerTimeoutSeconds)
}
