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

package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	a2aclient "slackagent/pkg/ai/a2a/client"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(values map[string]string) func(string) string {
	return func(name string) string { return values[name] }
}

func baseEnv() map[string]string {
	return map[string]string{
		"SLACK_BOT_TOKEN":      "xoxb-1",
		"SLACK_SIGNING_SECRET": "secret",
		"SLACKAGENT_A2A_URL":   "http://agent:8080",
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	s, err := loadSettings(nil, envOf(baseEnv()))
	require.NoError(t, err)
	assert.Equal(t, "slackagent", s.SlackTriggerEmoji)
	assert.Equal(t, "eyes", s.SlackTriggerReaction)
	assert.Equal(t, "white_check_mark", s.SlackAgentAckReaction)
	assert.Equal(t, "0.0.0.0", s.Host)
	assert.Equal(t, 3000, s.Port)
	assert.Equal(t, 600*time.Second, s.A2ATimeout())
	assert.Equal(t, 500*time.Millisecond, s.A2APollInterval())
	assert.Nil(t, s.A2APollTimeout())
	assert.Zero(t, s.TriggerTimeout())
	assert.True(t, s.A2AVerifyTLS)
	assert.False(t, s.A2AUseExtendedCard)
	assert.False(t, s.SocketMode())
	assert.Empty(t, s.A2AHeaders)
}

func TestLoadSettingsZeroPollTimeoutIsSet(t *testing.T) {
	env := baseEnv()
	env["SLACKAGENT_A2A_POLL_TIMEOUT_S"] = "0"
	s, err := loadSettings(nil, envOf(env))
	require.NoError(t, err)
	require.NotNil(t, s.A2APollTimeout())
	assert.Zero(t, *s.A2APollTimeout())

	s, err = loadSettings([]string{"--pollTimeout", "0"}, envOf(baseEnv()))
	require.NoError(t, err)
	require.NotNil(t, s.A2APollTimeout())
	assert.Zero(t, *s.A2APollTimeout())
}

func TestLoadSettingsEnvAliases(t *testing.T) {
	env := map[string]string{
		"SLACK_BOT_TOKEN":               "xoxb-1",
		"SLACK_APP_TOKEN":               "xapp-1",
		"KAGENT_A2A_URL":                "http://kagent",
		"KAGENT_A2A_HEADERS_JSON":       `{"x-api-key":"k"}`,
		"KAGENT_A2A_TRANSPORTS":         "grpc, rest",
		"KAGENT_A2A_INSECURE":           "yes",
		"KAGENT_A2A_USE_EXTENDED_CARD":  "on",
		"SLACKAGENT_A2A_POLL_TIMEOUT_S": "30",
		"SLACKAGENT_TRIGGER_TIMEOUT_S":  "900",
		"PORT":                          "8081",
	}
	s, err := loadSettings(nil, envOf(env))
	require.NoError(t, err)
	assert.True(t, s.SocketMode())
	assert.Equal(t, "http://kagent", s.A2AURL)
	assert.Equal(t, map[string]string{"x-api-key": "k"}, s.A2AHeaders)
	assert.Equal(t, "grpc, rest", s.A2ATransports)
	assert.False(t, s.A2AVerifyTLS)
	assert.True(t, s.A2AUseExtendedCard)
	require.NotNil(t, s.A2APollTimeout())
	assert.Equal(t, 30*time.Second, *s.A2APollTimeout())
	assert.Equal(t, 15*time.Minute, s.TriggerTimeout())
	assert.Equal(t, 8081, s.Port)

	env["SLACKAGENT_A2A_URL"] = "http://preferred"
	s, err = loadSettings(nil, envOf(env))
	require.NoError(t, err)
	assert.Equal(t, "http://preferred", s.A2AURL)
}

func TestLoadSettingsPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
slackTriggerEmoji: robot
port: 4000
a2aURL: http://from-file
a2aHeaders:
  Authorization: Bearer file
a2aPollIntervalSeconds: 2
`), 0o600))
	env := baseEnv()
	delete(env, "SLACKAGENT_A2A_URL")
	env["SLACKAGENT_CONFIG_FILE"] = file
	env["PORT"] = "5000"

	s, err := loadSettings(nil, envOf(env))
	require.NoError(t, err)
	assert.Equal(t, "robot", s.SlackTriggerEmoji)
	assert.Equal(t, "http://from-file", s.A2AURL)
	assert.Equal(t, "Bearer file", s.A2AHeaders["Authorization"])
	assert.Equal(t, 2*time.Second, s.A2APollInterval())
	assert.Equal(t, 5000, s.Port)

	s, err = loadSettings([]string{"-p", "6000", "--triggerEmoji", "fire", "--insecure", "--agentHeaders", `{"a":"b"}`}, envOf(env))
	require.NoError(t, err)
	assert.Equal(t, 6000, s.Port)
	assert.Equal(t, "fire", s.SlackTriggerEmoji)
	assert.False(t, s.A2AVerifyTLS)
	assert.Equal(t, map[string]string{"a": "b"}, s.A2AHeaders)
}

func TestLoadSettingsErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{name: "missing bot token", env: map[string]string{"SLACK_SIGNING_SECRET": "s", "SLACKAGENT_A2A_URL": "http://a"}},
		{name: "missing signing secret in http mode", env: map[string]string{"SLACK_BOT_TOKEN": "x", "SLACKAGENT_A2A_URL": "http://a"}},
		{name: "missing agent url", env: map[string]string{"SLACK_BOT_TOKEN": "x", "SLACK_SIGNING_SECRET": "s"}},
		{name: "headers not an object", env: map[string]string{"SLACKAGENT_A2A_HEADERS_JSON": `["a"]`}},
		{name: "header not a string", env: map[string]string{"SLACKAGENT_A2A_HEADERS_JSON": `{"a":1}`}},
		{name: "bad port", env: map[string]string{"PORT": "http"}},
		{name: "bad timeout", env: map[string]string{"SLACKAGENT_A2A_TIMEOUT_S": "soon"}},
		{name: "missing settings file", env: map[string]string{"SLACKAGENT_CONFIG_FILE": "/does/not/exist.yaml"}},
		{name: "bad header flag", args: []string{"--agentHeaders", "nope"}},
		{name: "unknown flag", args: []string{"--bogus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := tt.env
			if len(tt.args) > 0 {
				env = baseEnv()
			} else if _, ok := env["SLACK_BOT_TOKEN"]; !ok && len(env) == 1 {
				merged := baseEnv()
				for k, v := range env {
					merged[k] = v
				}
				env = merged
			}
			_, err := loadSettings(tt.args, envOf(env))
			assert.Error(t, err)
		})
	}
}

func TestLoadSettingsRejectsBadTransports(t *testing.T) {
	env := baseEnv()
	env["SLACKAGENT_A2A_TRANSPORTS"] = "bogus"
	_, err := loadSettings(nil, envOf(env))
	assert.ErrorIs(t, err, a2aclient.ErrInvalidConfiguration)
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", "y", " on "} {
		assert.True(t, parseBool(v, false), v)
	}
	for _, v := range []string{"0", "false", "No", "n", "off"} {
		assert.False(t, parseBool(v, true), v)
	}
	assert.True(t, parseBool("maybe", true))
	assert.False(t, parseBool("maybe", false))
}
