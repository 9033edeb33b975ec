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
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	a2aclient "slackagent/pkg/ai/a2a/client"
	"slackagent/pkg/global"
	"slackagent/pkg/types"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ServerArgs struct {
	Config          string
	BotToken        string
	SigningSecret   string
	AppToken        string
	TriggerEmoji    string
	TriggerReaction string
	AckReaction     string
	Host            string
	Port            string
	AgentURL        string
	AgentHeaders    string
	AgentTransports string
	AgentTimeout    string
	PollInterval    string
	PollTimeout     string
	ExtendedCard    string
	Insecure        string
	TriggerTimeout  string
	ServerLogs      string
	AdminLogs       string
	ClientLogs      string
	AgentLogs       string
	SlackLogs       string
	MetricsLogs     string
	ProbeLogs       string
	RequestHeaders  string
	Debug           string
}

var (
	sa = ServerArgs{
		Config:          "config",
		BotToken:        "botToken",
		SigningSecret:   "signingSecret",
		AppToken:        "appToken",
		TriggerEmoji:    "triggerEmoji",
		TriggerReaction: "triggerReaction",
		AckReaction:     "ackReaction",
		Host:            "host",
		Port:            "port",
		AgentURL:        "agentURL",
		AgentHeaders:    "agentHeaders",
		AgentTransports: "agentTransports",
		AgentTimeout:    "agentTimeout",
		PollInterval:    "pollInterval",
		PollTimeout:     "pollTimeout",
		ExtendedCard:    "extendedCard",
		Insecure:        "insecure",
		TriggerTimeout:  "triggerTimeout",
		ServerLogs:      "serverLogs",
		AdminLogs:       "adminLogs",
		ClientLogs:      "clientLogs",
		AgentLogs:       "agentLogs",
		SlackLogs:       "slackLogs",
		MetricsLogs:     "metricsLogs",
		ProbeLogs:       "probeLogs",
		RequestHeaders:  "logRequestHeaders",
		Debug:           "debug",
	}
	ss = struct{ ServerArgs }{ServerArgs{
		Config:   "c",
		Port:     "p",
		AgentURL: "a",
	}}
	sh = struct{ ServerArgs }{ServerArgs{
		Config:          "Path to a YAML settings file",
		BotToken:        "Slack bot token (xoxb-...)",
		SigningSecret:   "Slack signing secret, required for the HTTP Events API",
		AppToken:        "Slack app-level token (xapp-...), enables Socket Mode",
		TriggerEmoji:    "Reaction that triggers the agent",
		TriggerReaction: "Reaction added to the triggering message as acknowledgement",
		AckReaction:     "Reaction the agent is asked to add to the thread root",
		Host:            "Admin/events HTTP server listen host",
		Port:            "Admin/events HTTP server listen port",
		AgentURL:        "Base URL of the remote A2A agent",
		AgentHeaders:    "JSON object of static headers sent to the agent",
		AgentTransports: "Comma-separated transport preference: jsonrpc, http+json|rest, grpc",
		AgentTimeout:    "Agent request timeout (seconds)",
		PollInterval:    "Task poll interval (seconds)",
		PollTimeout:     "Task poll deadline (seconds), unset polls until the task finishes",
		ExtendedCard:    "Use the agent's authenticated extended card",
		Insecure:        "Skip TLS verification towards the agent",
		TriggerTimeout:  "Overall time limit per trigger (seconds), 0 for none",
		ServerLogs:      "Enable/Disable All Server Logs",
		AdminLogs:       "Enable/Disable Admin Logs",
		ClientLogs:      "Enable/Disable Agent Client Logs",
		AgentLogs:       "Enable/Disable Agent Conversation Logs",
		SlackLogs:       "Enable/Disable Slack Logs",
		MetricsLogs:     "Enable/Disable Metrics Logs",
		ProbeLogs:       "Enable/Disable Probe Logs",
		RequestHeaders:  "Enable/Disable logging of request headers",
		Debug:           "Debug logs",
	}}

	configFileEnv = []string{"SLACKAGENT_CONFIG_FILE"}
)

type cliArgs struct {
	config          string
	botToken        string
	signingSecret   string
	appToken        string
	triggerEmoji    string
	triggerReaction string
	ackReaction     string
	host            string
	port            int
	agentURL        string
	agentHeaders    string
	agentTransports string
	agentTimeout    float64
	pollInterval    float64
	pollTimeout     float64
	extendedCard    bool
	insecure        bool
	triggerTimeout  float64
}

func setupServerArgs(fs *flag.FlagSet, cli *cliArgs) {
	stringFlagSet(fs, &cli.config, sa.Config, ss.Config, sh.Config, "")
	stringFlagSet(fs, &cli.botToken, sa.BotToken, "", sh.BotToken, "")
	stringFlagSet(fs, &cli.signingSecret, sa.SigningSecret, "", sh.SigningSecret, "")
	stringFlagSet(fs, &cli.appToken, sa.AppToken, "", sh.AppToken, "")
	stringFlagSet(fs, &cli.triggerEmoji, sa.TriggerEmoji, "", sh.TriggerEmoji, "")
	stringFlagSet(fs, &cli.triggerReaction, sa.TriggerReaction, "", sh.TriggerReaction, "")
	stringFlagSet(fs, &cli.ackReaction, sa.AckReaction, "", sh.AckReaction, "")
	stringFlagSet(fs, &cli.host, sa.Host, "", sh.Host, "")
	intFlagSet(fs, &cli.port, sa.Port, ss.Port, sh.Port, 0)
	stringFlagSet(fs, &cli.agentURL, sa.AgentURL, ss.AgentURL, sh.AgentURL, "")
	stringFlagSet(fs, &cli.agentHeaders, sa.AgentHeaders, "", sh.AgentHeaders, "")
	stringFlagSet(fs, &cli.agentTransports, sa.AgentTransports, "", sh.AgentTransports, "")
	floatFlagSet(fs, &cli.agentTimeout, sa.AgentTimeout, "", sh.AgentTimeout, 0)
	floatFlagSet(fs, &cli.pollInterval, sa.PollInterval, "", sh.PollInterval, 0)
	floatFlagSet(fs, &cli.pollTimeout, sa.PollTimeout, "", sh.PollTimeout, 0)
	boolFlagSet(fs, &cli.extendedCard, sa.ExtendedCard, "", sh.ExtendedCard, false)
	boolFlagSet(fs, &cli.insecure, sa.Insecure, "", sh.Insecure, false)
	floatFlagSet(fs, &cli.triggerTimeout, sa.TriggerTimeout, "", sh.TriggerTimeout, 0)

	boolFlagSet(fs, &global.Flags.EnableServerLogs, sa.ServerLogs, "", sh.ServerLogs, true)
	boolFlagSet(fs, &global.Flags.EnableAdminLogs, sa.AdminLogs, "", sh.AdminLogs, true)
	boolFlagSet(fs, &global.Flags.EnableClientLogs, sa.ClientLogs, "", sh.ClientLogs, true)
	boolFlagSet(fs, &global.Flags.EnableAgentLogs, sa.AgentLogs, "", sh.AgentLogs, true)
	boolFlagSet(fs, &global.Flags.EnableSlackLogs, sa.SlackLogs, "", sh.SlackLogs, true)
	boolFlagSet(fs, &global.Flags.EnableMetricsLogs, sa.MetricsLogs, "", sh.MetricsLogs, false)
	boolFlagSet(fs, &global.Flags.EnableProbeLogs, sa.ProbeLogs, "", sh.ProbeLogs, false)
	boolFlagSet(fs, &global.Flags.LogRequestHeaders, sa.RequestHeaders, "", sh.RequestHeaders, false)
	boolFlagSet(fs, &global.Flags.Debug, sa.Debug, "", sh.Debug, false)
}

// loadSettings applies, lowest to highest precedence: defaults, the YAML settings file,
// environment variables (a .env file never overrides the real environment), then flags.
func loadSettings(args []string, getenv func(string) string) (*types.Settings, error) {
	fs := flag.NewFlagSet("slackagent", flag.ContinueOnError)
	cli := &cliArgs{}
	setupServerArgs(fs, cli)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	settings := types.DefaultSettings()
	configFile := cli.config
	if configFile == "" {
		configFile, _ = lookupEnv(getenv, configFileEnv...)
	}
	if configFile != "" {
		if err := loadSettingsFile(configFile, settings); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(settings, getenv); err != nil {
		return nil, err
	}
	if err := applyFlags(fs, cli, settings); err != nil {
		return nil, err
	}
	if _, err := a2aclient.ParseTransports(settings.A2ATransports); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func loadSettingsFile(path string, settings *types.Settings) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read settings file [%s]: %w", path, err)
	}
	if err := yaml.Unmarshal(data, settings); err != nil {
		return fmt.Errorf("failed to parse settings file [%s]: %w", path, err)
	}
	if settings.A2AHeaders == nil {
		settings.A2AHeaders = map[string]string{}
	}
	return nil
}

func applyEnv(s *types.Settings, getenv func(string) string) error {
	envString(getenv, &s.SlackBotToken, "SLACK_BOT_TOKEN")
	envString(getenv, &s.SlackSigningSecret, "SLACK_SIGNING_SECRET")
	envString(getenv, &s.SlackAppToken, "SLACK_APP_TOKEN")
	envString(getenv, &s.SlackTriggerEmoji, "SLACK_TRIGGER_EMOJI")
	envString(getenv, &s.SlackTriggerReaction, "SLACK_TRIGGER_REACTION")
	envString(getenv, &s.SlackAgentAckReaction, "SLACK_AGENT_ACK_REACTION")
	envString(getenv, &s.SlackAPIURL, "SLACK_API_URL")
	envString(getenv, &s.Host, "HOST")
	envString(getenv, &s.A2AURL, "SLACKAGENT_A2A_URL", "KAGENT_A2A_URL")
	envString(getenv, &s.A2ATransports, "SLACKAGENT_A2A_TRANSPORTS", "KAGENT_A2A_TRANSPORTS")
	s.A2AUseExtendedCard = envBool(getenv, s.A2AUseExtendedCard, "SLACKAGENT_A2A_USE_EXTENDED_CARD", "KAGENT_A2A_USE_EXTENDED_CARD")
	s.A2AVerifyTLS = !envBool(getenv, !s.A2AVerifyTLS, "SLACKAGENT_A2A_INSECURE", "KAGENT_A2A_INSECURE")
	if raw, ok := lookupEnv(getenv, "PORT"); ok {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid PORT [%s]: %w", raw, err)
		}
		s.Port = port
	}
	for _, f := range []struct {
		target *float64
		names  []string
	}{
		{&s.A2ATimeoutSeconds, []string{"SLACKAGENT_A2A_TIMEOUT_S", "KAGENT_A2A_TIMEOUT_S"}},
		{&s.A2APollIntervalSeconds, []string{"SLACKAGENT_A2A_POLL_INTERVAL_S", "KAGENT_A2A_POLL_INTERVAL_S"}},
		{&s.TriggerTimeoutSeconds, []string{"SLACKAGENT_TRIGGER_TIMEOUT_S"}},
	} {
		if err := envFloat(getenv, f.target, f.names...); err != nil {
			return err
		}
	}
	if _, ok := lookupEnv(getenv, "SLACKAGENT_A2A_POLL_TIMEOUT_S", "KAGENT_A2A_POLL_TIMEOUT_S"); ok {
		pollTimeout := 0.0
		if err := envFloat(getenv, &pollTimeout, "SLACKAGENT_A2A_POLL_TIMEOUT_S", "KAGENT_A2A_POLL_TIMEOUT_S"); err != nil {
			return err
		}
		s.A2APollTimeoutSeconds = &pollTimeout
	}
	if raw, ok := lookupEnv(getenv, "SLACKAGENT_A2A_HEADERS_JSON", "KAGENT_A2A_HEADERS_JSON"); ok {
		headers, err := parseHeaders(raw)
		if err != nil {
			return err
		}
		s.A2AHeaders = headers
	}
	return nil
}

func applyFlags(fs *flag.FlagSet, cli *cliArgs, s *types.Settings) error {
	var errs []error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case sa.BotToken:
			s.SlackBotToken = cli.botToken
		case sa.SigningSecret:
			s.SlackSigningSecret = cli.signingSecret
		case sa.AppToken:
			s.SlackAppToken = cli.appToken
		case sa.TriggerEmoji:
			s.SlackTriggerEmoji = cli.triggerEmoji
		case sa.TriggerReaction:
			s.SlackTriggerReaction = cli.triggerReaction
		case sa.AckReaction:
			s.SlackAgentAckReaction = cli.ackReaction
		case sa.Host:
			s.Host = cli.host
		case sa.Port, ss.Port:
			s.Port = cli.port
		case sa.AgentURL, ss.AgentURL:
			s.A2AURL = cli.agentURL
		case sa.AgentHeaders:
			headers, err := parseHeaders(cli.agentHeaders)
			if err != nil {
				errs = append(errs, err)
				return
			}
			s.A2AHeaders = headers
		case sa.AgentTransports:
			s.A2ATransports = cli.agentTransports
		case sa.AgentTimeout:
			s.A2ATimeoutSeconds = cli.agentTimeout
		case sa.PollInterval:
			s.A2APollIntervalSeconds = cli.pollInterval
		case sa.PollTimeout:
			pollTimeout := cli.pollTimeout
			s.A2APollTimeoutSeconds = &pollTimeout
		case sa.ExtendedCard:
			s.A2AUseExtendedCard = cli.extendedCard
		case sa.Insecure:
			s.A2AVerifyTLS = !cli.insecure
		case sa.TriggerTimeout:
			s.TriggerTimeoutSeconds = cli.triggerTimeout
		}
	})
	return errors.Join(errs...)
}

// parseHeaders accepts a JSON object whose values are all strings.
func parseHeaders(raw string) (map[string]string, error) {
	headers := map[string]string{}
	if strings.TrimSpace(raw) == "" {
		return headers, nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil || obj == nil {
		return nil, fmt.Errorf("agent headers must be a JSON object: %s", raw)
	}
	for k, v := range obj {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("agent header [%s] must be a string", k)
		}
		headers[k] = s
	}
	return headers, nil
}

func lookupEnv(getenv func(string) string, names ...string) (string, bool) {
	for _, name := range names {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			return v, true
		}
	}
	return "", false
}

func envString(getenv func(string) string, target *string, names ...string) {
	if v, ok := lookupEnv(getenv, names...); ok {
		*target = v
	}
}

func envBool(getenv func(string) string, def bool, names ...string) bool {
	v, ok := lookupEnv(getenv, names...)
	if !ok {
		return def
	}
	return parseBool(v, def)
}

func envFloat(getenv func(string) string, target *float64, names ...string) error {
	v, ok := lookupEnv(getenv, names...)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s [%s]: %w", names[0], v, err)
	}
	*target = f
	return nil
}

func parseBool(raw string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	return def
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to load .env file: %s\n", err.Error())
	}
}

func logSettings(s *types.Settings) {
	mode := "events api"
	if s.SocketMode() {
		mode = "socket mode"
	}
	log.Printf("Server will listen on [%s:%d] receiving slack events via [%s]\n", s.Host, s.Port, mode)
	pollTimeout := "none"
	if d := s.A2APollTimeout(); d != nil {
		pollTimeout = d.String()
	}
	log.Printf("Agent [%s] transports [%s] timeout [%s] poll interval [%s] poll timeout [%s] extended card [%t] verify TLS [%t]\n",
		s.A2AURL, s.A2ATransports, s.A2ATimeout(), s.A2APollInterval(), pollTimeout, s.A2AUseExtendedCard, s.A2AVerifyTLS)
	log.Printf("Trigger emoji [:%s:] acknowledgement [:%s:] agent ack [:%s:]\n", s.SlackTriggerEmoji, s.SlackTriggerReaction, s.SlackAgentAckReaction)
	if global.Flags.Debug {
		log.Println("Debug logging enabled")
	}
}

func stringFlagSet(fl *flag.FlagSet, p *string, name, shortName, usage, value string) {
	fl.StringVar(p, name, value, usage)
	if shortName != "" {
		fl.StringVar(p, shortName, value, usage)
	}
}

func intFlagSet(fl *flag.FlagSet, p *int, name, shortName, usage string, value int) {
	fl.IntVar(p, name, value, usage)
	if shortName != "" {
		fl.IntVar(p, shortName, value, usage)
	}
}

func floatFlagSet(fl *flag.FlagSet, p *float64, name, shortName, usage string, value float64) {
	fl.Float64Var(p, name, value, usage)
	if shortName != "" {
		fl.Float64Var(p, shortName, value, usage)
	}
}

func boolFlagSet(fl *flag.FlagSet, p *bool, name, shortName, usage string, value bool) {
	fl.BoolVar(p, name, value, usage)
	if shortName != "" {
		fl.BoolVar(p, shortName, value, usage)
	}
}
