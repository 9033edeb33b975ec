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

package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	a2aclient "slackagent/pkg/ai/a2a/client"
	"slackagent/pkg/global"
	"slackagent/pkg/job"
	applog "slackagent/pkg/log"
	"slackagent/pkg/metrics"
	"slackagent/pkg/server/middleware"
	"slackagent/pkg/server/probes"
	"slackagent/pkg/slack"
	"slackagent/pkg/transport"
	"slackagent/pkg/types"
)

const (
	slackConnTimeout = 10 * time.Second
	drainTimeout     = 30 * time.Second
)

// App is the running process: the agent client, the Slack side and the admin server.
type App struct {
	Settings *types.Settings
	Agent    *a2aclient.Client
	Slack    *slack.WebClient
	Handler  *slack.Handler
	Socket   *slack.SocketMode
	Jobs     *job.JobManager
	Router   http.Handler

	slackTransport transport.ClientTransport
}

// AgentConfig maps settings onto the remote agent client configuration.
func AgentConfig(s *types.Settings) (a2aclient.ClientConfig, error) {
	transports, err := a2aclient.ParseTransports(s.A2ATransports)
	if err != nil {
		return a2aclient.ClientConfig{}, err
	}
	return a2aclient.ClientConfig{
		BaseURL:         s.A2AURL,
		Headers:         s.A2AHeaders,
		Transports:      transports,
		Timeout:         s.A2ATimeout(),
		PollInterval:    s.A2APollInterval(),
		PollTimeout:     s.A2APollTimeout(),
		UseExtendedCard: s.A2AUseExtendedCard,
		VerifyTLS:       s.A2AVerifyTLS,
	}, nil
}

// NewApp wires everything without starting network activity other than resolving the bot
// identity, which is skipped when Slack cannot be reached.
func NewApp(ctx context.Context, s *types.Settings, jobs *job.JobManager, opts ...a2aclient.Option) (*App, error) {
	agentConfig, err := AgentConfig(s)
	if err != nil {
		return nil, err
	}
	app := &App{Settings: s, Jobs: jobs}
	app.Agent = a2aclient.NewClient(agentConfig, opts...)
	app.slackTransport = transport.CreateHTTPClient(transport.HTTPClientOptions{
		Label:       "slack",
		VerifyTLS:   true,
		ConnTimeout: slackConnTimeout,
		Listener:    metrics.UpdateTargetConnCount,
	})
	app.Slack = slack.NewWebClient(s.SlackBotToken, app.slackTransport.HTTP())
	if s.SlackAPIURL != "" {
		app.Slack.WithBaseURL(s.SlackAPIURL)
	}

	dedupe := slack.NewDeduper(slack.DefaultDedupeWindow)
	if err := dedupe.SchedulePrune(jobs); err != nil {
		return nil, err
	}
	app.Handler = slack.NewHandler(ctx, slack.HandlerConfig{
		TriggerEmoji:    s.SlackTriggerEmoji,
		TriggerReaction: s.SlackTriggerReaction,
		AckReaction:     s.SlackAgentAckReaction,
		BotUserID:       resolveBotUser(ctx, app.Slack),
		TriggerTimeout:  s.TriggerTimeout(),
	}, app.Slack, app.Agent, dedupe)

	middlewares := []*middleware.Middleware{
		metrics.Middleware, probes.Middleware, applog.Middleware, job.Middleware, app.Agent.Middleware(),
	}
	if s.SocketMode() {
		app.Socket = slack.NewSocketMode(s.SlackAppToken, app.Slack, app.Handler)
		if err := app.Socket.Validate(); err != nil {
			return nil, err
		}
	} else {
		middlewares = append(middlewares, slack.NewEventsAPI(s.SlackSigningSecret, app.Handler).Middleware())
	}
	app.Router = NewRouter(middlewares...)
	return app, nil
}

func resolveBotUser(ctx context.Context, api *slack.WebClient) string {
	info, err := api.AuthTest(ctx)
	if err != nil {
		log.Printf("Slack: WARNING: auth.test failed, bot identity will come from events: %s\n", err.Error())
		return ""
	}
	log.Printf("Slack: Connected as [%s] (%s) in team [%s]\n", info.User, info.UserID, info.Team)
	return info.UserID
}

// Ready fails while a Socket Mode connection is not established.
func (app *App) Ready() error {
	if app.Socket != nil && !app.Socket.Connected() {
		return fmt.Errorf("slack socket mode not connected")
	}
	return nil
}

// Close releases the agent session and idle Slack connections after in-flight triggers
// drain or the drain timeout passes.
func (app *App) Close() {
	done := make(chan struct{})
	go func() {
		app.Handler.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(drainTimeout):
		log.Println("Timed out waiting for in-flight triggers")
	}
	if err := app.Agent.Close(); err != nil {
		log.Printf("Failed to close agent session: %s\n", err.Error())
	}
	app.slackTransport.Close()
}

// Run serves until a stop signal arrives.
func Run(s *types.Settings) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app, err := NewApp(ctx, s, job.Manager)
	if err != nil {
		log.Fatalf("Failed to start: %s\n", err.Error())
	}
	job.Manager.Start()
	global.AddShutdownFunc(job.Manager.Stop)
	global.AddShutdownFunc(app.Close)

	httpServer := NewHTTPServer(net.JoinHostPort(s.Host, strconv.Itoa(s.Port)), app.Router)
	if _, err := StartHttpServer(httpServer); err != nil {
		log.Fatal(err.Error())
	}
	if app.Socket != nil {
		go func() {
			if err := app.Socket.Run(ctx); err != nil {
				log.Printf("Slack: Socket Mode stopped: %s\n", err.Error())
			}
		}()
	}
	probes.SetReadinessCheck(app.Ready)

	WaitForStopSignal(ctx)
	cancel()
	StopHttpServer(httpServer)
	global.Shutdown()
	os.Exit(0)
}
