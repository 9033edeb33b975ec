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

package metrics

import (
	"fmt"
	"net/http"
	"time"

	"slackagent/pkg/server/middleware"
	"slackagent/pkg/util"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	customRegistry = prometheus.NewRegistry()
	factory        = promauto.With(customRegistry)
	requestCounts  = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "slackagent_requests_by_type", Help: "Number of admin server requests by type"}, []string{"requestType"})
	reactionCounts = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "slackagent_reactions_total", Help: "Number of reaction events by outcome"}, []string{"outcome"})
	askCounts = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "slackagent_agent_asks_total", Help: "Number of remote agent asks by result"}, []string{"result"})
	askDurations = factory.NewHistogram(prometheus.HistogramOpts{
		Name: "slackagent_agent_ask_seconds", Help: "Duration of remote agent asks",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}})
	pollCounts = factory.NewCounter(prometheus.CounterOpts{
		Name: "slackagent_agent_polls_total", Help: "Number of task status polls"})
	cardFetchCounts = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "slackagent_card_fetches_total", Help: "Number of agent card fetch attempts by path and result"}, []string{"path", "result"})
	sessionCounts = factory.NewCounter(prometheus.CounterOpts{
		Name: "slackagent_sessions_created_total", Help: "Number of remote agent sessions created"})
	streamEventCounts = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "slackagent_stream_events_total", Help: "Number of stream events received by kind"}, []string{"kind"})
	activeConnCountsByTargets = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "slackagent_active_client_conns", Help: "Number of active client connections by target"}, []string{"target"})

	Middleware = middleware.NewMiddleware("metrics", SetRoutes, RequestCounter)
)

func UpdateRequestCount(reqType string) {
	requestCounts.WithLabelValues(reqType).Inc()
}

func UpdateReactionCount(outcome string) {
	reactionCounts.WithLabelValues(outcome).Inc()
}

func UpdateAskCount(result string, took time.Duration) {
	askCounts.WithLabelValues(result).Inc()
	askDurations.Observe(took.Seconds())
}

func UpdatePollCount() {
	pollCounts.Inc()
}

func UpdateCardFetchCount(path, result string) {
	cardFetchCounts.WithLabelValues(path, result).Inc()
}

func UpdateSessionCount() {
	sessionCounts.Inc()
}

func UpdateStreamEventCount(kind string) {
	streamEventCounts.WithLabelValues(kind).Inc()
}

// UpdateTargetConnCount has the signature of transport.ConnListener.
func UpdateTargetConnCount(target string, count int) {
	activeConnCountsByTargets.WithLabelValues(target).Set(float64(count))
}

func ClearMetrics() {
	requestCounts.Reset()
	reactionCounts.Reset()
	askCounts.Reset()
	cardFetchCounts.Reset()
	streamEventCounts.Reset()
}

func clearMetrics(w http.ResponseWriter, r *http.Request) {
	ClearMetrics()
	fmt.Fprintln(w, "Metrics cleared")
}

func SetRoutes(r *mux.Router, root *mux.Router) {
	metricsRouter := r.PathPrefix("/metrics").Subrouter()
	util.AddRoute(metricsRouter, "", promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{}).ServeHTTP, "GET")
	util.AddRoute(metricsRouter, "/go", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}).ServeHTTP, "GET")
	util.AddRoute(metricsRouter, "/clear", clearMetrics, "POST")
}

func RequestCounter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		UpdateRequestCount("all")
		if util.IsAdminRequest(r) {
			UpdateRequestCount("admin")
		} else if util.IsMetricsRequest(r) {
			UpdateRequestCount("metrics")
		} else if util.IsProbeRequest(r) {
			UpdateRequestCount("probe")
		}
		if next != nil {
			next.ServeHTTP(w, r)
		}
	})
}
