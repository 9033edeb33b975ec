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

package util

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"reflect"
	"strings"

	"slackagent/pkg/constants"
	"slackagent/pkg/global"

	"github.com/gorilla/mux"
)

type ContextKey struct{ Key string }

var (
	logmessagesKey = &ContextKey{"logmessages"}
)

type messagestore struct {
	messages []string
}

func ContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if global.ServerConfig.Stopping && IsProbeRequest(r) {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), logmessagesKey, &messagestore{})))
	})
}

func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if global.Flags.LogRequestHeaders {
			AddLogMessage(fmt.Sprintf("Request Headers: %s", GetRequestHeadersLog(r)), r)
		}
		next.ServeHTTP(w, r)
		PrintLogMessages(r)
	})
}

func AddLogMessage(msg string, r *http.Request) {
	if m, ok := r.Context().Value(logmessagesKey).(*messagestore); ok {
		m.messages = append(m.messages, msg)
	}
}

func PrintLogMessages(r *http.Request) {
	m, ok := r.Context().Value(logmessagesKey).(*messagestore)
	if !ok || len(m.messages) == 0 {
		return
	}
	if (!IsAdminRequest(r) || global.Flags.EnableAdminLogs) &&
		(!IsProbeRequest(r) || global.Flags.EnableProbeLogs) &&
		(!IsMetricsRequest(r) || global.Flags.EnableMetricsLogs) &&
		global.Flags.EnableServerLogs {
		log.Println(strings.Join(m.messages, " --> "))
	}
	m.messages = m.messages[:0]
}

func GetStringParam(r *http.Request, param string, defaultVal ...string) (string, bool) {
	vars := mux.Vars(r)
	switch {
	case len(vars[param]) > 0:
		return vars[param], true
	case len(defaultVal) > 0:
		return defaultVal[0], false
	default:
		return "", false
	}
}

func GetStringParamValue(r *http.Request, param string, defaultVal ...string) string {
	val, _ := GetStringParam(r, param, defaultVal...)
	return val
}

func GetBoolParamValue(r *http.Request, param string, defaultVal ...bool) bool {
	val, _ := GetStringParam(r, param)
	if val != "" {
		return IsYes(val)
	}
	if len(defaultVal) > 0 {
		return defaultVal[0]
	}
	return false
}

func IsYes(flag string) bool {
	switch strings.ToLower(strings.TrimSpace(flag)) {
	case "1", "true", "yes", "y", "on", "enable":
		return true
	}
	return false
}

func GetRequestHeadersLog(r *http.Request) string {
	headers := r.Header.Clone()
	headers["Host"] = []string{r.Host}
	headers["Protocol"] = []string{r.Proto}
	return ToJSON(headers)
}

func ReadJsonPayload(r *http.Request, t any) error {
	return ReadJsonPayloadFromBody(r.Body, t)
}

func ReadJsonPayloadFromBody(body io.ReadCloser, t any) error {
	if body, err := io.ReadAll(body); err == nil {
		return json.Unmarshal(body, t)
	} else {
		return err
	}
}

func WriteJsonPayload(w http.ResponseWriter, t any) {
	w.Header().Add(constants.HeaderContentType, constants.ContentTypeJSON)
	if t == nil || (reflect.ValueOf(t).Kind() == reflect.Ptr && reflect.ValueOf(t).IsNil()) {
		fmt.Fprintln(w, "")
	} else {
		bytes, _ := json.Marshal(t)
		fmt.Fprintln(w, string(bytes))
	}
}

func SendBadRequest(msg string, w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusBadRequest)
	fmt.Fprintln(w, msg)
	AddLogMessage(msg, r)
}

func SendError(status int, msg string, w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(status)
	fmt.Fprintln(w, msg)
	AddLogMessage(msg, r)
}

func IsAdminRequest(r *http.Request) bool {
	return strings.HasPrefix(r.RequestURI, "/log") || strings.HasPrefix(r.RequestURI, "/a2a") ||
		strings.HasPrefix(r.RequestURI, "/jobs")
}

func IsMetricsRequest(r *http.Request) bool {
	return strings.HasPrefix(r.RequestURI, "/metrics")
}

func IsProbeRequest(r *http.Request) bool {
	return strings.HasPrefix(r.RequestURI, "/healthz") || strings.HasPrefix(r.RequestURI, "/ready")
}

func ToJSON(o any) string {
	if output, err := json.Marshal(o); err == nil {
		return string(output)
	}
	return fmt.Sprintf("%+v", o)
}
