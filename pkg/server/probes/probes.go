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

package probes

import (
	"fmt"
	"net/http"
	"sync"

	"slackagent/pkg/global"
	"slackagent/pkg/metrics"
	"slackagent/pkg/server/middleware"
	"slackagent/pkg/util"

	"github.com/gorilla/mux"
)

type ProbeStatus struct {
	HealthCount uint64 `json:"healthCount"`
	ReadyCount  uint64 `json:"readyCount"`
	NotReady    uint64 `json:"notReadyCount"`
	lock        sync.RWMutex
}

var (
	Middleware = middleware.NewMiddleware("probes", setRoutes, nil)

	status         = &ProbeStatus{}
	readinessCheck func() error
	checkLock      sync.RWMutex
)

func setRoutes(r *mux.Router, root *mux.Router) {
	util.AddRoute(r, "/healthz", serveHealth, "GET", "HEAD")
	util.AddRoute(r, "/ready", serveReadiness, "GET", "HEAD")
	util.AddRoute(r, "/probes", getProbes, "GET")
}

// SetReadinessCheck installs an extra condition for /ready beyond the server not stopping.
func SetReadinessCheck(check func() error) {
	checkLock.Lock()
	defer checkLock.Unlock()
	readinessCheck = check
}

func serveHealth(w http.ResponseWriter, r *http.Request) {
	metrics.UpdateRequestCount("healthProbe")
	status.lock.Lock()
	status.HealthCount++
	status.lock.Unlock()
	fmt.Fprint(w, "ok")
}

func serveReadiness(w http.ResponseWriter, r *http.Request) {
	metrics.UpdateRequestCount("readinessProbe")
	err := checkReady()
	status.lock.Lock()
	if err == nil {
		status.ReadyCount++
	} else {
		status.NotReady++
	}
	status.lock.Unlock()
	if err != nil {
		util.SendError(http.StatusServiceUnavailable, err.Error(), w, r)
		return
	}
	fmt.Fprint(w, "ready")
}

func checkReady() error {
	if global.ServerConfig.Stopping {
		return fmt.Errorf("server stopping")
	}
	checkLock.RLock()
	check := readinessCheck
	checkLock.RUnlock()
	if check != nil {
		return check()
	}
	return nil
}

func getProbes(w http.ResponseWriter, r *http.Request) {
	status.lock.RLock()
	output := util.ToJSON(status)
	status.lock.RUnlock()
	util.AddLogMessage(fmt.Sprintf("Reporting probe counts: %s", output), r)
	fmt.Fprintln(w, output)
}
