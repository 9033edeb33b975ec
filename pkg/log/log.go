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

package log

import (
	"fmt"
	"net/http"

	"slackagent/pkg/global"
	"slackagent/pkg/server/middleware"
	"slackagent/pkg/util"

	"github.com/gorilla/mux"
)

var (
	Middleware = middleware.NewMiddleware("log", setRoutes, nil)

	areas = map[string]*bool{
		"server":  &global.Flags.EnableServerLogs,
		"admin":   &global.Flags.EnableAdminLogs,
		"client":  &global.Flags.EnableClientLogs,
		"agent":   &global.Flags.EnableAgentLogs,
		"slack":   &global.Flags.EnableSlackLogs,
		"probe":   &global.Flags.EnableProbeLogs,
		"metrics": &global.Flags.EnableMetricsLogs,
		"headers": &global.Flags.LogRequestHeaders,
		"debug":   &global.Flags.Debug,
	}
)

func setRoutes(r *mux.Router, root *mux.Router) {
	logRouter := util.PathRouter(r, "/log")
	util.AddRoute(logRouter, "/request/headers/{enable}", setRequestHeadersLog, "POST", "PUT")
	util.AddRoute(logRouter, "/{area}/{enable}", setLogLevel, "POST", "PUT")
	util.AddRoute(logRouter, "", getLogLevels, "GET")
}

func setLogLevel(w http.ResponseWriter, r *http.Request) {
	area := util.GetStringParamValue(r, "area")
	enable := util.GetBoolParamValue(r, "enable")
	flag := areas[area]
	if flag == nil {
		util.SendBadRequest(fmt.Sprintf("Unknown log area [%s]", area), w, r)
		return
	}
	*flag = enable
	msg := fmt.Sprintf("Logging for [%s] set to [%t]", area, enable)
	util.AddLogMessage(msg, r)
	fmt.Fprintln(w, msg)
}

func setRequestHeadersLog(w http.ResponseWriter, r *http.Request) {
	enable := util.GetBoolParamValue(r, "enable")
	global.Flags.LogRequestHeaders = enable
	msg := fmt.Sprintf("Request Headers logging set to [%t]", enable)
	util.AddLogMessage(msg, r)
	fmt.Fprintln(w, msg)
}

func getLogLevels(w http.ResponseWriter, r *http.Request) {
	levels := map[string]bool{}
	for area, flag := range areas {
		levels[area] = *flag
	}
	util.WriteJsonPayload(w, levels)
}
