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

package job

import (
	"fmt"
	"net/http"

	"slackagent/pkg/server/middleware"
	"slackagent/pkg/util"

	"github.com/gorilla/mux"
)

var (
	Middleware = middleware.NewMiddleware("jobs", setRoutes, nil)
)

func setRoutes(r *mux.Router, root *mux.Router) {
	jobsRouter := util.PathRouter(r, "/jobs")
	util.AddRoute(jobsRouter, "/{job}/run", runJob, "POST")
	util.AddRoute(jobsRouter, "", getJobs, "GET")
}

func runJob(w http.ResponseWriter, r *http.Request) {
	name := util.GetStringParamValue(r, "job")
	if err := Manager.RunNow(name); err != nil {
		util.SendError(http.StatusNotFound, err.Error(), w, r)
		return
	}
	msg := fmt.Sprintf("Triggered job [%s]", name)
	util.AddLogMessage(msg, r)
	fmt.Fprintln(w, msg)
}

func getJobs(w http.ResponseWriter, r *http.Request) {
	util.WriteJsonPayload(w, Manager.List())
}
