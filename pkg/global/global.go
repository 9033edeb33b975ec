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

package global

import (
	"time"
)

type GlobalFlags struct {
	EnableServerLogs  bool
	EnableAdminLogs   bool
	EnableClientLogs  bool
	EnableAgentLogs   bool
	EnableSlackLogs   bool
	EnableProbeLogs   bool
	EnableMetricsLogs bool
	LogRequestHeaders bool
	Debug             bool
}

type ServerSettings struct {
	Host          string
	Port          int
	StartupDelay  time.Duration
	ShutdownDelay time.Duration
	Stopping      bool
}

var (
	Version = "dev"
	Commit  string

	Flags = &GlobalFlags{
		EnableServerLogs:  true,
		EnableAdminLogs:   true,
		EnableClientLogs:  true,
		EnableAgentLogs:   true,
		EnableSlackLogs:   true,
		EnableProbeLogs:   false,
		EnableMetricsLogs: false,
		LogRequestHeaders: false,
	}
	ServerConfig = &ServerSettings{}
)
