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
	"errors"
	"flag"
	"log"
	"os"

	"slackagent/pkg/global"
	"slackagent/pkg/server"
)

func Execute() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Printf("Version: %s, Commit: %s\n", global.Version, global.Commit)

	loadDotEnv()
	settings, err := loadSettings(os.Args[1:], os.Getenv)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("Invalid configuration: %s\n", err.Error())
	}
	logSettings(settings)
	server.Run(settings)
}
