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
	"net/http"

	"github.com/gorilla/mux"
)

func PathRouter(r *mux.Router, path string) *mux.Router {
	return r.PathPrefix(path).Subrouter()
}

// AddRoute registers f for the path and for the path with a trailing slash.
func AddRoute(r *mux.Router, path string, f func(http.ResponseWriter, *http.Request), methods ...string) {
	paths := []string{path}
	if path == "" {
		paths = append(paths, "/")
	} else if path[len(path)-1] != '/' {
		paths = append(paths, path+"/")
	}
	for _, p := range paths {
		if len(methods) > 0 {
			r.HandleFunc(p, f).Methods(methods...)
		} else {
			r.HandleFunc(p, f)
		}
	}
}
