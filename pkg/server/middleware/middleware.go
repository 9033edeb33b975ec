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

package middleware

import (
	"github.com/gorilla/mux"
)

type Middleware struct {
	Name              string
	SetRoutes         func(r *mux.Router, root *mux.Router)
	MiddlewareHandler mux.MiddlewareFunc
}

func NewMiddleware(name string, setRoutes func(r *mux.Router, root *mux.Router), middlewareHandler mux.MiddlewareFunc) *Middleware {
	return &Middleware{
		Name:              name,
		SetRoutes:         setRoutes,
		MiddlewareHandler: middlewareHandler,
	}
}

// LinkMiddlewareChain registers routes of all middlewares on r and installs their handlers
// in the given order.
func LinkMiddlewareChain(r *mux.Router, middlewares ...*Middleware) {
	for _, m := range middlewares {
		if m == nil {
			continue
		}
		if m.SetRoutes != nil {
			m.SetRoutes(r, r)
		}
		if m.MiddlewareHandler != nil {
			r.Use(m.MiddlewareHandler)
		}
	}
}
