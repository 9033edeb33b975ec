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
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slackagent/pkg/global"
	"slackagent/pkg/server/middleware"
	"slackagent/pkg/util"

	"github.com/gorilla/mux"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

var (
	h2s = &http2.Server{}
)

// NewRouter links the given middlewares behind the request context and logging handlers.
func NewRouter(middlewares ...*middleware.Middleware) *mux.Router {
	r := mux.NewRouter()
	r.SkipClean(true)
	r.Use(util.ContextMiddleware, util.LoggingMiddleware)
	middleware.LinkMiddlewareChain(r, middlewares...)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, "No route for [%s %s]\n", r.Method, r.URL.Path)
	})
	return r
}

func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(handler, h2s),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       1 * time.Minute,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       1 * time.Minute,
		ErrorLog:          log.New(io.Discard, "discard", 0),
	}
}

// StartHttpServer binds the listener synchronously so that address errors surface to the
// caller, then serves in the background.
func StartHttpServer(server *http.Server) (net.Listener, error) {
	if server == nil {
		return nil, errors.New("missing server")
	}
	if global.ServerConfig.StartupDelay > 0 {
		log.Printf("Sleeping %s before starting", global.ServerConfig.StartupDelay)
		time.Sleep(global.ServerConfig.StartupDelay)
	}
	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on [%s]: %w", server.Addr, err)
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Println(err)
		}
	}()
	log.Printf("HTTP server listening on [%s]\n", listener.Addr().String())
	return listener, nil
}

// WaitForStopSignal blocks until SIGINT/SIGTERM or ctx ends.
func WaitForStopSignal(ctx context.Context) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)
	select {
	case <-c:
		log.Println("Received stop signal.")
	case <-ctx.Done():
	}
	global.ServerConfig.Stopping = true
	if global.ServerConfig.ShutdownDelay > 0 {
		log.Printf("Sleeping %s before stopping", global.ServerConfig.ShutdownDelay)
		select {
		case <-c:
			log.Printf("Received 2nd Interrupt. Really stopping now.")
		case <-time.After(global.ServerConfig.ShutdownDelay):
		}
	}
}

func StopHttpServer(server *http.Server) {
	if server == nil {
		return
	}
	log.Printf("HTTP Server %s started shutting down", server.Addr)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP Server %s shutdown error: %s", server.Addr, err.Error())
	}
	log.Printf("HTTP Server %s finished shutting down", server.Addr)
}
