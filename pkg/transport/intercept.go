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

package transport

import (
	"context"
	"log"
	"net"
	"net/http"
	"sync"

	"google.golang.org/grpc"
)

// ConnListener is told the number of open connections for a label whenever it changes.
type ConnListener func(label string, open int)

type TransportIntercept interface {
	GetOpenConnectionCount() int
}

type BaseTransportIntercept struct {
	Dialer    net.Dialer
	ConnCount int
	Label     string
	listener  ConnListener
	lock      sync.RWMutex
}

type HTTPTransportIntercept struct {
	*http.Transport
	BaseTransportIntercept
	headers map[string]string
}

type GRPCIntercept struct {
	BaseTransportIntercept
}

func NewHTTPTransportIntercept(orig *http.Transport, label string, headers map[string]string, listener ConnListener) *HTTPTransportIntercept {
	t := &HTTPTransportIntercept{
		Transport: orig,
		headers:   headers,
	}
	t.Label = label
	t.listener = listener
	dialer := t.getDialer()
	t.Transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		if conn, err := dialer(ctx, network, addr); err == nil {
			return NewConnTracker(conn, &t.BaseTransportIntercept)
		} else {
			return nil, err
		}
	}
	return t
}

// RoundTrip adds the static headers to every outbound request without overriding headers the
// caller already set.
func (t *HTTPTransportIntercept) RoundTrip(r *http.Request) (*http.Response, error) {
	if len(t.headers) > 0 {
		r = r.Clone(r.Context())
		for k, v := range t.headers {
			if r.Header.Get(k) == "" {
				if http.CanonicalHeaderKey(k) == "Host" {
					r.Host = v
				} else {
					r.Header.Set(k, v)
				}
			}
		}
	}
	return t.Transport.RoundTrip(r)
}

func NewGRPCIntercept(label string, listener ConnListener) *GRPCIntercept {
	g := &GRPCIntercept{}
	g.Label = label
	g.listener = listener
	return g
}

func (g *GRPCIntercept) DialOption() grpc.DialOption {
	return grpc.WithContextDialer(func(ctx context.Context, address string) (net.Conn, error) {
		if conn, err := g.Dialer.DialContext(ctx, "tcp", address); err == nil {
			return NewConnTracker(conn, &g.BaseTransportIntercept)
		} else {
			log.Printf("GRPCIntercept[%s]: Failed to dial address [%s] with error: %s\n", g.Label, address, err.Error())
			return nil, err
		}
	})
}

func (t *HTTPTransportIntercept) getDialer() func(context.Context, string, string) (net.Conn, error) {
	if t.DialContext != nil {
		return t.DialContext
	}
	return t.Dialer.DialContext
}

func (t *BaseTransportIntercept) GetOpenConnectionCount() int {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.ConnCount
}

func (t *BaseTransportIntercept) updateCount(delta int) {
	t.lock.Lock()
	t.ConnCount += delta
	count := t.ConnCount
	t.lock.Unlock()
	if t.listener != nil {
		t.listener(t.Label, count)
	}
}
