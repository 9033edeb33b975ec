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
	"crypto/tls"
	"log"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

type ClientTransport interface {
	Transport() TransportIntercept
	HTTP() *http.Client
	Close()
}

type HTTPClientOptions struct {
	Label       string
	Headers     map[string]string
	VerifyTLS   bool
	ConnTimeout time.Duration
	IdleTimeout time.Duration
	Listener    ConnListener
}

type ClientTracker struct {
	*http.Client
	TransportIntercept *HTTPTransportIntercept
}

func NewClientTransport(c *http.Client, tracker *HTTPTransportIntercept) ClientTransport {
	return &ClientTracker{Client: c, TransportIntercept: tracker}
}

func (c *ClientTracker) Close() {
	if c.Client != nil {
		c.CloseIdleConnections()
	}
}

func (c *ClientTracker) Transport() TransportIntercept {
	return c.TransportIntercept
}

func (c *ClientTracker) HTTP() *http.Client {
	return c.Client
}

// CreateHTTPClient builds a client whose only time limits are on connection setup. Streams
// from a remote agent may stay open for as long as the agent keeps working, so there is no
// overall request timeout and no response header timeout.
func CreateHTTPClient(opts HTTPClientOptions) ClientTransport {
	idleTimeout := opts.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = 5 * time.Minute
	}
	tr := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     idleTimeout,
		Proxy:               http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.ConnTimeout,
			KeepAlive: idleTimeout,
		}).DialContext,
		TLSHandshakeTimeout: opts.ConnTimeout,
		ForceAttemptHTTP2:   true,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !opts.VerifyTLS,
		},
	}
	if h2, err := http2.ConfigureTransports(tr); err == nil {
		h2.ReadIdleTimeout = idleTimeout
		h2.PingTimeout = opts.ConnTimeout
	} else {
		log.Printf("Transport [%s]: HTTP/2 not configured: %s\n", opts.Label, err.Error())
	}
	ht := NewHTTPTransportIntercept(tr, opts.Label, opts.Headers, opts.Listener)
	return NewClientTransport(&http.Client{Transport: ht}, ht)
}
