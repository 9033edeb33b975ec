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

package a2aclient

import (
	"context"
	"errors"
	"sync"
	"testing"

	"slackagent/pkg/ai/a2a/conn"
	"slackagent/pkg/ai/a2a/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureConcurrentFirstUse(t *testing.T) {
	agent := &fakeAgent{card: streamingCard(), conn: &fakeConn{}}
	c := agent.client(ClientConfig{}, nil)

	wg := sync.WaitGroup{}
	conns := make([]conn.Connection, 16)
	for i := range conns {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cn, _, err := c.session.Ensure(context.Background())
			assert.NoError(t, err)
			conns[i] = cn
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), agent.fetches.Load())
	assert.Equal(t, int32(1), agent.builds.Load())
	for _, cn := range conns {
		assert.Same(t, agent.conn, cn)
	}
	assert.Equal(t, "ready", c.session.State())
}

func TestEnsurePassesConfigToFactory(t *testing.T) {
	card := streamingCard()
	card.AuthExtCard = true
	agent := &fakeAgent{card: card, conn: &fakeConn{}}
	c := agent.client(ClientConfig{
		Headers:    map[string]string{"Authorization": "Bearer t"},
		Transports: []conn.Protocol{conn.GRPC},
		VerifyTLS:  true,
	}, nil)

	_, got, err := c.session.Ensure(context.Background())
	require.NoError(t, err)
	assert.False(t, got.AuthExtCard)
	assert.True(t, card.AuthExtCard, "discovered card must not be modified")
	assert.False(t, agent.lastCard.AuthExtCard)
	assert.Equal(t, []conn.Protocol{conn.GRPC}, agent.lastConfig.Transports)
	assert.Equal(t, "Bearer t", agent.lastConfig.Headers["Authorization"])
	assert.True(t, agent.lastConfig.VerifyTLS)
	assert.NotNil(t, agent.lastConfig.HTTPClient)
}

func TestEnsureDiscoveryFailureAllowsRetry(t *testing.T) {
	agent := &fakeAgent{card: streamingCard(), conn: &fakeConn{}, fetchErr: errors.New("dns failure")}
	c := agent.client(ClientConfig{}, nil)

	_, _, err := c.session.Ensure(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDiscoveryFailed))
	assert.Equal(t, "uninitialized", c.session.State())
	assert.Nil(t, c.session.Card())

	agent.fetchErr = nil
	_, card, err := c.session.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "helper", card.Name)
	assert.Equal(t, int32(2), agent.fetches.Load())
}

func TestEnsureConnectionSetupFailure(t *testing.T) {
	agent := &fakeAgent{card: streamingCard(), connErr: conn.ErrNoCompatibleTransport}
	c := agent.client(ClientConfig{}, nil)

	_, _, err := c.session.Ensure(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnectionSetupFailed))
	assert.True(t, errors.Is(err, conn.ErrNoCompatibleTransport))
	assert.Equal(t, "uninitialized", c.session.State())
}

func TestEnsureExtendedCard(t *testing.T) {
	card := streamingCard()
	card.AuthExtCard = true
	extended := &model.AgentCard{Name: "helper-extended", URL: "http://agent.test"}
	agent := &fakeAgent{card: card, conn: &fakeConn{card: extended}}
	c := agent.client(ClientConfig{UseExtendedCard: true}, nil)

	_, got, err := c.session.Ensure(context.Background())
	require.NoError(t, err)
	assert.Same(t, extended, got)
	assert.True(t, agent.lastCard.AuthExtCard)
}

func TestEnsureExtendedCardFailure(t *testing.T) {
	card := streamingCard()
	card.AuthExtCard = true
	fc := &fakeConn{cardErr: errors.New("forbidden")}
	agent := &fakeAgent{card: card, conn: fc}
	c := agent.client(ClientConfig{UseExtendedCard: true}, nil)

	_, _, err := c.session.Ensure(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDiscoveryFailed))
	assert.True(t, fc.closed)
	assert.Equal(t, "uninitialized", c.session.State())
}

func TestSessionClose(t *testing.T) {
	fc := &fakeConn{}
	agent := &fakeAgent{card: streamingCard(), conn: fc}
	c := agent.client(ClientConfig{}, nil)

	_, err := c.Card(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.True(t, fc.closed)
	assert.Equal(t, "uninitialized", c.session.State())

	_, err = c.Card(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), agent.builds.Load())
}
