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
	"fmt"
	"log"
	"time"

	"slackagent/pkg/ai/a2a/model"
	"slackagent/pkg/global"
	"slackagent/pkg/metrics"
)

const (
	minPollBackoff  = 250 * time.Millisecond
	maxPollBackoff  = 5 * time.Second
	maxPollFailures = 3
)

type TaskGetter interface {
	GetTask(ctx context.Context, taskID string, historyLength *int) (*model.Task, error)
}

// Poller re-fetches a pending task until it leaves the pending states. Sleep and Now are
// replaceable for tests.
type Poller struct {
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

func NewPoller() *Poller {
	return &Poller{Sleep: sleepContext, Now: time.Now}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func pollBackoff(interval time.Duration, failures int) time.Duration {
	wait := max(interval, minPollBackoff)
	for i := 1; i < failures && wait < maxPollBackoff; i++ {
		wait *= 2
	}
	return min(wait, maxPollBackoff)
}

// PollUntilDone returns once the task is no longer pending. When deadline is set and has
// passed, the latest known task is returned without error.
func (p *Poller) PollUntilDone(ctx context.Context, getter TaskGetter, task *model.Task, interval time.Duration, deadline *time.Time) (*model.Task, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	historyLength := 0
	failures := 0
	for task.IsPending() {
		if deadline != nil && !now().Before(*deadline) {
			if global.Flags.EnableClientLogs {
				log.Printf("A2A: Poll deadline reached for task [%s] in state [%s]\n", task.ID, task.Status.State)
			}
			return task, nil
		}
		wait := interval
		if failures > 0 {
			wait = pollBackoff(interval, failures)
		}
		if err := sleep(ctx, wait); err != nil {
			return task, err
		}
		metrics.UpdatePollCount()
		next, err := getter.GetTask(ctx, task.ID, &historyLength)
		if err != nil {
			if ctx.Err() != nil {
				return task, ctx.Err()
			}
			failures++
			if failures >= maxPollFailures {
				return task, fmt.Errorf("%w: task [%s] after %d attempts: %w", ErrPollFailed, task.ID, failures, err)
			}
			log.Printf("A2A: Failed to fetch status of task [%s] (attempt %d): %s\n", task.ID, failures, err.Error())
			continue
		}
		failures = 0
		if next != nil {
			task = next
		}
	}
	return task, nil
}
