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
	"log"
	"sort"
	"sync"
	"time"

	"slackagent/pkg/global"

	"github.com/go-co-op/gocron"
)

// JobManager runs named housekeeping functions at fixed intervals.
type JobManager struct {
	cronScheduler *gocron.Scheduler
	jobs          map[string]*Job
	lock          sync.RWMutex
}

type Job struct {
	Name     string        `json:"name"`
	Every    time.Duration `json:"every"`
	NextRun  time.Time     `json:"nextRun"`
	LastRun  time.Time     `json:"lastRun"`
	RunCount int           `json:"runCount"`
	cronJob  *gocron.Job
}

var (
	Manager = NewJobManager()
)

func NewJobManager() *JobManager {
	return &JobManager{
		cronScheduler: gocron.NewScheduler(time.UTC),
		jobs:          map[string]*Job{},
	}
}

// Schedule registers fn to run every interval, replacing any job with the same name. The
// first run happens one interval after the scheduler starts. Runs of the same job never
// overlap.
func (jm *JobManager) Schedule(name string, every time.Duration, fn func()) error {
	if every <= 0 {
		return fmt.Errorf("job [%s]: interval must be positive", name)
	}
	jm.Remove(name)
	jm.lock.Lock()
	defer jm.lock.Unlock()
	cronJob, err := jm.cronScheduler.Every(every).Tag(name).SingletonMode().WaitForSchedule().Do(func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Jobs: Job [%s] panicked: %v\n", name, r)
			}
		}()
		fn()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job [%s]: %w", name, err)
	}
	jm.jobs[name] = &Job{Name: name, Every: every, cronJob: cronJob}
	if global.Flags.EnableAdminLogs {
		log.Printf("Jobs: Scheduled job [%s] every [%s]\n", name, every)
	}
	return nil
}

func (jm *JobManager) Remove(name string) bool {
	jm.lock.Lock()
	defer jm.lock.Unlock()
	if jm.jobs[name] == nil {
		return false
	}
	jm.cronScheduler.RemoveByTag(name)
	delete(jm.jobs, name)
	return true
}

// RunNow triggers an immediate run of the named job in addition to its schedule.
func (jm *JobManager) RunNow(name string) error {
	jm.lock.RLock()
	defer jm.lock.RUnlock()
	if jm.jobs[name] == nil {
		return fmt.Errorf("job [%s] not found", name)
	}
	return jm.cronScheduler.RunByTag(name)
}

func (jm *JobManager) Start() {
	if !jm.cronScheduler.IsRunning() {
		jm.cronScheduler.StartAsync()
	}
}

func (jm *JobManager) Stop() {
	if jm.cronScheduler.IsRunning() {
		jm.cronScheduler.Stop()
	}
}

func (jm *JobManager) List() []*Job {
	jm.lock.RLock()
	defer jm.lock.RUnlock()
	jobs := make([]*Job, 0, len(jm.jobs))
	for _, j := range jm.jobs {
		jobs = append(jobs, &Job{
			Name:     j.Name,
			Every:    j.Every,
			NextRun:  j.cronJob.NextRun(),
			LastRun:  j.cronJob.LastRun(),
			RunCount: j.cronJob.RunCount(),
		})
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].Name < jobs[k].Name })
	return jobs
}
