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
	"fmt"

	"slackagent/pkg/ai/a2a/model"
	"slackagent/pkg/metrics"
)

// TaskTracker folds the raw events of one stream into the task they describe. Each
// snapshot it returns is a copy, so later events never change an earlier snapshot.
type TaskTracker struct {
	task *model.Task
}

func NewTaskTracker() *TaskTracker {
	return &TaskTracker{}
}

func (t *TaskTracker) Task() *model.Task {
	return t.task
}

func (t *TaskTracker) Process(event model.Event) (model.StreamEvent, error) {
	if event == nil {
		return nil, fmt.Errorf("nil event")
	}
	metrics.UpdateStreamEventCount(event.EventKind())
	switch e := event.(type) {
	case *model.Message:
		return &model.FinalMessage{Message: e}, nil
	case *model.Task:
		t.task = cloneTask(e)
		return &model.TaskSnapshot{Task: cloneTask(t.task)}, nil
	case *model.StatusUpdate:
		t.ensureTask(e.TaskID, e.ContextID)
		if prev := t.task.Status.Message; prev != nil {
			t.task.History = append(t.task.History, prev)
		}
		t.task.Status = e.Status
		return &model.TaskSnapshot{Task: cloneTask(t.task), Update: e}, nil
	case *model.ArtifactUpdate:
		t.ensureTask(e.TaskID, e.ContextID)
		t.applyArtifact(e)
		return &model.TaskSnapshot{Task: cloneTask(t.task), Update: e}, nil
	default:
		return nil, fmt.Errorf("unsupported event kind [%s]", event.EventKind())
	}
}

func (t *TaskTracker) ensureTask(taskID, contextID string) {
	if t.task == nil {
		t.task = &model.Task{ID: taskID, ContextID: contextID, Status: model.TaskStatus{State: model.TaskStateUnknown}}
		return
	}
	if t.task.ContextID == "" {
		t.task.ContextID = contextID
	}
}

// applyArtifact replaces an artifact with the same id, extends it when the update appends,
// or adds it as a new artifact. Appending to an unknown artifact starts it.
func (t *TaskTracker) applyArtifact(update *model.ArtifactUpdate) {
	if update.Artifact == nil {
		return
	}
	for i, existing := range t.task.Artifacts {
		if existing == nil || existing.ArtifactID != update.Artifact.ArtifactID {
			continue
		}
		if update.Append {
			merged := *existing
			merged.Parts = append(append(model.Parts{}, existing.Parts...), update.Artifact.Parts...)
			t.task.Artifacts[i] = &merged
		} else {
			t.task.Artifacts[i] = update.Artifact
		}
		return
	}
	t.task.Artifacts = append(t.task.Artifacts, update.Artifact)
}

func cloneTask(task *model.Task) *model.Task {
	if task == nil {
		return nil
	}
	clone := *task
	clone.History = append([]*model.Message(nil), task.History...)
	clone.Artifacts = append([]*model.Artifact(nil), task.Artifacts...)
	return &clone
}
