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
	"strings"

	"slackagent/pkg/ai/a2a/model"
)

// ArtifactCollector accumulates streamed artifact chunks by artifact id, remembering the
// order in which ids were first seen.
type ArtifactCollector struct {
	order []string
	texts map[string]string
}

func NewArtifactCollector() *ArtifactCollector {
	return &ArtifactCollector{texts: map[string]string{}}
}

func (c *ArtifactCollector) Add(update *model.ArtifactUpdate) {
	if update == nil || update.Artifact == nil {
		return
	}
	id := update.Artifact.ArtifactID
	chunk := model.RenderArtifact(update.Artifact)
	prior, seen := c.texts[id]
	if !seen {
		c.order = append(c.order, id)
	}
	if update.Append {
		c.texts[id] = prior + chunk
	} else {
		c.texts[id] = chunk
	}
}

func (c *ArtifactCollector) Combined() string {
	texts := make([]string, 0, len(c.order))
	for _, id := range c.order {
		texts = append(texts, c.texts[id])
	}
	return strings.TrimSpace(strings.Join(texts, "\n"))
}
