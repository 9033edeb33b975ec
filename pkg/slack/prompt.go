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

package slack

import (
	"fmt"
	"strings"
)

const defaultPromptText = "Please fix the issue of this thread"

type PromptInput struct {
	Channel      string
	ThreadTS     string
	MessageTS    string
	TriggerEmoji string
	AckReaction  string
	Text         string
}

// RenderPrompt builds the text sent to the agent for a triggered thread. The agent is
// expected to read the thread and reply in Slack itself.
func RenderPrompt(in PromptInput) string {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		text = defaultPromptText
	}
	lines := []string{
		"Pre-instructions:",
		"Use slack_get_thread_replies to fetch the full thread, then add new messages to context.",
		fmt.Sprintf("Add reaction :%s: to the thread root to acknowledge the trigger.", in.AckReaction),
		"Post your response to the same thread.",
		"",
		"Metadata:",
		"Channel: " + in.Channel,
		"Thread TS: " + in.ThreadTS,
		"Reaction message TS: " + in.MessageTS,
		fmt.Sprintf("Trigger emoji: :%s:", in.TriggerEmoji),
		"",
		"Prompt:",
		text,
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
