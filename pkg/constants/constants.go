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

package constants

const (
	AppName = "slackagent"

	HeaderContentType   = "Content-Type"
	HeaderAccept        = "Accept"
	HeaderUserAgent     = "User-Agent"
	HeaderAuthorization = "Authorization"

	ContentTypeJSON        = "application/json"
	ContentTypeEventStream = "text/event-stream"

	HeaderSlackSignature        = "X-Slack-Signature"
	HeaderSlackRequestTimestamp = "X-Slack-Request-Timestamp"
	HeaderSlackRetryNum         = "X-Slack-Retry-Num"
	HeaderSlackRetryReason      = "X-Slack-Retry-Reason"

	NoResponse     = "(no response)"
	NoResponseText = "(no response text)"
)
