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

import "errors"

var (
	ErrInvalidConfiguration  = errors.New("invalid a2a configuration")
	ErrDiscoveryFailed       = errors.New("agent card discovery failed")
	ErrConnectionSetupFailed = errors.New("a2a connection setup failed")
	ErrPollFailed            = errors.New("task status polling failed")
)
