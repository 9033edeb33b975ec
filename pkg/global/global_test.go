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

package global

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShutdownRunsInReverseAndSurvivesPanics(t *testing.T) {
	order := []int{}
	AddShutdownFunc(func() { order = append(order, 1) })
	AddShutdownFunc(func() { panic("boom") })
	AddShutdownFunc(func() { order = append(order, 3) })
	Shutdown()
	assert.Equal(t, []int{3, 1}, order)

	Shutdown()
	assert.Equal(t, []int{3, 1}, order)
}
