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
	"log"
	"sync"
)

var (
	shutdownFuncs []func()
	lock          sync.Mutex
)

// AddShutdownFunc registers cleanup to run on Shutdown, in reverse registration order.
func AddShutdownFunc(f func()) {
	lock.Lock()
	defer lock.Unlock()
	shutdownFuncs = append(shutdownFuncs, f)
}

func Shutdown() {
	lock.Lock()
	funcs := shutdownFuncs
	shutdownFuncs = nil
	lock.Unlock()
	for i := len(funcs) - 1; i >= 0; i-- {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Recovered from panic during shutdown: %v\n", r)
				}
			}()
			funcs[i]()
		}()
	}
}
