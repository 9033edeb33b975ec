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

package conn

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// sseReader reads the data payloads of a text/event-stream body. Multi-line data fields are
// joined with newlines; event names, ids, retry hints and comments are ignored.
type sseReader struct {
	reader *bufio.Reader
}

func newSSEReader(r io.Reader) *sseReader {
	return &sseReader{reader: bufio.NewReader(r)}
}

func (s *sseReader) ReadEvent() ([]byte, error) {
	data := bytes.Buffer{}
	hasData := false
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		eof := err == io.EOF
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if hasData {
				return data.Bytes(), nil
			}
			if eof {
				return nil, io.EOF
			}
			continue
		}
		if strings.HasPrefix(line, "data:") {
			value := strings.TrimPrefix(line, "data:")
			value = strings.TrimPrefix(value, " ")
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		}
		if eof {
			if hasData {
				return data.Bytes(), nil
			}
			return nil, io.EOF
		}
	}
}
