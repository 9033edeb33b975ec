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

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// RenderPart flattens one part to plain text.
func RenderPart(part Part) string {
	switch p := part.(type) {
	case *TextPart:
		return p.Text
	case *DataPart:
		return renderData(p.Data)
	case *FilePart:
		name := p.Name
		if name == "" {
			name = "file"
		}
		mime := ""
		if p.MimeType != "" {
			mime = fmt.Sprintf(" (%s)", p.MimeType)
		}
		switch f := p.File.(type) {
		case *FileURI:
			return fmt.Sprintf("[%s%s: %s]", name, mime, f.URI)
		case *FileBytes:
			return fmt.Sprintf("[%s%s: %d base64 chars]", name, mime, len(f.Bytes))
		default:
			return unsupported(p)
		}
	case nil:
		return ""
	default:
		return unsupported(part)
	}
}

func unsupported(part Part) string {
	return fmt.Sprintf("[unsupported part: %s]", part.PartKind())
}

func renderData(data AnyMap) string {
	if data == nil {
		data = AnyMap{}
	}
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Sprintf("%v", map[string]any(data))
	}
	return strings.TrimRight(buf.String(), "\n")
}

func RenderParts(parts []Part) string {
	rendered := make([]string, 0, len(parts))
	for _, p := range parts {
		rendered = append(rendered, RenderPart(p))
	}
	return strings.TrimSpace(strings.Join(rendered, "\n"))
}

func RenderMessage(msg *Message) string {
	if msg == nil {
		return ""
	}
	return RenderParts(msg.Parts)
}

func RenderArtifact(artifact *Artifact) string {
	if artifact == nil {
		return ""
	}
	return RenderParts(artifact.Parts)
}
