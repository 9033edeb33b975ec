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
)

const (
	PartKindText = "text"
	PartKindData = "data"
	PartKindFile = "file"
)

type AnyMap map[string]any

// UnmarshalJSON keeps numbers as json.Number so they render exactly as the agent sent them.
func (m *AnyMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v map[string]any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	*m = v
	return nil
}

// Part is one unit of message or artifact content. The set of implementations is closed:
// TextPart, DataPart, FilePart and UnknownPart.
type Part interface {
	PartKind() string
	isPart()
}

type TextPart struct {
	Text string
}

type DataPart struct {
	Data AnyMap
}

type FilePart struct {
	Name     string
	MimeType string
	File     FileContent
}

// UnknownPart keeps parts of a kind this client does not understand so they can still be
// rendered as a placeholder.
type UnknownPart struct {
	Kind string
	Raw  json.RawMessage
}

// FileContent is either FileURI or FileBytes.
type FileContent interface {
	isFileContent()
}

type FileURI struct {
	URI string
}

type FileBytes struct {
	Bytes string
}

type Parts []Part

func (*TextPart) PartKind() string { return PartKindText }
func (*DataPart) PartKind() string { return PartKindData }
func (*FilePart) PartKind() string { return PartKindFile }
func (p *UnknownPart) PartKind() string {
	if p.Kind == "" {
		return "unknown"
	}
	return p.Kind
}

func (*TextPart) isPart()    {}
func (*DataPart) isPart()    {}
func (*FilePart) isPart()    {}
func (*UnknownPart) isPart() {}

func (*FileURI) isFileContent()   {}
func (*FileBytes) isFileContent() {}

func NewTextPart(text string) *TextPart {
	return &TextPart{Text: text}
}

func NewDataPart(data map[string]any) *DataPart {
	return &DataPart{Data: data}
}

func NewFilePartWithURI(name, mimeType, uri string) *FilePart {
	return &FilePart{Name: name, MimeType: mimeType, File: &FileURI{URI: uri}}
}

func NewFilePartWithBytes(name, mimeType, bytes string) *FilePart {
	return &FilePart{Name: name, MimeType: mimeType, File: &FileBytes{Bytes: bytes}}
}

type wirePart struct {
	Kind     string    `json:"kind,omitempty"`
	Type     string    `json:"type,omitempty"`
	Text     *string   `json:"text,omitempty"`
	Data     AnyMap    `json:"data,omitempty"`
	File     *wireFile `json:"file,omitempty"`
	Metadata AnyMap    `json:"metadata,omitempty"`
}

type wireFile struct {
	Name     string  `json:"name,omitempty"`
	MimeType string  `json:"mimeType,omitempty"`
	URI      *string `json:"uri,omitempty"`
	Bytes    *string `json:"bytes,omitempty"`
}

func (parts Parts) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(parts))
	for _, p := range parts {
		b, err := MarshalPart(p)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return json.Marshal(out)
}

func (parts *Parts) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	result := make(Parts, 0, len(raws))
	for _, raw := range raws {
		p, err := UnmarshalPart(raw)
		if err != nil {
			return err
		}
		result = append(result, p)
	}
	*parts = result
	return nil
}

func MarshalPart(p Part) ([]byte, error) {
	switch part := p.(type) {
	case *TextPart:
		text := part.Text
		return json.Marshal(wirePart{Kind: PartKindText, Text: &text})
	case *DataPart:
		data := part.Data
		if data == nil {
			data = AnyMap{}
		}
		return json.Marshal(wirePart{Kind: PartKindData, Data: data})
	case *FilePart:
		f := &wireFile{Name: part.Name, MimeType: part.MimeType}
		switch content := part.File.(type) {
		case *FileURI:
			uri := content.URI
			f.URI = &uri
		case *FileBytes:
			b := content.Bytes
			f.Bytes = &b
		}
		return json.Marshal(wirePart{Kind: PartKindFile, File: f})
	case *UnknownPart:
		if len(part.Raw) > 0 {
			return part.Raw, nil
		}
		return json.Marshal(wirePart{Kind: part.Kind})
	default:
		return nil, fmt.Errorf("cannot marshal part of type %T", p)
	}
}

// UnmarshalPart decodes one A2A part. Older agents send "type" instead of "kind", so both
// are accepted. Unrecognized kinds become UnknownPart rather than an error.
func UnmarshalPart(raw []byte) (Part, error) {
	wp := wirePart{}
	if err := json.Unmarshal(raw, &wp); err != nil {
		return nil, fmt.Errorf("failed to parse part: %w", err)
	}
	kind := wp.Kind
	if kind == "" {
		kind = wp.Type
	}
	if kind == "" {
		switch {
		case wp.Text != nil:
			kind = PartKindText
		case wp.File != nil:
			kind = PartKindFile
		case wp.Data != nil:
			kind = PartKindData
		}
	}
	switch kind {
	case PartKindText:
		text := ""
		if wp.Text != nil {
			text = *wp.Text
		}
		return &TextPart{Text: text}, nil
	case PartKindData:
		return &DataPart{Data: wp.Data}, nil
	case PartKindFile:
		fp := &FilePart{}
		if wp.File != nil {
			fp.Name = wp.File.Name
			fp.MimeType = wp.File.MimeType
			if wp.File.URI != nil {
				fp.File = &FileURI{URI: *wp.File.URI}
			} else if wp.File.Bytes != nil {
				fp.File = &FileBytes{Bytes: *wp.File.Bytes}
			}
		}
		return fp, nil
	default:
		return &UnknownPart{Kind: kind, Raw: append(json.RawMessage(nil), raw...)}, nil
	}
}
