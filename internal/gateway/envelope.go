package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Shape names the envelope a list response arrived in.
type Shape int

const (
	// ShapeUnrecognized means no known envelope matched; the page is empty.
	ShapeUnrecognized Shape = iota
	// ShapeArray is a bare JSON array.
	ShapeArray
	// ShapeData is {"data": [...]}.
	ShapeData
	// ShapeContent is {"data": {"content": [...], "totalPages": n, "totalElements": n}}.
	ShapeContent
	// ShapeItems is {"data": {"items": [...]}}.
	ShapeItems
)

func (s Shape) String() string {
	switch s {
	case ShapeArray:
		return "array"
	case ShapeData:
		return "data"
	case ShapeContent:
		return "content"
	case ShapeItems:
		return "items"
	}
	return "unrecognized"
}

// Page is a list response in uniform form. Items is never nil.
type Page struct {
	Items         []json.RawMessage
	Shape         Shape
	TotalPages    int
	TotalElements int64
	// HasMeta is true when the backend sent paging metadata.
	HasMeta bool
}

// NoData reports that the response did not match any known envelope.
// Callers show an empty state rather than an error.
func (p Page) NoData() bool {
	return p.Shape == ShapeUnrecognized
}

type dataEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type pagedData struct {
	Content       *[]json.RawMessage `json:"content"`
	Items         *[]json.RawMessage `json:"items"`
	TotalPages    *int               `json:"totalPages"`
	TotalElements *int64             `json:"totalElements"`
}

// Normalize unwraps a list response into a Page.
func Normalize(body []byte) Page {
	body = bytes.TrimSpace(body)
	empty := Page{Items: []json.RawMessage{}, Shape: ShapeUnrecognized}

	switch firstByte(body) {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return empty
		}
		return Page{Items: nonNil(items), Shape: ShapeArray}

	case '{':
		var env dataEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return empty
		}
		data := bytes.TrimSpace(env.Data)

		switch firstByte(data) {
		case '[':
			var items []json.RawMessage
			if err := json.Unmarshal(data, &items); err != nil {
				return empty
			}
			return Page{Items: nonNil(items), Shape: ShapeData}

		case '{':
			var pd pagedData
			if err := json.Unmarshal(data, &pd); err != nil {
				return empty
			}
			page := Page{}
			switch {
			case pd.Content != nil:
				page.Items, page.Shape = nonNil(*pd.Content), ShapeContent
			case pd.Items != nil:
				page.Items, page.Shape = nonNil(*pd.Items), ShapeItems
			default:
				return empty
			}
			if pd.TotalPages != nil {
				page.TotalPages, page.HasMeta = *pd.TotalPages, true
			}
			if pd.TotalElements != nil {
				page.TotalElements, page.HasMeta = *pd.TotalElements, true
			}
			return page
		}
	}
	return empty
}

// Object unwraps a single-entity response. {"data": X} yields X when X is
// present and not null; anything else is returned as is.
func Object(body []byte) json.RawMessage {
	body = bytes.TrimSpace(body)
	if firstByte(body) != '{' {
		return json.RawMessage(body)
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return json.RawMessage(body)
	}
	data, ok := env["data"]
	if !ok || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return json.RawMessage(body)
	}
	return data
}

// DecodeItems decodes every item of p into T.
func DecodeItems[T any](p Page) ([]T, error) {
	out := make([]T, 0, len(p.Items))
	for i, raw := range p.Items {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("gateway: decode item %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// DecodeObject unwraps body with Object and decodes it into v.
func DecodeObject(body []byte, v any) error {
	if err := json.Unmarshal(Object(body), v); err != nil {
		return fmt.Errorf("gateway: decode object: %w", err)
	}
	return nil
}

// backendMessage extracts a human message from an error body. Backends put
// it under "message" or "error", sometimes inside "data".
func backendMessage(body []byte) string {
	var env struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	if env.Message != "" {
		return env.Message
	}
	var s string
	if json.Unmarshal(env.Error, &s) == nil && s != "" {
		return s
	}
	if len(env.Data) > 0 && firstByte(bytes.TrimSpace(env.Data)) == '{' {
		return backendMessage(env.Data)
	}
	return ""
}

func firstByte(b []byte) byte {
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

func nonNil(items []json.RawMessage) []json.RawMessage {
	if items == nil {
		return []json.RawMessage{}
	}
	return items
}
