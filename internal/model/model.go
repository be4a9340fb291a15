// Package model holds the backend entities the storefront reads directly.
// Admin entities are passed through as raw JSON and have no types here.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is a backend identifier. The backend sends numeric ids on most
// entities and string ids on a few, so both are accepted.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("model: id must be a string or number: %s", b)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes canonical integer ids as numbers so they round-trip
// unchanged. Anything else, "007" or "+5" included, stays a string.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

// Roles accepts either ["ADMIN"] or [{"name":"ADMIN"}].
type Roles []string

func (r *Roles) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Roles, 0, len(raw))
	for _, item := range raw {
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			out = append(out, name)
			continue
		}
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			return fmt.Errorf("model: unsupported role entry: %s", item)
		}
		out = append(out, obj.Name)
	}
	*r = out
	return nil
}

func (r Roles) Has(name string) bool {
	for _, role := range r {
		if role == name {
			return true
		}
	}
	return false
}

// User is the identity snapshot kept in the session.
type User struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email,omitempty"`
	Roles    Roles  `json:"roles,omitempty"`
}

// Book is a catalog item as the storefront displays it.
type Book struct {
	ID          ID      `json:"id"`
	Title       string  `json:"title"`
	Slug        string  `json:"slug,omitempty"`
	Author      string  `json:"author,omitempty"`
	Price       float64 `json:"price"`
	Thumbnail   string  `json:"thumbnail,omitempty"`
	Description string  `json:"description,omitempty"`
	Stock       int     `json:"stock,omitempty"`
}
