// Package cursor encodes and decodes Relay-style connection cursors.
// Cursors are opaque base64-encoded JSON objects holding the type they were
// issued for and the zero-based offset of the record in its ordered result.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const version = 1

type payload struct {
	Version  int    `json:"v"`
	TypeName string `json:"t"`
	Offset   int    `json:"o"`
}

// Encode builds an opaque cursor for the record at offset.
func Encode(typeName string, offset int) string {
	data, err := json.Marshal(payload{Version: version, TypeName: typeName, Offset: offset})
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// Decode parses a cursor and checks it was issued for typeName.
func Decode(typeName, raw string) (int, error) {
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid cursor: %w", err)
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return 0, fmt.Errorf("invalid cursor format")
	}
	if p.Version != version {
		return 0, fmt.Errorf("invalid cursor format: unsupported version %d", p.Version)
	}
	if p.TypeName != typeName {
		return 0, fmt.Errorf("cursor type mismatch: expected %s, got %s", typeName, p.TypeName)
	}
	if p.Offset < 0 {
		return 0, fmt.Errorf("invalid cursor: negative offset")
	}
	return p.Offset, nil
}

// Args are the connection pagination arguments.
type Args struct {
	First  *int
	After  string
	Last   *int
	Before string
}

// Window is the slice [Start, End) of an ordered result selected by Args.
type Window struct {
	Start       int
	End         int
	HasPrevious bool
	HasNext     bool
}

// Limit is the number of records in the window.
func (w Window) Limit() int {
	return w.End - w.Start
}

// Resolve computes the window of args over total records. The window always
// lies within [0, total].
func Resolve(typeName string, args Args, total int) (Window, error) {
	start, end := 0, total
	if args.After != "" {
		after, err := Decode(typeName, args.After)
		if err != nil {
			return Window{}, err
		}
		start = total
		if after < total {
			start = after + 1
		}
	}
	if args.Before != "" {
		before, err := Decode(typeName, args.Before)
		if err != nil {
			return Window{}, err
		}
		if before < end {
			end = before
		}
	}
	if start > end {
		start = end
	}
	if args.First != nil {
		if *args.First < 0 {
			return Window{}, fmt.Errorf("first must be non-negative")
		}
		if *args.First < end-start {
			end = start + *args.First
		}
	}
	if args.Last != nil {
		if *args.Last < 0 {
			return Window{}, fmt.Errorf("last must be non-negative")
		}
		if end-*args.Last > start {
			start = end - *args.Last
		}
	}
	return Window{
		Start:       start,
		End:         end,
		HasPrevious: start > 0,
		HasNext:     end < total,
	}, nil
}
