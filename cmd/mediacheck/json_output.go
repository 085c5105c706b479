package main

import (
	"encoding/json"
	"fmt"
	"io"
)

// recordList is the --json shape of the inventory listings.
type recordList[T any] struct {
	Count   int `json:"count"`
	Records []T `json:"records"`
}

// printJSON writes v as indented JSON. HTML escaping is off so paths with
// '&' or '<' print verbatim.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// printRecords writes records with their count; an empty listing is "[]",
// never null.
func printRecords[T any](w io.Writer, records []T) error {
	if records == nil {
		records = []T{}
	}
	return printJSON(w, recordList[T]{Count: len(records), Records: records})
}
