// Package jsonblock recovers a single well-formed JSON object from free-form
// model output. Generative responses are not guaranteed to be pure JSON: they
// arrive wrapped in fenced code blocks, prefixed with prose, or trailed by
// commentary. Every place a model response is decoded goes through this
// package so the fragility of free-text interchange lives in exactly one spot.
package jsonblock

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedOutput indicates that no parseable JSON object could be
// recovered from the model output. Callers decide the fallback; this is never
// silently treated as an empty result.
var ErrMalformedOutput = errors.New("no well-formed JSON object in model output")

// Extract isolates the first balanced JSON object in text and returns it as a
// string with non-printable control characters removed. Fenced code markers
// (```json ... ``` or ``` ... ```) around the object are stripped first.
func Extract(text string) (string, error) {
	s := strings.TrimSpace(text)

	if i := strings.Index(s, "```json"); i >= 0 {
		s = s[i+len("```json"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	} else if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+len("```"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", ErrMalformedOutput
	}

	depth := 0
	end := -1
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i + 1
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return "", ErrMalformedOutput
	}

	return stripControlChars(s[start:end]), nil
}

// Decode extracts the first balanced JSON object in text and unmarshals it
// into v. Both extraction and decode failures are reported as
// ErrMalformedOutput so call sites can branch on a single condition.
func Decode(text string, v any) error {
	raw, err := Extract(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

// stripControlChars removes non-printable control characters that break JSON
// decoding, keeping tab, newline, and carriage return.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\t' || r == '\n' || r == '\r' {
			b.WriteRune(r)
			continue
		}
		if r < 0x20 || r == 0x7F {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
