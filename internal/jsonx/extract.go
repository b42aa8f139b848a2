package jsonx

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when no extraction strategy yields parseable JSON.
var ErrNoJSON = errors.New("jsonx: no valid JSON found in text")

// Extract pulls a JSON document out of free-form model output. Strategies are
// tried in order, and the first candidate that parses wins:
//  1. the body of a ```json fenced block
//  2. the body of any fenced code block
//  3. the first top-level "{" through the last "}" in the text
//  4. the whole trimmed text
//
// The result is the exact candidate substring (trimmed); Extract never
// rewrites the text, so repeated calls on the same input return identical
// bytes.
func Extract(raw string) (string, error) {
	for _, pick := range []func(string) (string, bool){
		fencedBlock("json"),
		fencedBlock(""),
		braceWindow,
		wholeTrimmed,
	} {
		candidate, ok := pick(raw)
		if !ok {
			continue
		}
		candidate = strings.TrimSpace(candidate)
		if candidate != "" && json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}
	return "", ErrNoJSON
}

// fencedBlock extracts the body of the first ```lang fence. With an empty
// lang it accepts any opening fence, including bare ``` lines.
func fencedBlock(lang string) func(string) (string, bool) {
	return func(s string) (string, bool) {
		open := "```" + lang
		start := strings.Index(s, open)
		if start < 0 {
			return "", false
		}
		body := s[start+len(open):]
		if lang == "" {
			// Skip a language tag such as ```yaml on the opening line.
			if nl := strings.IndexByte(body, '\n'); nl >= 0 {
				body = body[nl+1:]
			}
		}
		end := strings.Index(body, "```")
		if end < 0 {
			// Unterminated fence: the model likely got cut off mid-block.
			return body, true
		}
		return body[:end], true
	}
}

// braceWindow returns the first "{" through the last "}" of s.
func braceWindow(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(s, '}')
	if end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func wholeTrimmed(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}
