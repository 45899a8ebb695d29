package toolargs

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// decodeStrict decodes exactly one JSON document, keeping numbers as json.Number.
func decodeStrict(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after document")
	}
	return v, nil
}

// parseLoose decodes text as JSON, retrying with repairPseudoJSON when strict
// parsing fails.
func parseLoose(text string) (interface{}, bool) {
	text = stripFences(text)
	if text == "" {
		return nil, false
	}
	if v, err := decodeStrict([]byte(text)); err == nil {
		return v, true
	}
	if v, err := decodeStrict([]byte(repairPseudoJSON(text))); err == nil {
		return v, true
	}
	return nil, false
}

// stripFences removes a surrounding markdown code fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

const structural = "{}[],:"

// repairPseudoJSON rewrites the relaxed object syntax models tend to emit into
// strict JSON: bare keys and values are quoted, single-quoted strings become
// double-quoted, Python literals are mapped and trailing commas are dropped.
// The output is not guaranteed to be valid.
func repairPseudoJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '"' || c == '\'':
			str, n := readQuoted(s[i:])
			writeString(&b, str)
			i += n
		case c == ',':
			if j := skipSpace(s, i+1); j == len(s) || s[j] == '}' || s[j] == ']' {
				i++
				continue
			}
			b.WriteByte(c)
			i++
		case strings.IndexByte(structural, c) >= 0 || isSpace(c):
			b.WriteByte(c)
			i++
		default:
			j := i
			for j < len(s) && strings.IndexByte(structural, s[j]) < 0 && s[j] != '"' {
				j++
			}
			b.WriteString(bareToken(strings.TrimSpace(s[i:j])))
			i = j
		}
	}
	return b.String()
}

// readQuoted reads a quoted string starting at s[0] and returns its unescaped
// content and the number of bytes consumed. An unterminated string runs to the
// end of s.
func readQuoted(s string) (string, int) {
	quote := s[0]
	var out []byte
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == quote:
			return string(out), i + 1
		case c == '\\' && i+1 < len(s):
			i++
			switch e := s[i]; e {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case 'r':
				out = append(out, '\r')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case 'u':
				if i+4 < len(s) {
					if r, err := strconv.ParseUint(s[i+1:i+5], 16, 32); err == nil {
						out = utf8.AppendRune(out, rune(r))
						i += 4
						continue
					}
				}
				out = append(out, e)
			default:
				out = append(out, e)
			}
		default:
			out = append(out, c)
		}
	}
	return string(out), len(s)
}

func bareToken(word string) string {
	switch word {
	case "":
		return ""
	case "true", "True", "TRUE":
		return "true"
	case "false", "False", "FALSE":
		return "false"
	case "null", "None", "nil", "NULL", "undefined":
		return "null"
	}
	if isJSONNumber(word) {
		return word
	}
	var b strings.Builder
	writeString(&b, word)
	return b.String()
}

func isJSONNumber(word string) bool {
	if word == "" {
		return false
	}
	if c := word[0]; c != '-' && (c < '0' || c > '9') {
		return false
	}
	_, err := strconv.ParseFloat(word, 64)
	return err == nil && json.Valid([]byte(word))
}

func writeString(b *strings.Builder, s string) {
	data, _ := json.Marshal(s)
	b.Write(data)
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
