// Package lyrics parses plain-text and LRC lyrics files into the
// catalog's synchronized/unsynchronized lyrics shape.
package lyrics

import (
	"regexp"
	"strconv"
	"strings"
)

type Line struct {
	TimestampMs int64
	Text        string
}

type Body struct {
	Language      string
	Offset        int64 // milliseconds
	DisplayArtist string
	DisplayTitle  string
	Synchronized  bool
	Lines         []Line
}

var timestampRe = regexp.MustCompile(`^\[(\d{2,}):(\d{2})(?:\.(\d{1,3}))?\]`)
var longTimestampRe = regexp.MustCompile(`^\[(\d{2,}):(\d{2}):(\d{2})(?:\.(\d{1,3}))?\]`)

// Parse implements the header/sync/unsync rules verbatim:
//   - a leading UTF-8 BOM is stripped
//   - '#'-prefixed lines and blank lines before any content are skipped
//   - seeing any synchronized line discards previously collected
//     unsynchronized lines (a file is either synchronized or not)
//   - a line with no timestamp following a timestamped line is appended
//     (with a newline) to the last timestamped line's text
//   - trailing blank lines inside a synchronized section are trimmed
//
// The result is always well-formed; a file with no recognizable
// content returns an empty Body.
func Parse(raw string) Body {
	raw = stripBOM(raw)

	var body Body
	var unsynced []string
	haveContent := false

	rawLines := strings.Split(raw, "\n")
	for _, line := range rawLines {
		line = strings.TrimRight(line, "\r")

		if !haveContent && strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}

		if tag, value, ok := parseHeaderTag(line); ok {
			haveContent = true
			applyHeaderTag(&body, tag, value)
			continue
		}

		if ts, text, ok := parseTimestamp(line); ok {
			haveContent = true
			if !body.Synchronized {
				body.Synchronized = true
				unsynced = nil
			}
			body.Lines = append(body.Lines, Line{TimestampMs: ts, Text: text})
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" && !haveContent {
			continue
		}
		haveContent = true

		if body.Synchronized && len(body.Lines) > 0 {
			last := &body.Lines[len(body.Lines)-1]
			if last.Text == "" {
				last.Text = line
			} else {
				last.Text = last.Text + "\n" + line
			}
			continue
		}

		unsynced = append(unsynced, line)
	}

	if !body.Synchronized {
		for len(unsynced) > 0 && strings.TrimSpace(unsynced[len(unsynced)-1]) == "" {
			unsynced = unsynced[:len(unsynced)-1]
		}
		for _, l := range unsynced {
			body.Lines = append(body.Lines, Line{Text: l})
		}
	} else {
		for len(body.Lines) > 0 && strings.TrimSpace(body.Lines[len(body.Lines)-1].Text) == "" {
			body.Lines = body.Lines[:len(body.Lines)-1]
		}
		// Blank lines after the last timestamp were appended to its
		// text above; drop them as well.
		if n := len(body.Lines); n > 0 {
			last := &body.Lines[n-1]
			for i := strings.LastIndex(last.Text, "\n"); i >= 0 && strings.TrimSpace(last.Text[i+1:]) == ""; i = strings.LastIndex(last.Text, "\n") {
				last.Text = last.Text[:i]
			}
		}
	}

	return body
}

func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}

var headerTagRe = regexp.MustCompile(`^\[(ar|al|ti|la|offset):(.*)\]$`)

func parseHeaderTag(line string) (tag, value string, ok bool) {
	m := headerTagRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", "", false
	}
	return m[1], strings.TrimSpace(m[2]), true
}

func applyHeaderTag(b *Body, tag, value string) {
	switch tag {
	case "ar":
		b.DisplayArtist = value
	case "ti":
		b.DisplayTitle = value
	case "la":
		b.Language = value
	case "offset":
		if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
			b.Offset = ms
		}
	}
}

func parseTimestamp(line string) (ms int64, rest string, ok bool) {
	if m := longTimestampRe.FindStringSubmatch(line); m != nil {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		ss, _ := strconv.Atoi(m[3])
		frac := parseFraction(m[4])
		total := int64(hh)*3_600_000 + int64(mm)*60_000 + int64(ss)*1000 + frac
		return total, strings.TrimPrefix(line, m[0]), true
	}
	if m := timestampRe.FindStringSubmatch(line); m != nil {
		mm, _ := strconv.Atoi(m[1])
		ss, _ := strconv.Atoi(m[2])
		frac := parseFraction(m[3])
		total := int64(mm)*60_000 + int64(ss)*1000 + frac
		return total, strings.TrimPrefix(line, m[0]), true
	}
	return 0, "", false
}

func parseFraction(s string) int64 {
	if s == "" {
		return 0
	}
	for len(s) < 3 {
		s += "0"
	}
	v, _ := strconv.ParseInt(s[:3], 10, 64)
	return v
}
