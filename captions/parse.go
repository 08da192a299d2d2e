package captions

import (
	"encoding/json"
	"encoding/xml"
	"html"
	"strings"
)

// Caption bodies come back in one of two shapes depending on the endpoint
// and URL parameters: a timed-text XML document with <text> elements, or a
// JSON document with events[].segs[].utf8. XML is tried first.

type timedTextXML struct {
	Lines []struct {
		Text  string  `xml:",chardata"`
		Start float64 `xml:"start,attr"`
	} `xml:"text"`
}

type captionJSON struct {
	Events []struct {
		Segs []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// ParsePayload extracts plain transcript text from a caption body.
// Returns false when neither format yields non-empty text.
func ParsePayload(body string) (string, bool) {
	if text, ok := parseXMLPayload(body); ok {
		return text, true
	}
	return parseJSONPayload(body)
}

// parseXMLPayload joins <text> element contents with newlines. Timestamps
// are not preserved on this path. Entities are decoded; the payloads are
// double-escaped in practice.
func parseXMLPayload(body string) (string, bool) {
	var doc timedTextXML
	if err := xml.Unmarshal([]byte(body), &doc); err != nil {
		return "", false
	}

	lines := make([]string, 0, len(doc.Lines))
	for _, l := range doc.Lines {
		text := strings.TrimSpace(html.UnescapeString(l.Text))
		if text != "" {
			lines = append(lines, text)
		}
	}
	if len(lines) == 0 {
		return "", false
	}
	return strings.Join(lines, "\n"), true
}

// parseJSONPayload concatenates events[].segs[].utf8 and collapses
// whitespace.
func parseJSONPayload(body string) (string, bool) {
	var doc captionJSON
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return "", false
	}

	var sb strings.Builder
	for _, ev := range doc.Events {
		for _, seg := range ev.Segs {
			sb.WriteString(seg.UTF8)
			sb.WriteByte(' ')
		}
	}
	text := strings.Join(strings.Fields(sb.String()), " ")
	if text == "" {
		return "", false
	}
	return text, true
}
