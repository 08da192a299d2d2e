package captions

import "testing"

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   string
		wantOK bool
	}{
		{
			name:   "timedtext xml",
			body:   `<?xml version="1.0"?><transcript><text start="0.5">Hello</text><text start="2.1">World</text></transcript>`,
			want:   "Hello\nWorld",
			wantOK: true,
		},
		{
			name:   "xml entities decoded",
			body:   `<transcript><text start="0">it&amp;#39;s &amp;quot;here&amp;quot;</text></transcript>`,
			want:   `it's "here"`,
			wantOK: true,
		},
		{
			name:   "xml with only empty lines",
			body:   `<transcript><text start="0">  </text></transcript>`,
			wantOK: false,
		},
		{
			name:   "json events",
			body:   `{"events":[{"segs":[{"utf8":"Hello "},{"utf8":"there"}]},{"segs":[{"utf8":"friend"}]}]}`,
			want:   "Hello there friend",
			wantOK: true,
		},
		{
			name:   "json whitespace collapsed",
			body:   "{\"events\":[{\"segs\":[{\"utf8\":\"one\\n\"},{\"utf8\":\"  two\"}]}]}",
			want:   "one two",
			wantOK: true,
		},
		{
			name:   "json without segs",
			body:   `{"events":[{}]}`,
			wantOK: false,
		},
		{
			name:   "neither format",
			body:   "plain text page",
			wantOK: false,
		},
		{
			name:   "empty body",
			body:   "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePayload(tt.body)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
		})
	}
}
