package core

import "testing"

func TestBuildRangeHeader(t *testing.T) {
	tests := []struct {
		offset int64
		want   string
	}{
		{0, "bytes=0-"},
		{1024, "bytes=1024-"},
		{-5, "bytes=0-"},
	}

	for _, tt := range tests {
		if got := BuildRangeHeader(tt.offset); got != tt.want {
			t.Errorf("BuildRangeHeader(%d) = %q, want %q", tt.offset, got, tt.want)
		}
	}
}

func TestParseContentRange(t *testing.T) {
	tests := []struct {
		header    string
		want      ContentRange
		wantError bool
	}{
		{"bytes 0-999/5000", ContentRange{Start: 0, End: 999, Total: 5000}, false},
		{"bytes 1000-1999/*", ContentRange{Start: 1000, End: 1999, Total: -1}, false},
		{"", ContentRange{}, true},
		{"bytes 0-999", ContentRange{}, true},
		{"items 0-1/2", ContentRange{}, true},
		{"bytes 0-1/abc", ContentRange{}, true},
		{"bytes 9-3/10", ContentRange{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := ParseContentRange(tt.header)
			if (err != nil) != tt.wantError {
				t.Fatalf("ParseContentRange(%q) error = %v, wantError %v", tt.header, err, tt.wantError)
			}
			if !tt.wantError && got != tt.want {
				t.Errorf("ParseContentRange(%q) = %+v, want %+v", tt.header, got, tt.want)
			}
		})
	}
}
