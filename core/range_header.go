package core

import (
	"fmt"
	"strconv"
	"strings"
)

// BuildRangeHeader returns the Range header that resumes a download at byte offset.
// Negative offsets request the whole file.
func BuildRangeHeader(offset int64) string {
	return "bytes=" + strconv.FormatInt(max(offset, 0), 10) + "-"
}

// ContentRange is a parsed Content-Range response header.
type ContentRange struct {
	Start int64
	End   int64
	// Total is -1 when the server does not know the full length ("*")
	Total int64
}

// ParseContentRange parses "bytes start-end/total" or "bytes start-end/*".
func ParseContentRange(header string) (ContentRange, error) {
	spec, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes ")
	if !ok {
		return ContentRange{}, fmt.Errorf("invalid Content-Range header: %q", header)
	}
	span, totalStr, ok := strings.Cut(spec, "/")
	if !ok {
		return ContentRange{}, fmt.Errorf("invalid Content-Range header: %q", header)
	}
	startStr, endStr, ok := strings.Cut(span, "-")
	if !ok {
		return ContentRange{}, fmt.Errorf("invalid Content-Range header: %q", header)
	}

	var r ContentRange
	var err error
	if r.Start, err = strconv.ParseInt(startStr, 10, 64); err != nil {
		return ContentRange{}, fmt.Errorf("invalid Content-Range start %q: %w", startStr, err)
	}
	if r.End, err = strconv.ParseInt(endStr, 10, 64); err != nil {
		return ContentRange{}, fmt.Errorf("invalid Content-Range end %q: %w", endStr, err)
	}
	if r.End < r.Start {
		return ContentRange{}, fmt.Errorf("invalid Content-Range span: %q", header)
	}

	if totalStr == "*" {
		r.Total = -1
		return r, nil
	}
	if r.Total, err = strconv.ParseInt(totalStr, 10, 64); err != nil {
		return ContentRange{}, fmt.Errorf("invalid Content-Range total %q: %w", totalStr, err)
	}
	return r, nil
}
