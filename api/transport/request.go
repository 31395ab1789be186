package transport

import (
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/fastygo/leadboard/internal/listing"
)

// HeaderPagination carries listing.Meta as JSON next to a bare array body.
const HeaderPagination = "X-Pagination"

// Paging reads page and pageSize. Missing or malformed values fall back to
// page 1 and the default size; sizes are capped at listing.MaxPageSize.
func Paging(args *fasthttp.Args) (int, int) {
	page := intArg(args, "page", 1)
	size := intArg(args, "pageSize", listing.DefaultPageSize)
	if size > listing.MaxPageSize {
		size = listing.MaxPageSize
	}
	return page, size
}

// Text returns the first non-empty value among the given query keys.
func Text(args *fasthttp.Args, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(string(args.Peek(key))); v != "" {
			return v
		}
	}
	return ""
}

// OptionalInt64 parses an optional numeric query value. ok is false when the
// value is present but not a positive integer.
func OptionalInt64(args *fasthttp.Args, key string) (*int64, bool) {
	raw := strings.TrimSpace(string(args.Peek(key)))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, false
	}
	return &v, true
}

func intArg(args *fasthttp.Args, key string, fallback int) int {
	raw := strings.TrimSpace(string(args.Peek(key)))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
