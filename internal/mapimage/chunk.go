// Package mapimage splits large base64 floor-plan images into fixed-size
// string chunks and reassembles them in numeric index order.
package mapimage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Per-backend chunk sizes, in characters.
const (
	SheetChunkSize    = 40000
	DocumentChunkSize = 800000
)

// ErrMissingChunk is returned when the stored chunk indexes are not 0..n-1.
var ErrMissingChunk = errors.New("map image chunk missing")

// Split cuts s into ceil(len(s)/size) chunks. An empty string yields none.
func Split(s string, size int) []string {
	if size <= 0 {
		size = SheetChunkSize
	}
	chunks := make([]string, 0, (len(s)+size-1)/size)
	for start := 0; start < len(s); start += size {
		end := start + size
		if end > len(s) {
			end = len(s)
		}
		chunks = append(chunks, s[start:end])
	}
	return chunks
}

// Key names chunk i under prefix, e.g. "MapImage_default_3".
func Key(prefix string, i int) string {
	return prefix + "_" + strconv.Itoa(i)
}

// Index parses the numeric suffix of a chunk key. ok is false for keys that
// do not belong to prefix or whose suffix is not a number.
func Index(prefix, key string) (int, bool) {
	rest, found := strings.CutPrefix(key, prefix+"_")
	if !found {
		return 0, false
	}
	i, err := strconv.Atoi(rest)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// Assemble concatenates the chunks whose keys belong to prefix, ordered by
// parsed integer index (so _10 follows _9, not _1).
func Assemble(prefix string, chunks map[string]string) (string, error) {
	type part struct {
		index int
		data  string
	}
	parts := make([]part, 0, len(chunks))
	for key, data := range chunks {
		if i, ok := Index(prefix, key); ok {
			parts = append(parts, part{i, data})
		}
	}
	sort.Slice(parts, func(a, b int) bool { return parts[a].index < parts[b].index })

	var b strings.Builder
	for want, p := range parts {
		if p.index != want {
			return "", fmt.Errorf("%w: expected %s", ErrMissingChunk, Key(prefix, want))
		}
		b.WriteString(p.data)
	}
	return b.String(), nil
}

// FetchAll fetches n chunks concurrently and joins them in index order.
func FetchAll(ctx context.Context, n int, fetch func(ctx context.Context, i int) (string, error)) (string, error) {
	parts := make([]string, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			data, err := fetch(gctx, i)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			parts[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return strings.Join(parts, ""), nil
}
