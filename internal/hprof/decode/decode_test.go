package decode

import (
	"context"
	"io"

	"github.com/mabhi256/hprofstream/internal/hprof/streambuf"
)

// byteSource is a one-shot in-memory ChunkSource used across this
// package's tests; it serves the whole backing slice in a single chunk.
type byteSource struct {
	data []byte
	done bool
}

func (s *byteSource) Next(ctx context.Context) ([]byte, error) {
	if s.done {
		return nil, io.EOF
	}
	s.done = true
	return s.data, nil
}

func newBuf(data []byte) *streambuf.Buffer {
	return streambuf.New(&byteSource{data: data})
}
