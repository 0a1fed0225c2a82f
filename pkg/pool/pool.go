// Package pool provides buffer pooling for search scans over chat text.
package pool

import (
	"bytes"
	"sync"
)

// maxPooledBuffer keeps unusually large haystacks from pinning memory.
const maxPooledBuffer = 1 << 20

// BufferPool pools haystack buffers
var BufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

// GetBuffer gets an empty buffer from pool
func GetBuffer() *bytes.Buffer {
	b := BufferPool.Get().(*bytes.Buffer)
	b.Reset()
	return b
}

// PutBuffer returns a buffer to pool
func PutBuffer(b *bytes.Buffer) {
	if b.Cap() > maxPooledBuffer {
		return
	}
	BufferPool.Put(b)
}
