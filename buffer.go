package relaylog

import (
	"encoding/binary"
	"strconv"
	"sync"
	"time"
)

const defaultBufSize = 1024

// Buffer is a byte buffer with allocation-free append helpers covering
// exactly what this package's two consumers need: Record.Encode's
// fixed-width binary header (AppendUint32/AppendUint64/AppendByte) and
// the plain/JSON text encoders' line formatting (AppendString/
// AppendInt/AppendTime). Recycled via sync.Pool for zero-alloc
// logging.
type Buffer struct {
	B []byte
}

var bufferPool = sync.Pool{
	New: func() interface{} {
		return &Buffer{B: make([]byte, 0, defaultBufSize)}
	},
}

func getBuffer() *Buffer {
	return bufferPool.Get().(*Buffer)
}

func putBuffer(b *Buffer) {
	if cap(b.B) > 16*1024 {
		return
	}
	b.B = b.B[:0]
	bufferPool.Put(b)
}

// AppendByte appends a single byte, used both by Record.Encode's fixed
// one-byte Level field and by the text encoders' punctuation.
func (b *Buffer) AppendByte(c byte) {
	b.B = append(b.B, c)
}

// AppendString appends s verbatim: Record.Encode's four concatenated
// wire strings, and the text encoders' field values.
func (b *Buffer) AppendString(s string) {
	b.B = append(b.B, s...)
}

// AppendInt appends the decimal form of i, used by the text encoders
// for pid/tid/line/level fields.
func (b *Buffer) AppendInt(i int64) {
	b.B = strconv.AppendInt(b.B, i, 10)
}

// AppendTime appends t formatted with layout, used by the plain and
// JSON encoders' timestamp field.
func (b *Buffer) AppendTime(t time.Time, layout string) {
	b.B = t.AppendFormat(b.B, layout)
}

// AppendUint32 appends the fixed-width little-endian encoding of v,
// for Record.Encode's 32-bit header fields.
func (b *Buffer) AppendUint32(v uint32) {
	b.B = binary.LittleEndian.AppendUint32(b.B, v)
}

// AppendUint64 appends the fixed-width little-endian encoding of v,
// for Record.Encode's 64-bit header fields (Sec, ThreadRank).
func (b *Buffer) AppendUint64(v uint64) {
	b.B = binary.LittleEndian.AppendUint64(b.B, v)
}

func (b *Buffer) Len() int {
	return len(b.B)
}

func (b *Buffer) Bytes() []byte {
	return b.B
}

func (b *Buffer) Reset() {
	b.B = b.B[:0]
}
