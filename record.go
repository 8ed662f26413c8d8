package relaylog

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"
)

// recordHeaderSize is the encoded size, in bytes, of RecordHeader.
const recordHeaderSize = 1 /*level*/ + 8 + 4 /*time*/ + 4 /*pid*/ + 4 /*tid*/ +
	8 /*thread rank*/ + 4 /*line*/ + 4 + 4 + 4 + 4 /*lengths*/

// RecordHeader is the fixed portion of a Record's wire layout.
type RecordHeader struct {
	Level        Level
	Sec          int64
	Nsec         int32
	Pid          int32
	Tid          int32
	ThreadRank   int64
	Line         int32
	FilenameLen  uint32
	FuncnameLen  uint32
	LoggerLen    uint32
	MessageLen   uint32
}

// Record is one log event: a fixed header followed, on the wire, by
// four concatenated strings in order: filename, funcname, logger
// name, message. Records are immutable once handed to
// RecordBus.SendRecord.
type Record struct {
	Header     RecordHeader
	Filename   string
	Funcname   string
	LoggerName string
	Message    string
}

var recordPool = sync.Pool{
	New: func() interface{} { return &Record{} },
}

// AcquireRecord returns a zeroed Record from the pool for a producer
// to populate before sending.
func AcquireRecord() *Record {
	r := recordPool.Get().(*Record)
	*r = Record{}
	return r
}

// ReleaseRecord returns r to the pool. Callers must not retain any
// reference to r, or to bytes obtained from it, after calling this.
func ReleaseRecord(r *Record) {
	recordPool.Put(r)
}

// Time reconstructs the record's wall-clock timestamp.
func (r *Record) Time() time.Time {
	return time.Unix(r.Header.Sec, int64(r.Header.Nsec))
}

// Encode serializes the record into buf: header then the four
// strings, back to back, with no terminator — MessageLen is
// authoritative.
func (r *Record) Encode(buf *Buffer) {
	h := r.Header
	h.FilenameLen = uint32(len(r.Filename))
	h.FuncnameLen = uint32(len(r.Funcname))
	h.LoggerLen = uint32(len(r.LoggerName))
	h.MessageLen = uint32(len(r.Message))

	buf.AppendByte(byte(h.Level))
	buf.AppendUint64(uint64(h.Sec))
	buf.AppendUint32(uint32(h.Nsec))
	buf.AppendUint32(uint32(h.Pid))
	buf.AppendUint32(uint32(h.Tid))
	buf.AppendUint64(uint64(h.ThreadRank))
	buf.AppendUint32(uint32(h.Line))
	buf.AppendUint32(h.FilenameLen)
	buf.AppendUint32(h.FuncnameLen)
	buf.AppendUint32(h.LoggerLen)
	buf.AppendUint32(h.MessageLen)

	buf.AppendString(r.Filename)
	buf.AppendString(r.Funcname)
	buf.AppendString(r.LoggerName)
	buf.AppendString(r.Message)
}

// DecodeRecord parses the wire layout produced by Encode.
func DecodeRecord(b []byte) (*Record, error) {
	if len(b) < recordHeaderSize {
		return nil, Newf(Protocol, "record buffer too short: %d bytes", len(b))
	}
	r := &Record{}
	r.Header.Level = Level(b[0])
	off := 1
	r.Header.Sec = int64(binary.LittleEndian.Uint64(b[off:]))
	off += 8
	r.Header.Nsec = int32(binary.LittleEndian.Uint32(b[off:]))
	off += 4
	r.Header.Pid = int32(binary.LittleEndian.Uint32(b[off:]))
	off += 4
	r.Header.Tid = int32(binary.LittleEndian.Uint32(b[off:]))
	off += 4
	r.Header.ThreadRank = int64(binary.LittleEndian.Uint64(b[off:]))
	off += 8
	r.Header.Line = int32(binary.LittleEndian.Uint32(b[off:]))
	off += 4
	r.Header.FilenameLen = binary.LittleEndian.Uint32(b[off:])
	off += 4
	r.Header.FuncnameLen = binary.LittleEndian.Uint32(b[off:])
	off += 4
	r.Header.LoggerLen = binary.LittleEndian.Uint32(b[off:])
	off += 4
	r.Header.MessageLen = binary.LittleEndian.Uint32(b[off:])
	off += 4

	need := off + int(r.Header.FilenameLen+r.Header.FuncnameLen+r.Header.LoggerLen+r.Header.MessageLen)
	if len(b) < need {
		return nil, Newf(Protocol, "record buffer truncated: want %d, have %d", need, len(b))
	}

	r.Filename = string(b[off : off+int(r.Header.FilenameLen)])
	off += int(r.Header.FilenameLen)
	r.Funcname = string(b[off : off+int(r.Header.FuncnameLen)])
	off += int(r.Header.FuncnameLen)
	r.LoggerName = string(b[off : off+int(r.Header.LoggerLen)])
	off += int(r.Header.LoggerLen)
	r.Message = string(b[off : off+int(r.Header.MessageLen)])

	return r, nil
}

func (r *Record) String() string {
	return fmt.Sprintf("%c %s %s:%d %s: %s", r.Header.Level.Char(), r.LoggerName, r.Filename, r.Header.Line, r.Funcname, r.Message)
}
