package relaylog

import (
	"encoding/json"
	"time"
)

// JSONEncoder writes records as JSON without using encoding/json. It
// is the wire format used by the network publisher (handler_network.go)
// since the record must re-cross a process boundary.
type JSONEncoder struct {
	TimeLayout string
}

func (e *JSONEncoder) timeLayout() string {
	if e.TimeLayout != "" {
		return e.TimeLayout
	}
	return time.RFC3339Nano
}

// Encode writes a single-line JSON record.
func (e *JSONEncoder) Encode(buf *Buffer, rec *Record) {
	buf.AppendString(`{"sec":`)
	buf.AppendInt(rec.Header.Sec)
	buf.AppendString(`,"nsec":`)
	buf.AppendInt(int64(rec.Header.Nsec))
	buf.AppendString(`,"time":"`)
	buf.AppendTime(rec.Time(), e.timeLayout())
	buf.AppendString(`","level":`)
	buf.AppendInt(int64(rec.Header.Level))
	buf.AppendString(`,"level_name":"`)
	buf.AppendString(rec.Header.Level.String())
	buf.AppendString(`","pid":`)
	buf.AppendInt(int64(rec.Header.Pid))
	buf.AppendString(`,"tid":`)
	buf.AppendInt(int64(rec.Header.Tid))
	buf.AppendString(`,"thread_rank":`)
	buf.AppendInt(rec.Header.ThreadRank)
	buf.AppendString(`,"logger":`)
	appendJSONString(buf, rec.LoggerName)
	buf.AppendString(`,"file":`)
	appendJSONString(buf, rec.Filename)
	buf.AppendString(`,"func":`)
	appendJSONString(buf, rec.Funcname)
	buf.AppendString(`,"line":`)
	buf.AppendInt(int64(rec.Header.Line))
	buf.AppendString(`,"msg":`)
	appendJSONString(buf, rec.Message)
	buf.AppendString("}\n")
}

func appendJSONString(buf *Buffer, s string) {
	buf.AppendByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			buf.AppendString(`\"`)
		case '\\':
			buf.AppendString(`\\`)
		case '\n':
			buf.AppendString(`\n`)
		case '\r':
			buf.AppendString(`\r`)
		case '\t':
			buf.AppendString(`\t`)
		default:
			if c < 0x20 {
				buf.AppendString(`\u00`)
				buf.AppendByte(hexChar(c >> 4))
				buf.AppendByte(hexChar(c & 0x0f))
			} else {
				buf.AppendByte(c)
			}
		}
	}
	buf.AppendByte('"')
}

func hexChar(c byte) byte {
	if c < 10 {
		return '0' + c
	}
	return 'a' + c - 10
}

// jsonWireRecord mirrors the field set JSONEncoder.Encode writes, for
// decoding on the receiving side of a network handler. Decoding is
// the one place this wire format uses encoding/json rather than
// hand-rolled appends: the writer is on relaylog's hot path and the
// reader is not.
type jsonWireRecord struct {
	Sec        int64  `json:"sec"`
	Nsec       int32  `json:"nsec"`
	Level      int8   `json:"level"`
	Pid        int32  `json:"pid"`
	Tid        int32  `json:"tid"`
	ThreadRank int64  `json:"thread_rank"`
	Logger     string `json:"logger"`
	File       string `json:"file"`
	Func       string `json:"func"`
	Line       int32  `json:"line"`
	Msg        string `json:"msg"`
}

// DecodeJSONRecord parses a record encoded by JSONEncoder. Used by
// NetworkReceiver to reconstruct a Record on the subscribing side of
// handler_network.go's transport.
func DecodeJSONRecord(b []byte) (*Record, error) {
	var w jsonWireRecord
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	return &Record{
		Header: RecordHeader{
			Level:      Level(w.Level),
			Sec:        w.Sec,
			Nsec:       w.Nsec,
			Pid:        w.Pid,
			Tid:        w.Tid,
			ThreadRank: w.ThreadRank,
			Line:       w.Line,
		},
		Filename:   w.File,
		Funcname:   w.Func,
		LoggerName: w.Logger,
		Message:    w.Msg,
	}, nil
}
