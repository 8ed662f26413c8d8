package relaylog

const defaultTimeLayout = "2006-01-02T15:04:05.000000"

// PlainEncoder writes one human-readable line per record, in the
// style of the original BXI logger's file output: a level character,
// the timestamp, pid/tid/thread-rank, the logger name, the call site
// and the message. A multi-line message is split into one encoded
// line per input line, each carrying the same header, since a sink
// consuming this format expects one header per output line.
type PlainEncoder struct {
	TimeLayout string
}

func (e *PlainEncoder) timeLayout() string {
	if e.TimeLayout != "" {
		return e.TimeLayout
	}
	return defaultTimeLayout
}

func (e *PlainEncoder) Encode(buf *Buffer, rec *Record) {
	layout := e.timeLayout()
	start := 0
	msg := rec.Message
	for {
		nl := indexByte(msg[start:], '\n')
		var line string
		if nl < 0 {
			line = msg[start:]
		} else {
			line = msg[start : start+nl]
		}
		e.encodeLine(buf, rec, layout, line)
		if nl < 0 {
			break
		}
		start += nl + 1
		if start >= len(msg) {
			break
		}
	}
}

func (e *PlainEncoder) encodeLine(buf *Buffer, rec *Record, layout, line string) {
	buf.AppendByte(rec.Header.Level.Char())
	buf.AppendByte(' ')
	buf.AppendTime(rec.Time(), layout)
	buf.AppendByte(' ')
	buf.AppendInt(int64(rec.Header.Pid))
	buf.AppendByte('.')
	buf.AppendInt(int64(rec.Header.Tid))
	buf.AppendByte('.')
	buf.AppendInt(rec.Header.ThreadRank)
	buf.AppendByte(' ')
	buf.AppendString(rec.LoggerName)
	buf.AppendByte(' ')
	buf.AppendString(rec.Filename)
	buf.AppendByte(':')
	buf.AppendInt(int64(rec.Header.Line))
	buf.AppendByte('@')
	buf.AppendString(rec.Funcname)
	buf.AppendString(": ")
	buf.AppendString(line)
	buf.AppendByte('\n')
}

func indexByte(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}
