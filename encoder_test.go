package relaylog

import (
	"strings"
	"testing"
)

func sampleRecord() *Record {
	return &Record{
		Header: RecordHeader{
			Level:      ERROR,
			Sec:        1700000000,
			Nsec:       0,
			Pid:        111,
			Tid:        222,
			ThreadRank: 0,
			Line:       42,
		},
		Filename:   "db.go",
		Funcname:   "main.Connect",
		LoggerName: "app.db",
		Message:    "connection refused",
	}
}

func TestPlainEncoderSingleLine(t *testing.T) {
	e := &PlainEncoder{}
	buf := &Buffer{}
	e.Encode(buf, sampleRecord())

	out := string(buf.Bytes())
	if !strings.Contains(out, "connection refused") {
		t.Errorf("output missing message: %q", out)
	}
	if !strings.Contains(out, "app.db") {
		t.Errorf("output missing logger name: %q", out)
	}
	if !strings.Contains(out, "db.go:42") {
		t.Errorf("output missing file:line: %q", out)
	}
	if !strings.HasPrefix(out, "E ") {
		t.Errorf("output should start with the level char, got %q", out)
	}
}

func TestPlainEncoderMultiLine(t *testing.T) {
	e := &PlainEncoder{}
	rec := sampleRecord()
	rec.Message = "line one\nline two\nline three"
	buf := &Buffer{}
	e.Encode(buf, rec)

	out := string(buf.Bytes())
	lines := strings.Count(out, "\n")
	if lines != 3 {
		t.Errorf("expected one output line per input line (3), got %d newlines in %q", lines, out)
	}
	if !strings.Contains(out, "line one") || !strings.Contains(out, "line two") || !strings.Contains(out, "line three") {
		t.Errorf("missing a line: %q", out)
	}
}

func TestJSONEncoderFields(t *testing.T) {
	e := &JSONEncoder{}
	buf := &Buffer{}
	e.Encode(buf, sampleRecord())
	out := string(buf.Bytes())

	for _, want := range []string{
		`"level":4`,
		`"level_name":"ERROR"`,
		`"pid":111`,
		`"tid":222`,
		`"logger":"app.db"`,
		`"file":"db.go"`,
		`"func":"main.Connect"`,
		`"line":42`,
		`"msg":"connection refused"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestJSONEncoderEscaping(t *testing.T) {
	e := &JSONEncoder{}
	rec := sampleRecord()
	rec.Message = "quote \" backslash \\ newline \n tab \t"
	buf := &Buffer{}
	e.Encode(buf, rec)
	out := string(buf.Bytes())

	if !strings.Contains(out, `\"`) || !strings.Contains(out, `\\`) || !strings.Contains(out, `\n`) || !strings.Contains(out, `\t`) {
		t.Errorf("special characters not escaped: %s", out)
	}
}

func TestJSONEncodeDecodeRoundTrip(t *testing.T) {
	e := &JSONEncoder{}
	rec := sampleRecord()
	buf := &Buffer{}
	e.Encode(buf, rec)

	got, err := DecodeJSONRecord(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeJSONRecord failed: %s", err)
	}
	if got.Header.Level != rec.Header.Level || got.Header.Pid != rec.Header.Pid ||
		got.Header.Tid != rec.Header.Tid || got.Header.Line != rec.Header.Line {
		t.Errorf("header mismatch: got %+v", got.Header)
	}
	if got.Filename != rec.Filename || got.Funcname != rec.Funcname ||
		got.LoggerName != rec.LoggerName || got.Message != rec.Message {
		t.Errorf("string fields mismatch: got %+v", got)
	}
}
