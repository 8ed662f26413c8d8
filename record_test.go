package relaylog

import "testing"

func TestRecordEncodeDecodeRoundTrip(t *testing.T) {
	rec := &Record{
		Header: RecordHeader{
			Level:      WARNING,
			Sec:        1700000000,
			Nsec:       123456,
			Pid:        4242,
			Tid:        17,
			ThreadRank: 3,
			Line:       99,
		},
		Filename:   "app.go",
		Funcname:   "main.run",
		LoggerName: "app.db",
		Message:    "connection lost",
	}

	buf := &Buffer{}
	rec.Encode(buf)

	got, err := DecodeRecord(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeRecord failed: %s", err)
	}
	if got.Header != rec.Header {
		// Header carries the wire-computed length fields too; compare
		// everything except those since the original rec never set them.
		got.Header.FilenameLen = 0
		got.Header.FuncnameLen = 0
		got.Header.LoggerLen = 0
		got.Header.MessageLen = 0
		rec.Header.FilenameLen = 0
		rec.Header.FuncnameLen = 0
		rec.Header.LoggerLen = 0
		rec.Header.MessageLen = 0
		if got.Header != rec.Header {
			t.Errorf("Header mismatch: got %+v, want %+v", got.Header, rec.Header)
		}
	}
	if got.Filename != rec.Filename || got.Funcname != rec.Funcname ||
		got.LoggerName != rec.LoggerName || got.Message != rec.Message {
		t.Errorf("string fields mismatch: got %+v", got)
	}
}

func TestDecodeRecordTooShort(t *testing.T) {
	if _, err := DecodeRecord([]byte{1, 2, 3}); err == nil {
		t.Error("DecodeRecord on a too-short buffer should fail")
	}
}

func TestDecodeRecordTruncated(t *testing.T) {
	rec := &Record{Message: "this message has real length"}
	buf := &Buffer{}
	rec.Encode(buf)
	if _, err := DecodeRecord(buf.Bytes()[:len(buf.Bytes())-5]); err == nil {
		t.Error("DecodeRecord on a truncated buffer should fail")
	}
}

func TestRecordTime(t *testing.T) {
	rec := &Record{Header: RecordHeader{Sec: 1700000000, Nsec: 500}}
	tm := rec.Time()
	if tm.Unix() != 1700000000 {
		t.Errorf("Time().Unix() = %d, want 1700000000", tm.Unix())
	}
}

func TestRecordPoolAcquireZeroed(t *testing.T) {
	rec := AcquireRecord()
	rec.Message = "dirty"
	rec.Header.Level = ERROR
	ReleaseRecord(rec)

	again := AcquireRecord()
	if again.Message != "" || again.Header.Level != OFF {
		t.Errorf("AcquireRecord should return a zeroed Record, got %+v", again)
	}
}
