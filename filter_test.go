package relaylog

import "testing"

func TestFilterSetThreshold(t *testing.T) {
	fs := NewFilterSet(
		Filter{Prefix: "", Level: WARNING},
		Filter{Prefix: "app.db", Level: DEBUG},
		Filter{Prefix: "app.db.pool", Level: TRACE},
	)

	tests := []struct {
		name string
		want Level
	}{
		{"app.net", WARNING},
		{"app.db", DEBUG},
		{"app.db.cursor", DEBUG},
		{"app.db.pool", TRACE},
		{"app.db.pool.conn1", TRACE},
	}
	for _, tt := range tests {
		if got := fs.Threshold(tt.name); got != tt.want {
			t.Errorf("Threshold(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFilterSetNoMatch(t *testing.T) {
	fs := NewFilterSet(Filter{Prefix: "app.db", Level: DEBUG})
	if got := fs.Threshold("other"); got != OFF {
		t.Errorf("unmatched logger should resolve to OFF, got %v", got)
	}
}

func TestFilterSetString(t *testing.T) {
	fs := NewFilterSet(Filter{Prefix: "app", Level: INFO}, Filter{Prefix: "app.db", Level: DEBUG})
	want := "app:INFO,app.db:DEBUG"
	if got := fs.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestParseFilterSet(t *testing.T) {
	fs, err := ParseFilterSet("app:info,app.db:debug")
	if err.IsKO() {
		t.Fatalf("unexpected error: %s", err.Message)
	}
	if got := fs.Threshold("app.net"); got != INFO {
		t.Errorf("app.net threshold = %v, want INFO", got)
	}
	if got := fs.Threshold("app.db.cursor"); got != DEBUG {
		t.Errorf("app.db.cursor threshold = %v, want DEBUG", got)
	}
}

func TestParseFilterSetEmpty(t *testing.T) {
	fs, err := ParseFilterSet("")
	if err.IsKO() {
		t.Fatalf("unexpected error: %s", err.Message)
	}
	if len(fs.Filters()) != 0 {
		t.Error("empty format should produce an empty filter set")
	}
}

func TestParseFilterSetMalformed(t *testing.T) {
	tests := []string{"app", "app:", "app:bogus", "app:info,"}
	for _, in := range tests {
		if _, err := ParseFilterSet(in); err.IsOK() {
			t.Errorf("ParseFilterSet(%q) should have failed", in)
		}
	}
}

func TestParseFilterSetClampWarning(t *testing.T) {
	fs, err := ParseFilterSet("app:999")
	if err.IsOK() {
		t.Fatal("expected a clamp warning, got OK")
	}
	if got := fs.Threshold("app"); got != LOWEST {
		t.Errorf("clamped level should still be applied as LOWEST, got %v", got)
	}
}

func TestPredefinedFilterSets(t *testing.T) {
	if got := AllOff().Threshold("anything"); got != OFF {
		t.Errorf("AllOff() = %v, want OFF", got)
	}
	if got := AllOutput().Threshold("anything"); got != OUTPUT {
		t.Errorf("AllOutput() = %v, want OUTPUT", got)
	}
	if got := AllAll().Threshold("anything"); got != LOWEST {
		t.Errorf("AllAll() = %v, want LOWEST", got)
	}
}
