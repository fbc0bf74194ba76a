package logging

import (
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

func TestCollectorKeepsOrder(t *testing.T) {
	c := NewCollector()
	c.Warnf("first %d", 1)
	c.Warnf("second %d", 2)

	got := c.Warnings()
	want := []string{"first 1", "second 2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected warnings: %v", got)
	}
}

func TestCollectorCopiesWarnings(t *testing.T) {
	c := NewCollector()
	c.Warnf("original")
	got := c.Warnings()
	got[0] = "mutated"
	if c.Warnings()[0] != "original" {
		t.Fatalf("Warnings must return a copy")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":    zerolog.DebugLevel,
		"INFO":     zerolog.InfoLevel,
		" warn ":   zerolog.WarnLevel,
		"warning":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"off":      zerolog.Disabled,
		"disabled": zerolog.Disabled,
	}
	for raw, want := range cases {
		got, ok := parseLevel(raw)
		if !ok || got != want {
			t.Fatalf("parseLevel(%q) = %v %v", raw, got, ok)
		}
	}
	if _, ok := parseLevel(""); ok {
		t.Fatalf("empty level must not override")
	}
	if _, ok := parseLevel("nonsense"); ok {
		t.Fatalf("unknown level must not override")
	}
}

func TestParseBool(t *testing.T) {
	if v, ok := parseBool("true"); !ok || !v {
		t.Fatalf("true not parsed")
	}
	if v, ok := parseBool("0"); !ok || v {
		t.Fatalf("0 not parsed")
	}
	if _, ok := parseBool(""); ok {
		t.Fatalf("empty must not override")
	}
	if _, ok := parseBool("maybe"); ok {
		t.Fatalf("garbage must not override")
	}
}
