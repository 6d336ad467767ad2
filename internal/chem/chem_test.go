package chem

import (
	"errors"
	"fmt"
	"testing"
)

func TestRecordPairKeyIsUnordered(t *testing.T) {
	a := Record{Chemical1: "Ammonia", Chemical2: " Sodium Hypochlorite"}
	b := Record{Chemical1: "sodium hypochlorite", Chemical2: "AMMONIA "}

	if a.PairKey() != b.PairKey() {
		t.Fatalf("expected equal pair keys, got %q and %q", a.PairKey(), b.PairKey())
	}
}

func TestParseCompatibility(t *testing.T) {
	cases := map[string]Compatibility{
		"Incompatible":     Incompatible,
		" compatible ":     Compatible,
		"Caution":          Caution,
		"may be hazardous": Caution,
		"":                 Unknown,
		"no data":          Unknown,
	}
	for in, want := range cases {
		if got := ParseCompatibility(in); got != want {
			t.Errorf("ParseCompatibility(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestKindOfThroughWrapping(t *testing.T) {
	base := E("translate.translate", KindUpstreamMalformed, "empty response", nil)
	wrapped := fmt.Errorf("pipeline: %w", base)

	if got := KindOf(wrapped); got != KindUpstreamMalformed {
		t.Fatalf("expected %v, got %v", KindUpstreamMalformed, got)
	}
	if !IsKind(wrapped, KindUpstreamMalformed) {
		t.Fatalf("IsKind should see through wrapping")
	}
	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Fatalf("plain errors should be internal, got %v", got)
	}
}

func TestSafeMessage(t *testing.T) {
	if got := SafeMessage(nil); got != "An unknown error occurred" {
		t.Fatalf("unexpected nil message %q", got)
	}
	if got := SafeMessage(errors.New("타임아웃 timeout")); got != "???? timeout" {
		t.Fatalf("unexpected sanitised message %q", got)
	}
	if got := SafeMessage(errors.New("   ")); got != "An unknown error occurred" {
		t.Fatalf("blank errors should fall back, got %q", got)
	}
}
