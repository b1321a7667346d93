package labels

import (
	"errors"
	"reflect"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	enc := Fit([]string{"spanish", "english", "japanese", "english"})
	if enc.Len() != 3 {
		t.Fatalf("expected 3 classes, got %d", enc.Len())
	}
	if !reflect.DeepEqual(enc.Classes(), []string{"english", "japanese", "spanish"}) {
		t.Fatalf("classes not sorted: %v", enc.Classes())
	}
	for _, l := range enc.Classes() {
		code, err := enc.Encode(l)
		if err != nil {
			t.Fatalf("encode %q: %v", l, err)
		}
		back, err := enc.Decode(code)
		if err != nil {
			t.Fatalf("decode %d: %v", code, err)
		}
		if back != l {
			t.Fatalf("round trip %q -> %d -> %q", l, code, back)
		}
	}
}

func TestDecodeOutOfRange(t *testing.T) {
	enc := Fit([]string{"english", "japanese", "spanish"})
	for _, code := range []int{99, 3, -1} {
		_, err := enc.Decode(code)
		var unknown *UnknownLabelError
		if !errors.As(err, &unknown) {
			t.Fatalf("decode(%d): expected UnknownLabelError, got %v", code, err)
		}
		if unknown.Code != code || unknown.Size != 3 {
			t.Fatalf("unexpected error fields %+v", unknown)
		}
	}
}

func TestEncodeUnknown(t *testing.T) {
	enc := Fit([]string{"english"})
	_, err := enc.Encode("klingon")
	var unknown *UnknownLabelError
	if !errors.As(err, &unknown) || unknown.Label != "klingon" {
		t.Fatalf("expected UnknownLabelError for klingon, got %v", err)
	}
	if _, err := enc.EncodeAll([]string{"english", "klingon"}); err == nil {
		t.Fatalf("expected EncodeAll to fail")
	}
}

func TestFromClassesKeepsOrder(t *testing.T) {
	enc, err := FromClasses([]string{"b", "a"})
	if err != nil {
		t.Fatalf("from classes: %v", err)
	}
	if code, _ := enc.Encode("b"); code != 0 {
		t.Fatalf("persisted order must be kept, got code %d for b", code)
	}
	if _, err := FromClasses([]string{"a", "a"}); err == nil {
		t.Fatalf("expected duplicate class error")
	}
}
