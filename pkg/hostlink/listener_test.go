package hostlink

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestListenerRoutesStdOutAndCSV(t *testing.T) {
	var stdout, csv bytes.Buffer
	l := NewListener(2, &stdout, nil, &csv)

	for _, b := range []byte{0x01, 'o', 'k', 0x00} {
		if err := l.Feed(0, b); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := stdout.String(); !strings.Contains(got, "ok") {
		t.Fatalf("stdout = %q, want it to contain \"ok\"", got)
	}

	msg := append([]byte{byte(tagKeyVal)}, "probe"...)
	msg = append(msg, 0, 9, 0, 0, 0, 5, 0, 0, 0)
	for _, b := range msg {
		if err := l.Feed(1, b); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	want := FormatKeyValueRow("probe", 0, 9, 5)
	if got := csv.String(); got != want {
		t.Fatalf("csv = %q, want %q", got, want)
	}
}

func TestListenerUnknownThreadErrors(t *testing.T) {
	l := NewListener(1, nil, nil, nil)
	err := l.Feed(5, 0x01)

	var unknown *UnknownProtocolTagError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want *UnknownProtocolTagError", err)
	}
}

func TestFormatKeyValueRow(t *testing.T) {
	got := FormatKeyValueRow("dev", 3, 7, 42)
	want := "dev, 3, 7, 42\n"
	if got != want {
		t.Fatalf("FormatKeyValueRow = %q, want %q", got, want)
	}
}
