package core

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestNewDecodingReader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "utf-8 BOM is dropped",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello,world")...),
			expected: "hello,world",
		},
		{
			name:     "no BOM",
			input:    []byte("hello,world"),
			expected: "hello,world",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "invalid byte replaced",
			input:    []byte{'a', 0xFF, 'b'},
			expected: "a\uFFFDb",
		},
		{
			name:     "multi-byte characters kept",
			input:    []byte("café,日本"),
			expected: "café,日本",
		},
		{
			name:     "utf-16 little endian with BOM",
			input:    []byte{0xFF, 0xFE, 'h', 0, 'i', 0},
			expected: "hi",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(NewDecodingReader(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestCountingReader(t *testing.T) {
	data := "hello, world!"
	reader := NewCountingReader(strings.NewReader(data), int64(len(data)))

	buf := make([]byte, 5)
	n, _ := reader.Read(buf)
	if n != 5 || reader.BytesRead != 5 {
		t.Fatalf("after first read: n=%d BytesRead=%d", n, reader.BytesRead)
	}
	if got := reader.Progress(); got != 38 {
		t.Errorf("Progress() = %d, want 38", got)
	}

	if _, err := io.ReadAll(reader); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := reader.Progress(); got != 100 {
		t.Errorf("Progress() = %d, want 100", got)
	}
}

func TestCountingReader_UnknownTotal(t *testing.T) {
	reader := NewCountingReader(strings.NewReader("abc"), 0)
	io.ReadAll(reader) //nolint:errcheck
	if got := reader.Progress(); got != 0 {
		t.Errorf("Progress() = %d, want 0 for unknown total", got)
	}
}

func TestCountingReader_CapsAt100(t *testing.T) {
	reader := NewCountingReader(strings.NewReader("abcdef"), 3)
	io.ReadAll(reader) //nolint:errcheck
	if got := reader.Progress(); got != 100 {
		t.Errorf("Progress() = %d, want 100", got)
	}
}

func TestWrapForStreaming_CountsRawBytes(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("a,b\n1,2\n")...)
	decoded, counter := WrapForStreaming(bytes.NewReader(input), int64(len(input)))

	out, err := io.ReadAll(decoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "a,b\n1,2\n" {
		t.Errorf("decoded = %q", out)
	}
	if counter.BytesRead != int64(len(input)) {
		t.Errorf("BytesRead = %d, want %d (BOM included)", counter.BytesRead, len(input))
	}
}
