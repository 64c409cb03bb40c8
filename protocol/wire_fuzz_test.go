package protocol

import (
	"bytes"
	"testing"
)

// The decoders must be total: arbitrary input either parses into a
// message whose re-encoding is byte-identical, or fails cleanly.

func FuzzDecodeGenRandClientBase(f *testing.F) {
	f.Add(make([]byte, 72))
	f.Fuzz(func(t *testing.T, data []byte) {
		m, err := DecodeGenRandClientBase(data)
		if err != nil {
			return
		}
		if !bytes.Equal(m.Encode(), data) {
			t.Fatalf("re-encoding differs from input")
		}
	})
}

func FuzzDecodeGenRandServer(f *testing.F) {
	f.Add(make([]byte, 80))
	f.Fuzz(func(t *testing.T, data []byte) {
		m, err := DecodeGenRandServer(data)
		if err != nil {
			return
		}
		if !bytes.Equal(m.Encode(), data) {
			t.Fatalf("re-encoding differs from input")
		}
	})
}

func FuzzDecodeRandomizeBase(f *testing.F) {
	f.Add(make([]byte, 180))
	f.Fuzz(func(t *testing.T, data []byte) {
		m, err := DecodeRandomizeBase(data)
		if err != nil {
			return
		}
		if !bytes.Equal(m.Encode(), data) {
			t.Fatalf("re-encoding differs from input")
		}
	})
}

func FuzzDecodeRandomizeShuffle(f *testing.F) {
	f.Add(make([]byte, 16))
	f.Fuzz(func(t *testing.T, data []byte) {
		m, err := DecodeRandomizeShuffle(data)
		if err != nil {
			return
		}
		if !bytes.Equal(m.Encode(), data) {
			t.Fatalf("re-encoding differs from input")
		}
	})
}
