package routeros

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func TestEncodeLength(t *testing.T) {
	tests := []struct {
		name   string
		length int
		want   []byte
	}{
		{name: "zero", length: 0, want: []byte{0x00}},
		{name: "one byte max", length: 0x7F, want: []byte{0x7F}},
		{name: "two byte min", length: 0x80, want: []byte{0x80, 0x80}},
		{name: "two byte max", length: 0x3FFF, want: []byte{0xBF, 0xFF}},
		{name: "three byte min", length: 0x4000, want: []byte{0xC0, 0x40, 0x00}},
		{name: "three byte max", length: 0x1FFFFF, want: []byte{0xDF, 0xFF, 0xFF}},
		{name: "four byte min", length: 0x200000, want: []byte{0xE0, 0x20, 0x00, 0x00}},
		{name: "four byte max", length: 0x0FFFFFFF, want: []byte{0xEF, 0xFF, 0xFF, 0xFF}},
		{name: "five byte", length: 0x10000000, want: []byte{0xF0, 0x10, 0x00, 0x00, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := encodeLength(nil, tt.length)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("encodeLength(%d) = % X, want % X", tt.length, got, tt.want)
			}

			r := bufio.NewReader(bytes.NewReader(got))
			back, err := readLength(r)
			if err != nil {
				t.Fatalf("readLength() error = %v", err)
			}
			if back != tt.length {
				t.Errorf("readLength() = %d, want %d", back, tt.length)
			}
		})
	}
}

func TestSentenceRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		words []string
	}{
		{name: "command only", words: []string{"/ppp/secret/print"}},
		{name: "command with args", words: []string{"/ppp/secret/print", "?name=bob", "=.proplist=name,profile"}},
		{name: "empty word", words: []string{"/login", "=name=admin", "=password="}},
		{name: "utf8 word", words: []string{"/ppp/secret/add", "=comment=Bpk. Ágústín 東京"}},
		{name: "word at one byte boundary", words: []string{strings.Repeat("a", 127)}},
		{name: "word at two byte boundary", words: []string{strings.Repeat("b", 128)}},
		{name: "word at two byte upper boundary", words: []string{strings.Repeat("c", 16383)}},
		{name: "word at three byte boundary", words: []string{strings.Repeat("d", 16384)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := EncodeSentence(tt.words)
			if encoded[len(encoded)-1] != 0x00 {
				t.Errorf("EncodeSentence() missing terminator word")
			}

			got, err := ReadSentence(bufio.NewReader(bytes.NewReader(encoded)))
			if err != nil {
				t.Fatalf("ReadSentence() error = %v", err)
			}
			if len(got) != len(tt.words) {
				t.Fatalf("ReadSentence() returned %d words, want %d", len(got), len(tt.words))
			}
			for i := range got {
				if got[i] != tt.words[i] {
					t.Errorf("word %d = %q, want %q", i, got[i], tt.words[i])
				}
			}
		})
	}
}

func TestEncodeEmptySentence(t *testing.T) {
	got := EncodeSentence(nil)
	if !bytes.Equal(got, []byte{0x00}) {
		t.Errorf("EncodeSentence(nil) = % X, want 00", got)
	}

	words, err := ReadSentence(bufio.NewReader(bytes.NewReader(got)))
	if err != nil {
		t.Fatalf("ReadSentence() error = %v", err)
	}
	if len(words) != 0 {
		t.Errorf("ReadSentence() = %v, want empty sentence", words)
	}
}

func TestReadSentenceMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{name: "reserved control byte", input: []byte{0xF1, 0x00}},
		{name: "truncated length prefix", input: []byte{0xC0, 0x01}},
		{name: "truncated word", input: []byte{0x05, 'a', 'b'}},
		{name: "eof before terminator", input: []byte{0x03, '!', 'r', 'e'}},
		{name: "immediate eof", input: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSentence(bufio.NewReader(bytes.NewReader(tt.input)))
			if err == nil {
				t.Fatal("ReadSentence() expected error, got nil")
			}
			if _, ok := err.(*ProtocolError); !ok {
				t.Errorf("ReadSentence() error = %T(%v), want *ProtocolError", err, err)
			}
		})
	}
}
