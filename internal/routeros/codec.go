package routeros

import (
	"bufio"
	"fmt"
	"io"
)

// The RouterOS API frames each word with a variable-length length prefix.
// The high bits of the first byte tell how many bytes the length occupies:
//
//	0xxxxxxx                     1 byte,  lengths < 0x80
//	10xxxxxx xxxxxxxx            2 bytes, lengths < 0x4000
//	110xxxxx xxxxxxxx xxxxxxxx   3 bytes, lengths < 0x200000
//	1110xxxx + 3 bytes           4 bytes, lengths < 0x10000000
//	0xF0     + 4 bytes           5 bytes, everything else
//
// A sentence is a run of words terminated by a zero-length word.

func encodeLength(buf []byte, l int) []byte {
	switch {
	case l < 0x80:
		return append(buf, byte(l))
	case l < 0x4000:
		return append(buf, byte(l>>8)|0x80, byte(l))
	case l < 0x200000:
		return append(buf, byte(l>>16)|0xC0, byte(l>>8), byte(l))
	case l < 0x10000000:
		return append(buf, byte(l>>24)|0xE0, byte(l>>16), byte(l>>8), byte(l))
	default:
		return append(buf, 0xF0, byte(l>>24), byte(l>>16), byte(l>>8), byte(l))
	}
}

// EncodeSentence frames the given words ready to be written to the socket.
// An empty word list encodes to the bare sentence terminator.
func EncodeSentence(words []string) []byte {
	size := 1
	for _, w := range words {
		size += len(w) + 5
	}
	buf := make([]byte, 0, size)
	for _, w := range words {
		buf = encodeLength(buf, len(w))
		buf = append(buf, w...)
	}
	return append(buf, 0x00)
}

func readLength(r *bufio.Reader) (int, error) {
	b0, err := r.ReadByte()
	if err != nil {
		return 0, err
	}

	var rest int
	var l int
	switch {
	case b0 < 0x80:
		return int(b0), nil
	case b0&0xC0 == 0x80:
		l = int(b0 & 0x3F)
		rest = 1
	case b0&0xE0 == 0xC0:
		l = int(b0 & 0x1F)
		rest = 2
	case b0&0xF0 == 0xE0:
		l = int(b0 & 0x0F)
		rest = 3
	case b0 == 0xF0:
		l = 0
		rest = 4
	default:
		// 0xF1..0xFF are reserved control bytes.
		return 0, &ProtocolError{Reason: fmt.Sprintf("reserved length control byte 0x%02X", b0)}
	}

	for i := 0; i < rest; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, &ProtocolError{Reason: "unexpected EOF inside length prefix"}
		}
		l = l<<8 | int(b)
	}
	return l, nil
}

// ReadSentence reads one full sentence from r, blocking until the terminator
// word arrives. It returns the words without their length prefixes; the
// terminator itself is consumed and not returned.
func ReadSentence(r *bufio.Reader) ([]string, error) {
	var words []string
	for {
		l, err := readLength(r)
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, &ProtocolError{Reason: "unexpected EOF while reading sentence"}
			}
			return nil, err
		}
		if l == 0 {
			return words, nil
		}

		word := make([]byte, l)
		if _, err := io.ReadFull(r, word); err != nil {
			return nil, &ProtocolError{Reason: "unexpected EOF inside word"}
		}
		words = append(words, string(word))
	}
}
