// Package leb128 implements the variable-length integer encoding used
// throughout the Wasm binary format: unsigned and signed LEB128 for both
// 32-bit and 33-bit-sign-extended-to-64-bit values, per the Wasm core
// specification's Appendix B.
package leb128

import (
	"fmt"
	"io"
)

const (
	maxVarintLen32 = 5
	maxVarintLen64 = 10
)

// EncodeUint32 encodes v as unsigned LEB128.
func EncodeUint32(v uint32) []byte { return EncodeUint64(uint64(v)) }

// EncodeUint64 encodes v as unsigned LEB128.
func EncodeUint64(v uint64) []byte {
	out := make([]byte, 0, maxVarintLen64)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

// EncodeInt32 encodes v as signed LEB128.
func EncodeInt32(v int32) []byte { return EncodeInt64(int64(v)) }

// EncodeInt64 encodes v as signed LEB128.
func EncodeInt64(v int64) []byte {
	out := make([]byte, 0, maxVarintLen64)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			out = append(out, b)
			return out
		}
		out = append(out, b|0x80)
	}
}

// LoadUint32 decodes an unsigned LEB128 value from the front of buf,
// returning the value and the number of bytes consumed.
func LoadUint32(buf []byte) (uint32, uint64, error) {
	v, n, err := LoadUint64(buf)
	if err != nil {
		return 0, 0, err
	}
	if v > 0xffffffff || n > maxVarintLen32 {
		return 0, 0, fmt.Errorf("invalid uint32: overflow")
	}
	return uint32(v), n, nil
}

// LoadUint64 decodes an unsigned LEB128 value from the front of buf.
func LoadUint64(buf []byte) (uint64, uint64, error) {
	var result uint64
	var shift uint
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		if shift >= 64 || (shift == 63 && b > 1) {
			return 0, 0, fmt.Errorf("invalid uint64: overflow")
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, uint64(i + 1), nil
		}
		shift += 7
	}
	return 0, 0, io.ErrUnexpectedEOF
}

// LoadInt32 decodes a signed LEB128 value from the front of buf.
func LoadInt32(buf []byte) (int32, uint64, error) {
	v, n, err := LoadInt64(buf)
	if err != nil {
		return 0, 0, err
	}
	if v < -(1<<31) || v > (1<<31)-1 {
		return 0, 0, fmt.Errorf("invalid int32: out of range")
	}
	return int32(v), n, nil
}

// LoadInt64 decodes a signed LEB128 value from the front of buf.
func LoadInt64(buf []byte) (int64, uint64, error) {
	var result int64
	var shift uint
	var b byte
	var i int
	for i = 0; i < len(buf); i++ {
		b = buf[i]
		if shift >= 64 {
			return 0, 0, fmt.Errorf("invalid int64: overflow")
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if i == len(buf) {
		return 0, 0, io.ErrUnexpectedEOF
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, uint64(i + 1), nil
}

// DecodeInt33AsInt64 reads a signed 33-bit LEB128 value (as used for Wasm
// block types) from r, sign-extended into an int64.
func DecodeInt33AsInt64(r io.ByteReader) (int64, uint64, error) {
	var result int64
	var shift uint
	var n uint64
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, 0, err
		}
		n++
		if shift >= 33 {
			return 0, 0, fmt.Errorf("invalid int33: overflow")
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 33 && b&0x40 != 0 {
				result |= -1 << shift
			}
			return result, n, nil
		}
	}
}
