package interp

import (
	"crypto/sha256"
	"encoding/binary"
)

// stateHash computes the canonical state hash (§4.7): four tagged sections
// covering the stack, locals, a sampled memory window, and the PC/fuel
// pair, hashed in one SHA-256 pass so two interpreters observing the same
// State always agree on the witness they're disputing.
func stateHash(s State) [32]byte {
	h := sha256.New()

	h.Write([]byte{0x01})
	writeU32(h, uint32(len(s.Stack)))
	for _, v := range s.Stack {
		h.Write([]byte{byte(v.Type)})
		if v.Type == ValueTypeI64 {
			writeU64(h, v.Bits)
		} else {
			writeU32(h, uint32(v.Bits))
		}
	}

	h.Write([]byte{0x02})
	writeU32(h, uint32(len(s.Locals)))
	for _, v := range s.Locals {
		if v.Type == ValueTypeI64 {
			writeU64(h, v.Bits)
		} else {
			writeU32(h, uint32(v.Bits))
		}
	}

	h.Write([]byte{0x03})
	sampleLen := len(s.Memory)
	if sampleLen > 1024 {
		sampleLen = 1024
	}
	h.Write(s.Memory[:sampleLen])

	h.Write([]byte{0x04})
	writeU64(h, uint64(s.PC))
	writeU64(h, s.Fuel)

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func writeU32(h interface{ Write([]byte) (int, error) }, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	h.Write(b[:])
}

func writeU64(h interface{ Write([]byte) (int, error) }, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	h.Write(b[:])
}
