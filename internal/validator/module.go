package validator

import (
	"bytes"

	"github.com/fraudcore/pywasm/internal/pyerr"
)

const maxModuleBytes = 24 * 1024

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6D}
var wasmVersion = []byte{0x01, 0x00, 0x00, 0x00}

// ValidateModule applies every byte-level check of §4.1 to an emitted Wasm
// module, in the order specified. It never inspects the module's own
// section structure — only global byte properties — since soundness here
// is about catching instructions this compiler must never emit, not about
// re-validating what codegen already controls.
func ValidateModule(b []byte) error {
	if len(b) > maxModuleBytes {
		return pyerr.New(pyerr.ModuleTooLarge, "module is %d bytes, limit is %d", len(b), maxModuleBytes)
	}
	if len(b) < 8 || !bytes.Equal(b[0:4], wasmMagic) {
		return pyerr.New(pyerr.InvalidMagic, "missing Wasm magic header")
	}
	if !bytes.Equal(b[4:8], wasmVersion) {
		return pyerr.New(pyerr.InvalidVersion, "unsupported Wasm version")
	}
	body := b[8:]
	for _, c := range body {
		if (c >= 0x43 && c <= 0x98) || (c >= 0x99 && c <= 0xBF) {
			return pyerr.New(pyerr.FloatOpcode, "byte 0x%02x in the floating-point opcode range appears after the header", c)
		}
		if c == 0xFE {
			return pyerr.New(pyerr.ThreadOpcode, "atomics prefix byte 0xFE appears after the header")
		}
	}
	if bytes.Contains(body, []byte("wasi_snapshot")) {
		return pyerr.New(pyerr.WasiImport, "module references wasi_snapshot")
	}
	return nil
}
