// Package validator implements the two validation layers of §4.1: a
// substring/balance scan over the raw source text, applied before AST
// construction, and a byte-level scan over the emitted Wasm module. Grounded
// on python-verifier/src/validation.rs from original_source/, carried over
// tag-for-tag and extended with the module-byte checks §4.1 adds on top.
package validator

import (
	"strings"

	"github.com/fraudcore/pywasm/internal/pyerr"
)

const maxSourceBytes = 100 * 1024

// forbiddenSubstrings is the exact deny-list of §4.1, checked before AST
// construction so a forbidden token never even reaches the parser.
var forbiddenSubstrings = []string{
	"__import__", "compile(", "eval(", "exec(", "execfile(", "globals(",
	"locals(", "vars(", "dir(", "input(", "open(", "file(", "subprocess",
	"os.", "sys.", "socket", "urllib", "requests", "http.", "ftplib",
	"pickle", "marshal", "shelve", "__builtins__", "exit(", "quit(",
}

var allowedImports = []string{"import json", "import hashlib", "from hashlib"}

// ValidateSource applies every source-level check of §4.1, in the order
// specified: size, OUTPUT presence, forbidden substrings, balanced
// punctuation, then the import allow-list.
func ValidateSource(source []byte) error {
	if len(source) > maxSourceBytes {
		return pyerr.New(pyerr.SourceTooLarge, "source is %d bytes, limit is %d", len(source), maxSourceBytes)
	}
	text := string(source)
	if !strings.Contains(text, "OUTPUT") {
		return pyerr.New(pyerr.MissingOutput, "source must assign to OUTPUT")
	}
	for _, tok := range forbiddenSubstrings {
		if strings.Contains(text, tok) {
			return pyerr.New(pyerr.ForbiddenName, "source contains forbidden token").WithToken(tok)
		}
	}
	if err := checkBalanced(text); err != nil {
		return err
	}
	return checkImportPolicy(text)
}

// checkBalanced verifies parentheses/brackets/braces balance outside of
// quoted strings, matching the character-by-character scan in
// python-verifier/src/validation.rs. A quote counts as escaped when the byte
// right before it is a backslash; whether that backslash is itself escaped
// is not tracked.
func checkBalanced(text string) error {
	var paren, bracket, brace int
	inString := false
	var stringChar byte
	runes := []byte(text)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		if inString {
			if ch == stringChar && (i == 0 || runes[i-1] != '\\') {
				inString = false
			}
			continue
		}
		switch ch {
		case '"', '\'':
			inString = true
			stringChar = ch
		case '(':
			paren++
		case ')':
			paren--
			if paren < 0 {
				return pyerr.New(pyerr.UnbalancedPunctuation, "unmatched ')'")
			}
		case '[':
			bracket++
		case ']':
			bracket--
			if bracket < 0 {
				return pyerr.New(pyerr.UnbalancedPunctuation, "unmatched ']'")
			}
		case '{':
			brace++
		case '}':
			brace--
			if brace < 0 {
				return pyerr.New(pyerr.UnbalancedPunctuation, "unmatched '}'")
			}
		}
	}
	if paren != 0 {
		return pyerr.New(pyerr.UnbalancedPunctuation, "unclosed '('")
	}
	if bracket != 0 {
		return pyerr.New(pyerr.UnbalancedPunctuation, "unclosed '['")
	}
	if brace != 0 {
		return pyerr.New(pyerr.UnbalancedPunctuation, "unclosed '{'")
	}
	return nil
}

// checkImportPolicy enforces §4.1's import allow-list: if the source
// contains any `import ` or `from ` keyword usage at all, every such usage
// must match one of the allowed spellings.
func checkImportPolicy(text string) error {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "import ") || strings.HasPrefix(trimmed, "from ") {
			allowed := false
			for _, a := range allowedImports {
				if strings.HasPrefix(trimmed, a) {
					allowed = true
					break
				}
			}
			if !allowed {
				return pyerr.New(pyerr.DisallowedImport, "only `import json`, `import hashlib`, and `from hashlib import ...` are allowed").WithToken(trimmed)
			}
		}
	}
	return nil
}
