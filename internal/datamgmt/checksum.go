package datamgmt

import (
	"bytes"
	"encoding/json"
	"strconv"
	"unicode/utf16"
)

// Checksum computes the drift-detection hash of v: a 32-bit rolling hash
// (h = h*31 + c over UTF-16 code units) of its compact JSON encoding,
// rendered in signed base 36. It is not an integrity control.
func Checksum(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return rollingHash(string(bytes.TrimRight(buf.Bytes(), "\n"))), nil
}

func rollingHash(s string) string {
	var h int32
	for _, unit := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(unit)
	}
	return strconv.FormatInt(int64(h), 36)
}
