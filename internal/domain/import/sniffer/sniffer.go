// Package sniffer inspects raw delimited-text uploads: it repairs the byte
// encoding, detects the field delimiter and fingerprints the header row.
package sniffer

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DefaultDelimiter is the canonical field delimiter
const DefaultDelimiter = ','

// candidate delimiters in preference order
var delimiters = []rune{',', ';', '\t', '|'}

// maxSampleLines bounds how much of the file delimiter detection looks at
const maxSampleLines = 20

// Normalize strips a UTF-8 byte order mark and transcodes Windows-1252
// input, the usual spreadsheet export encoding, to UTF-8.
func Normalize(data []byte) []byte {
	data = stripUTF8BOM(data)
	if utf8.Valid(data) {
		return data
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return data
	}
	return decoded
}

func stripUTF8BOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}

// DetectDelimiter picks the delimiter whose per-line field count is most
// consistent across the first lines. Ties go to the comma.
func DetectDelimiter(data []byte) rune {
	lines := sampleLines(data)
	if len(lines) == 0 {
		return DefaultDelimiter
	}

	best := DefaultDelimiter
	bestScore, bestCount := 0, 0

	for _, d := range delimiters {
		first := countOutsideQuotes(lines[0], d)
		if first == 0 {
			continue
		}

		score := 0
		for _, line := range lines {
			if countOutsideQuotes(line, d) == first {
				score++
			}
		}

		if score > bestScore || (score == bestScore && first > bestCount) {
			best, bestScore, bestCount = d, score, first
		}
	}

	return best
}

func sampleLines(data []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) >= maxSampleLines {
			break
		}
	}
	return lines
}

// countOutsideQuotes counts d in line, ignoring quoted sections
func countOutsideQuotes(line string, d rune) int {
	count := 0
	inQuotes := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == d && !inQuotes:
			count++
		}
	}
	return count
}

// Fingerprint creates a stable hash from header names, ignoring case,
// spacing and punctuation.
func Fingerprint(headers []string) string {
	var normalized []string
	for _, h := range headers {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, h)
		if clean != "" {
			normalized = append(normalized, clean)
		}
	}

	hash := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(hash[:])
}
