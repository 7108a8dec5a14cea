package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SequenceWidth is the minimum number of digits in a rendered sequence.
const SequenceWidth = 6

var ErrMalformedBatchNumber = errors.New("malformed batch number")

// RenderBatchNumber formats code and sequence as "CODE-000042". The code is
// uppercased; sequences wider than six digits are rendered in full.
func RenderBatchNumber(code string, sequence int64) string {
	return fmt.Sprintf("%s-%0*d", strings.ToUpper(strings.TrimSpace(code)), SequenceWidth, sequence)
}

// ParseBatchNumber splits a batch number at its last '-' and returns the
// uppercased code and the sequence. Codes may themselves contain dashes.
func ParseBatchNumber(s string) (code string, sequence int64, err error) {
	s = strings.TrimSpace(s)
	i := strings.LastIndexByte(s, '-')
	if i <= 0 || i == len(s)-1 {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedBatchNumber, s)
	}
	digits := s[i+1:]
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", 0, fmt.Errorf("%w: %q", ErrMalformedBatchNumber, s)
		}
	}
	sequence, err = strconv.ParseInt(digits, 10, 64)
	if err != nil || sequence <= 0 {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedBatchNumber, s)
	}
	return strings.ToUpper(s[:i]), sequence, nil
}

// CanonicalBatchNumber re-renders s so lookups accept lowercase codes and
// unpadded sequences.
func CanonicalBatchNumber(s string) (string, error) {
	code, seq, err := ParseBatchNumber(s)
	if err != nil {
		return "", err
	}
	return RenderBatchNumber(code, seq), nil
}
