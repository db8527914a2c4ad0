package props

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type valueKind uint8

const (
	kindAbsent valueKind = iota
	kindNumber
	kindText
)

// Value is a property reading. The zero Value is absent.
type Value struct {
	kind valueKind
	num  float64
	text string
}

var Absent = Value{}

func Number(n float64) Value {
	return Value{kind: kindNumber, num: n}
}

func Text(s string) Value {
	return Value{kind: kindText, text: s}
}

func (v Value) IsAbsent() bool {
	return v.kind == kindAbsent
}

func (v Value) IsNumber() bool {
	return v.kind == kindNumber
}

func (v Value) IsText() bool {
	return v.kind == kindText
}

// Float returns the numeric reading. Text values yield their leading
// number the way parseFloat does, so "150lb" reads as 150.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case kindNumber:
		return v.num, true
	case kindText:
		return LeadingNumber(v.text)
	default:
		return 0, false
	}
}

func (v Value) String() string {
	switch v.kind {
	case kindNumber:
		return FormatNumber(v.num)
	case kindText:
		return v.text
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.num)
	case kindText:
		return json.Marshal(v.text)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch typed := raw.(type) {
	case nil:
		*v = Absent
	case float64:
		*v = Number(typed)
	case string:
		*v = Text(typed)
	case bool:
		*v = Text(strconv.FormatBool(typed))
	default:
		return fmt.Errorf("unsupported property value: %s", string(data))
	}

	return nil
}

// FormatNumber renders n the way a JavaScript number converts to a string
// for ordinary magnitudes: no trailing zeros, no exponent.
func FormatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// LeadingNumber parses the longest numeric prefix of s.
func LeadingNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)

	end := 0
	seenDigit := false
	seenDot := false
	seenExp := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
			end = i + 1
		case (c == '+' || c == '-') && (i == 0 || s[i-1] == 'e' || s[i-1] == 'E'):
		case c == '.' && !seenDot && !seenExp:
			seenDot = true
		case (c == 'e' || c == 'E') && seenDigit && !seenExp:
			seenExp = true
		default:
			i = len(s)
		}
	}

	if !seenDigit {
		return 0, false
	}

	n, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}

	return n, true
}
