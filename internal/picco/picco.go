// Package picco orders Picco numbers, identifiers of the form P<major>-<minor>
// such as "P1-10" or "P2-3".
package picco

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

type Number struct {
	Major int
	Minor int
}

// Parse strips the leading marker and reads both parts. Anything that is not
// exactly two integers separated by a dash parses as {0, 0}.
func Parse(text string) Number {
	text = strings.TrimSpace(text)
	if text == "" {
		return Number{}
	}

	_, size := utf8.DecodeRuneInString(text)
	parts := strings.Split(text[size:], "-")
	if len(parts) != 2 {
		return Number{}
	}

	major, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Number{}
	}

	minor, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Number{}
	}

	return Number{Major: major, Minor: minor}
}

func (n Number) Compare(other Number) int {
	if c := cmp.Compare(n.Major, other.Major); c != 0 {
		return c
	}

	return cmp.Compare(n.Minor, other.Minor)
}

func (n Number) String() string {
	return "P" + strconv.Itoa(n.Major) + "-" + strconv.Itoa(n.Minor)
}

func Compare(a, b string) int {
	return Parse(a).Compare(Parse(b))
}

// MatchesThreshold reports whether value op threshold holds, with op one of
// "=", ">" or "<". Unknown operators never match.
func MatchesThreshold(value, op, threshold string) bool {
	c := Compare(value, threshold)

	switch op {
	case "=":
		return c == 0
	case ">":
		return c > 0
	case "<":
		return c < 0
	default:
		return false
	}
}

// Sort orders values ascending in place. Equal numbers keep their order.
func Sort(values []string) {
	slices.SortStableFunc(values, Compare)
}
