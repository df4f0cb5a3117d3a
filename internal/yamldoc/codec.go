package yamldoc

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	decimalRe     = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?$`)
	leadingZeroRe = regexp.MustCompile(`^-?0\d`)
)

// ToScalar converts raw form input into the scalar stored in the document.
//
// "true" and "false" become booleans. A value that, once trimmed, does not
// start with '+' or a leading zero ("007", "-0") and reads fully as a finite
// decimal number becomes a number: an integer when it has no fractional
// digits, otherwise a float that keeps the literal's fractional-digit count
// ("3.1400" stays "3.1400"). Anything else is stored as the unchanged string.
func ToScalar(raw string) *yaml.Node {
	switch raw {
	case "true", "false":
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: raw}
	}
	if value, tag, ok := numberLiteral(raw); ok {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
	}
	return NewString(raw)
}

// numberLiteral returns the canonical text and tag for a numeric input.
func numberLiteral(raw string) (string, string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || !decimalRe.MatchString(s) || leadingZeroRe.MatchString(s) || s == "-0" {
		return "", "", false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return "", "", false
	}

	mantissa, _, hasExp := strings.Cut(strings.ToLower(s), "e")
	_, frac, hasDot := strings.Cut(mantissa, ".")
	digits := len(frac)
	if hasExp {
		digits = -1
	}

	if digits == 0 || (hasExp && f == math.Trunc(f)) || (!hasDot && !hasExp) {
		if f < math.MinInt64 || f >= math.MaxInt64 {
			return "", "", false
		}
		if !hasDot && !hasExp {
			// Parse the integer text directly to avoid float rounding.
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return "", "", false
			}
			return strconv.FormatInt(n, 10), "!!int", true
		}
		return strconv.FormatInt(int64(f), 10), "!!int", true
	}
	return strconv.FormatFloat(f, 'f', digits, 64), "!!float", true
}

// ScalarText returns a scalar's text as it would be shown in a form: the
// literal value for scalars and an empty string for nulls and collections.
func ScalarText(n *yaml.Node) string {
	n = Resolve(n)
	if n == nil || n.Kind != yaml.ScalarNode || isNull(n) {
		return ""
	}
	return n.Value
}

// ScalarBool reads a boolean scalar. ok is false when n is absent or not a
// boolean.
func ScalarBool(n *yaml.Node) (value, ok bool) {
	n = Resolve(n)
	if n == nil || n.Kind != yaml.ScalarNode {
		return false, false
	}
	var b bool
	if err := n.Decode(&b); err != nil {
		return false, false
	}
	return b, true
}
