/*
Validation and sanitization for user-entered decimal amounts.

Two strictness levels exist on purpose: IsValidDecimal accepts a trailing
decimal point so live typing of "12." is not rejected mid-entry, while
IsCompleteDecimal is the submit-time check that requires the fraction to be
finished. Conversion never validates; callers run these checks first.
*/

package validate

import "strings"

// IsValidDecimal reports whether s is a decimal string acceptable during
// entry: digits with at most one decimal point, where the fractional part may
// still be empty. Rejects the empty string, leading-dot forms, multiple dots,
// and any non-numeric character.
func IsValidDecimal(s string) bool {
	if s == "" {
		return false
	}
	dotSeen := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
		case c == '.':
			if dotSeen || i == 0 {
				return false
			}
			dotSeen = true
		default:
			return false
		}
	}
	return true
}

// IsCompleteDecimal reports whether s is a finished decimal string: valid per
// IsValidDecimal and, when a decimal point is present, carrying at least one
// fractional digit. "123." passes the entry check but fails this one.
func IsCompleteDecimal(s string) bool {
	return IsValidDecimal(s) && !strings.HasSuffix(s, ".")
}

// HasValidPrecision reports whether s carries at most maxDecimals fractional
// digits. Strings without a decimal point always pass. Intended for strings
// already accepted by IsValidDecimal.
func HasValidPrecision(s string, maxDecimals int) bool {
	if maxDecimals < 0 {
		return false
	}
	_, frac, found := strings.Cut(s, ".")
	if !found {
		return true
	}
	return len(frac) <= maxDecimals
}

// CleanInput strips every character except digits and the first decimal
// point, then truncates the fraction to maxDecimals digits. Currency symbols,
// grouping commas, and stray dots all disappear; a trailing decimal point is
// preserved so live input is not reshaped under the user. A cap of zero or
// less removes the fractional part entirely.
func CleanInput(s string, maxDecimals int) string {
	var b strings.Builder
	b.Grow(len(s))
	dotSeen := false
	fracCount := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			if dotSeen {
				if fracCount >= maxDecimals {
					continue
				}
				fracCount++
			}
			b.WriteByte(c)
		case c == '.':
			if dotSeen {
				continue
			}
			dotSeen = true
			if maxDecimals > 0 {
				b.WriteByte('.')
			}
		}
	}
	return b.String()
}
