package introspection

import (
	"fmt"
	"strings"
)

// parseEnumValues reads the quoted members of an ENUM(...) COLUMN_TYPE.
// Both backslash escapes and doubled quotes are accepted.
func parseEnumValues(columnType string) ([]string, error) {
	trimmed := strings.TrimSpace(columnType)
	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "enum(") || !strings.HasSuffix(lower, ")") {
		return nil, fmt.Errorf("invalid enum definition %q", columnType)
	}
	body := trimmed[len("enum(") : len(trimmed)-1]

	var values []string
	for pos := 0; ; {
		pos = skipSpace(body, pos)
		if pos >= len(body) {
			break
		}
		if body[pos] != '\'' {
			return nil, fmt.Errorf("expected quote at position %d", pos)
		}
		value, next, err := readQuoted(body, pos+1)
		if err != nil {
			return nil, err
		}
		values = append(values, value)

		pos = skipSpace(body, next)
		if pos < len(body) {
			if body[pos] != ',' {
				return nil, fmt.Errorf("expected comma at position %d", pos)
			}
			pos++
		}
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no enum values parsed")
	}
	return values, nil
}

// readQuoted reads up to the closing quote and returns the position after it.
func readQuoted(s string, pos int) (string, int, error) {
	var sb strings.Builder
	for pos < len(s) {
		switch ch := s[pos]; {
		case ch == '\\':
			if pos+1 >= len(s) {
				return "", 0, fmt.Errorf("unterminated escape")
			}
			sb.WriteByte(s[pos+1])
			pos += 2
		case ch == '\'' && pos+1 < len(s) && s[pos+1] == '\'':
			sb.WriteByte('\'')
			pos += 2
		case ch == '\'':
			return sb.String(), pos + 1, nil
		default:
			sb.WriteByte(ch)
			pos++
		}
	}
	return "", 0, fmt.Errorf("unterminated quoted value")
}

func skipSpace(s string, pos int) int {
	for pos < len(s) && s[pos] == ' ' {
		pos++
	}
	return pos
}
