package calllog

import (
	"strings"
	"unicode/utf8"

	errors "github.com/Laisky/errors/v2"
)

// maxToolNameLength caps the tool name filter.
const maxToolNameLength = 64

// sanitizeFilter trims a free-text filter and rejects null bytes or values longer than maxLen runes.
func sanitizeFilter(input string, maxLen int, field string) (string, error) {
	v := strings.TrimSpace(input)
	switch {
	case v == "":
		return "", nil
	case strings.ContainsRune(v, '\x00'):
		return "", errors.Errorf("%s contains invalid null byte", field)
	case utf8.RuneCountInString(v) > maxLen:
		return "", errors.Errorf("%s exceeds max length %d", field, maxLen)
	}

	return v, nil
}

func normalizePaging(page, size int) (int, int) {
	if page < 1 {
		page = defaultPage
	}
	switch {
	case size <= 0:
		size = defaultPageSize
	case size > maxPageSize:
		size = maxPageSize
	}

	return page, size
}
