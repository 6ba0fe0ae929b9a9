package textutil

import "strings"

// Between finds the text enclosed by start and end, searching from the
// byte offset `from`.
//
// On success it returns the enclosed text and the offset of the end
// marker, passing that offset back in continues the scan after the
// current match. When either marker cannot be found the value is empty
// and `from` is returned unchanged.
//
// This is a plain case-sensitive substring scan, it knows nothing about
// JSON or HTML escaping.
func Between(source, start, end string, from int) (string, int) {
	if source == "" || start == "" || end == "" {
		return "", from
	}
	if from < 0 || from > len(source) {
		return "", from
	}

	startIdx := strings.Index(source[from:], start)
	if startIdx < 0 {
		return "", from
	}
	startIdx += from + len(start)

	endIdx := strings.Index(source[startIdx:], end)
	if endIdx < 0 {
		return "", from
	}
	endIdx += startIdx

	return source[startIdx:endIdx], endIdx
}

// All collects every successive match of Between over source.
func All(source, start, end string) []string {
	var out []string
	offset := 0
	for {
		value, next := Between(source, start, end, offset)
		if next == offset {
			return out
		}
		out = append(out, value)
		offset = next
	}
}

// JsonField returns the string value of a "name":"value" pair. Values
// containing escaped quotes are cut short.
func JsonField(source, name string) string {
	value, _ := Between(source, "\""+name+"\":\"", "\"", 0)
	return value
}

// HtmlField returns the text following a `name">` marker up to the next
// tag.
func HtmlField(source, name string) string {
	value, _ := Between(source, name+"\">", "<", 0)
	return value
}
