// Package frame recovers complete XML documents from an unframed byte stream.
//
// The wire carries no length prefix or message id. A document ends where the
// literal closing tag of its root element first appears, or at the end of a
// self-closing root tag. Leading XML declarations, processing instructions and
// comments are consumed together with the element that follows them.
package frame

import (
	"bytes"
)

var (
	piOpen       = []byte("<?")
	piClose      = []byte("?>")
	commentOpen  = []byte("<!--")
	commentClose = []byte("-->")
)

// Extract returns the first complete document in buf and the bytes after it.
//
// When buf does not yet hold a complete document, ok is false and rest is buf
// itself: nothing is consumed. The returned document has surrounding
// whitespace trimmed. The interior is not validated.
func Extract(buf []byte) (doc []byte, rest []byte, ok bool) {
	if len(bytes.TrimSpace(buf)) == 0 {
		return nil, buf, false
	}

	start, complete := skipDecorators(buf)
	if !complete || start >= len(buf) || buf[start] != '<' {
		return nil, buf, false
	}

	end := tagEnd(buf, start)
	if end < 0 {
		return nil, buf, false
	}

	openTag := buf[start : end+1]
	if bytes.HasPrefix(openTag, []byte("</")) {
		return nil, buf, false
	}
	name := tagName(openTag[1:])
	if name == "" {
		return nil, buf, false
	}

	if selfClosing(openTag) {
		return bytes.TrimSpace(buf[:end+1]), buf[end+1:], true
	}

	closing := make([]byte, 0, len(name)+3)
	closing = append(closing, "</"...)
	closing = append(closing, name...)
	closing = append(closing, '>')

	// First occurrence wins, even when a nested element shares the root name.
	idx := bytes.Index(buf[end+1:], closing)
	if idx < 0 {
		return nil, buf, false
	}
	docEnd := end + 1 + idx + len(closing)
	return bytes.TrimSpace(buf[:docEnd]), buf[docEnd:], true
}

// RootTag returns the name of the first element opened in doc. Declarations,
// processing instructions and comments are skipped because their '<' is not
// followed by a name. It returns "" when no element is found.
func RootTag(doc []byte) string {
	for {
		i := bytes.IndexByte(doc, '<')
		if i < 0 {
			return ""
		}
		if name := tagName(doc[i+1:]); name != "" {
			return name
		}
		doc = doc[i+1:]
	}
}

// skipDecorators walks past leading whitespace, declarations, processing
// instructions and comments. complete is false when one of them is still open.
func skipDecorators(buf []byte) (cursor int, complete bool) {
	cursor = skipSpace(buf, 0)
	for cursor < len(buf) {
		var closer []byte
		switch {
		case bytes.HasPrefix(buf[cursor:], piOpen):
			closer = piClose
		case bytes.HasPrefix(buf[cursor:], commentOpen):
			closer = commentClose
		default:
			return cursor, true
		}
		idx := bytes.Index(buf[cursor:], closer)
		if idx < 0 {
			return cursor, false
		}
		cursor = skipSpace(buf, cursor+idx+len(closer))
	}
	return cursor, true
}

func skipSpace(buf []byte, i int) int {
	for i < len(buf) && isSpace(buf[i]) {
		i++
	}
	return i
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

// tagEnd finds the '>' that closes the tag opened at buf[open], ignoring any
// '>' inside a single- or double-quoted attribute value.
func tagEnd(buf []byte, open int) int {
	var quote byte
	for i := open + 1; i < len(buf); i++ {
		c := buf[i]
		switch {
		case quote == 0 && (c == '"' || c == '\''):
			quote = c
		case quote != 0 && c == quote:
			quote = 0
		case quote == 0 && c == '>':
			return i
		}
	}
	return -1
}

func selfClosing(openTag []byte) bool {
	inner := bytes.TrimRight(openTag[:len(openTag)-1], " \t\r\n")
	return len(inner) > 0 && inner[len(inner)-1] == '/'
}

// tagName reads an element name from the start of b.
func tagName(b []byte) string {
	if len(b) == 0 || !isNameStart(b[0]) {
		return ""
	}
	i := 1
	for i < len(b) && isNameChar(b[i]) {
		i++
	}
	return string(b[:i])
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9') || c == ':' || c == '-' || c == '.'
}
