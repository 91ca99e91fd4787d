package script

import "strings"

// kwPrefix marks keywords after rewriting: :right becomes "__kw_right".
const kwPrefix = "__kw_"

// rewriteSource adapts console input to zygomys syntax:
//
//   - :keyword becomes the string "__kw_keyword", so builtins can tell
//     keywords from plain strings without registering symbols.
//   - kebab-case identifiers become snake_case (clear-selection ->
//     clear_selection); zygomys reads a bare hyphen as subtraction.
//   - ; comments become // comments.
//
// String literals are copied untouched.
func rewriteSource(src string) string {
	r := &rewriter{src: src}
	r.out.Grow(len(src) + len(src)/4)
	for r.i < len(r.src) {
		switch c := r.src[r.i]; {
		case c == '"':
			r.quoted('"', true)
		case c == '`':
			r.quoted('`', false)
		case c == ';':
			r.comment()
		case c == ':' && r.peek(1) == '=':
			r.out.WriteString(":=")
			r.i += 2
		case c == ':' && isLetter(r.peek(1)):
			r.keyword()
		case c == '-' && r.i > 0 && isIdentChar(r.src[r.i-1]) && isLetter(r.peek(1)):
			r.out.WriteByte('_')
			r.i++
		default:
			r.out.WriteByte(c)
			r.i++
		}
	}
	return r.out.String()
}

type rewriter struct {
	src string
	i   int
	out strings.Builder
}

func (r *rewriter) peek(n int) byte {
	if r.i+n < len(r.src) {
		return r.src[r.i+n]
	}
	return 0
}

func (r *rewriter) quoted(q byte, escapes bool) {
	start := r.i
	r.i++
	for r.i < len(r.src) && r.src[r.i] != q {
		if escapes && r.src[r.i] == '\\' {
			r.i++
		}
		r.i++
	}
	if r.i < len(r.src) {
		r.i++
	}
	if r.i > len(r.src) {
		r.i = len(r.src)
	}
	r.out.WriteString(r.src[start:r.i])
}

func (r *rewriter) comment() {
	r.out.WriteString("//")
	for r.i < len(r.src) && r.src[r.i] == ';' {
		r.i++
	}
	end := strings.IndexByte(r.src[r.i:], '\n')
	if end < 0 {
		end = len(r.src) - r.i
	}
	r.out.WriteString(r.src[r.i : r.i+end])
	r.i += end
}

func (r *rewriter) keyword() {
	j := r.i + 1
	for j < len(r.src) && isKeywordChar(r.src[j]) {
		j++
	}
	r.out.WriteByte('"')
	r.out.WriteString(kwPrefix)
	r.out.WriteString(r.src[r.i+1 : j])
	r.out.WriteByte('"')
	r.i = j
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isKeywordChar(c byte) bool {
	return isIdentChar(c) || c == '-'
}
