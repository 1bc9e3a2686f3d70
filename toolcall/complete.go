package toolcall

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// Completion is a truncated JSON document closed so that it parses.
type Completion struct {
	JSON string
	// Open names the top-level field whose string value was cut off, if any.
	Open string
}

var numberRE = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

type frameState int

const (
	expectKeyOrEnd frameState = iota
	expectKey
	expectColon
	expectValue
	expectValueOrEnd
	expectCommaOrEnd
)

type frame struct {
	kind  byte
	state frameState
	key   string
}

// Complete closes a JSON document that was cut off mid-stream. Open string
// values are closed in place, dangling escapes are dropped, and anything
// that cannot be closed validly (a key without a value, a trailing comma,
// a partial literal) is cut back to the last complete value. It reports
// false when no prefix of partial forms a value.
func Complete(partial string) (Completion, bool) {
	p := &completer{s: partial, safe: -1}
	if c, ok := p.run(); ok {
		return c, gjson.Valid(c.JSON)
	}
	if p.safe < 0 {
		return Completion{}, false
	}
	doc := partial[:p.safe] + p.safeClose
	return Completion{JSON: doc}, gjson.Valid(doc)
}

type completer struct {
	s         string
	stack     []frame
	topDone   bool
	safe      int
	safeClose string
}

// run scans the whole input. It returns ok only when the input can be
// completed at its very end; otherwise the caller falls back to safe.
func (p *completer) run() (Completion, bool) {
	s := p.s
	i := 0
	for i < len(s) {
		c := s[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			i++
			continue
		}
		if p.topDone && len(p.stack) == 0 {
			return Completion{}, false
		}
		f := p.top()
		switch c {
		case '{', '[':
			if !p.valueExpected(f) {
				return Completion{}, false
			}
			st := expectKeyOrEnd
			if c == '[' {
				st = expectValueOrEnd
			}
			p.stack = append(p.stack, frame{kind: c, state: st})
			i++
			p.markSafe(i)
		case '}', ']':
			if f == nil || !closes(f, c) {
				return Completion{}, false
			}
			p.stack = p.stack[:len(p.stack)-1]
			i++
			p.valueDone()
			p.markSafe(i)
		case ',':
			if f == nil || f.state != expectCommaOrEnd {
				return Completion{}, false
			}
			if f.kind == '{' {
				f.state = expectKey
			} else {
				f.state = expectValue
			}
			i++
		case ':':
			if f == nil || f.kind != '{' || f.state != expectColon {
				return Completion{}, false
			}
			f.state = expectValue
			i++
		case '"':
			isKey := f != nil && f.kind == '{' && (f.state == expectKeyOrEnd || f.state == expectKey)
			if !isKey && !p.valueExpected(f) {
				return Completion{}, false
			}
			end, escStart := scanString(s, i+1)
			if end < 0 {
				if isKey {
					return Completion{}, false
				}
				cut := len(s)
				if escStart >= 0 {
					cut = escStart
				}
				open := ""
				if len(p.stack) == 1 && f.kind == '{' {
					open = f.key
				}
				return Completion{JSON: s[:cut] + `"` + p.closers(), Open: open}, true
			}
			if isKey {
				f.key = gjson.Parse(s[i : end+1]).String()
				f.state = expectColon
			} else {
				p.valueDone()
			}
			i = end + 1
			if !isKey {
				p.markSafe(i)
			}
		default:
			if !p.valueExpected(f) {
				return Completion{}, false
			}
			j := i
			for j < len(s) && isScalarByte(s[j]) {
				j++
			}
			if j == i || !validScalar(s[i:j]) {
				return Completion{}, false
			}
			i = j
			p.valueDone()
			p.markSafe(i)
		}
	}

	if len(p.stack) == 0 {
		if !p.topDone {
			return Completion{}, false
		}
		return Completion{JSON: s}, true
	}
	switch p.top().state {
	case expectKeyOrEnd, expectValueOrEnd, expectCommaOrEnd:
		return Completion{JSON: s + p.closers()}, true
	default:
		return Completion{}, false
	}
}

func (p *completer) top() *frame {
	if len(p.stack) == 0 {
		return nil
	}
	return &p.stack[len(p.stack)-1]
}

func (p *completer) valueExpected(f *frame) bool {
	if f == nil {
		return !p.topDone
	}
	if f.kind == '{' {
		return f.state == expectValue
	}
	return f.state == expectValue || f.state == expectValueOrEnd
}

func (p *completer) valueDone() {
	if f := p.top(); f != nil {
		f.state = expectCommaOrEnd
		return
	}
	p.topDone = true
}

func (p *completer) markSafe(i int) {
	p.safe = i
	p.safeClose = p.closers()
}

func (p *completer) closers() string {
	var b strings.Builder
	for i := len(p.stack) - 1; i >= 0; i-- {
		if p.stack[i].kind == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

func closes(f *frame, c byte) bool {
	switch {
	case f.kind == '{' && c == '}':
		return f.state == expectKeyOrEnd || f.state == expectCommaOrEnd
	case f.kind == '[' && c == ']':
		return f.state == expectValueOrEnd || f.state == expectCommaOrEnd
	default:
		return false
	}
}

// scanString returns the index of the closing quote of the string whose
// body starts at i, or -1 when the input ends first. escStart is the index
// of an escape sequence cut off by the end of input, or -1.
func scanString(s string, i int) (end, escStart int) {
	for i < len(s) {
		switch s[i] {
		case '\\':
			if i+1 >= len(s) {
				return -1, i
			}
			if s[i+1] == 'u' {
				if i+6 > len(s) {
					return -1, i
				}
				i += 6
				continue
			}
			i += 2
		case '"':
			return i, -1
		default:
			i++
		}
	}
	return -1, -1
}

func isScalarByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-' || c == '+' || c == '.' || c == 'E'
}

func validScalar(tok string) bool {
	switch tok {
	case "true", "false", "null":
		return true
	}
	return numberRE.MatchString(tok)
}
