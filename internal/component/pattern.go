package component

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// CheckPattern reports whether p works as a field validation pattern. The
// page script runs it as a JavaScript RegExp without flags, so syntax Go
// reads differently from JavaScript is rejected and lookarounds and
// backreferences are accepted. The remaining syntax is compiled with
// regexp after rewriting JavaScript-only constructs to equivalents Go can
// check.
func CheckPattern(p string) error {
	var b strings.Builder
	inClass := false
	for i := 0; i < len(p); i++ {
		ch := p[i]
		switch {
		case ch == '\\':
			if i+1 >= len(p) {
				return errors.New("pattern ends with a backslash")
			}
			i++
			n, err := writeEscape(&b, p, i, inClass)
			if err != nil {
				return err
			}
			i += n
		case inClass:
			if ch == '[' && i+1 < len(p) && (p[i+1] == ':' || p[i+1] == '=' || p[i+1] == '.') {
				return errors.New("POSIX bracket expressions like [:alpha:] are not supported")
			}
			if ch == '[' {
				b.WriteString(`\[`)
				continue
			}
			if ch == ']' {
				inClass = false
			}
			b.WriteByte(ch)
		case ch == '[':
			// [] matches nothing and [^] matches anything.
			rest := p[i+1:]
			switch {
			case strings.HasPrefix(rest, "]"):
				b.WriteString(`[^\x00-\x{10FFFF}]`)
				i++
			case strings.HasPrefix(rest, "^]"):
				b.WriteString(`[\x00-\x{10FFFF}]`)
				i += 2
			default:
				inClass = true
				b.WriteByte(ch)
				if strings.HasPrefix(rest, "^") {
					b.WriteByte('^')
					i++
				}
			}
		case ch == '(' && strings.HasPrefix(p[i+1:], "?"):
			rest := p[i+2:]
			switch {
			case strings.HasPrefix(rest, ":"), strings.HasPrefix(rest, "="), strings.HasPrefix(rest, "!"):
				b.WriteString("(?:")
				i += 2
			case strings.HasPrefix(rest, "<="), strings.HasPrefix(rest, "<!"):
				b.WriteString("(?:")
				i += 3
			case strings.HasPrefix(rest, "<"):
				b.WriteString("(?<")
				i += 2
			case rest == "":
				return errors.New("pattern ends inside a group")
			default:
				return fmt.Errorf("group syntax (?%c is not supported", rest[0])
			}
		default:
			b.WriteByte(ch)
		}
	}
	if _, err := regexp.Compile(b.String()); err != nil {
		return err
	}
	return nil
}

// writeEscape writes the Go form of the escape whose letter is p[i] and
// returns how many further bytes it consumed.
func writeEscape(b *strings.Builder, p string, i int, inClass bool) (int, error) {
	e := p[i]
	switch {
	case strings.IndexByte("AzZQECpP", e) >= 0:
		return 0, fmt.Errorf(`escape \%c is not supported`, e)
	case e == 'x':
		if hexRun(p[i+1:]) >= 2 {
			b.WriteString(`\x` + p[i+1:i+3])
			return 2, nil
		}
		if strings.HasPrefix(p[i+1:], "{") {
			return 0, errors.New(`escape \x{...} is not supported`)
		}
		b.WriteByte('x')
	case e == 'u':
		if hexRun(p[i+1:]) >= 4 {
			b.WriteString(`\x{` + p[i+1:i+5] + `}`)
			return 4, nil
		}
		b.WriteByte('u')
	case e == 'c':
		if i+1 < len(p) && isLetter(p[i+1]) {
			fmt.Fprintf(b, `\x{%x}`, p[i+1]%32)
			return 1, nil
		}
		b.WriteString(`\\c`)
	case e == 'k' && strings.HasPrefix(p[i+1:], "<"):
		end := strings.IndexByte(p[i:], '>')
		if end < 0 {
			return 0, errors.New(`unterminated \k<name> backreference`)
		}
		b.WriteString("(?:)")
		return end, nil
	case e == '0' && !isDigit(peek(p, i)):
		b.WriteString(`\x00`)
	case isDigit(e):
		// Backreference outside a class, legacy octal inside one.
		n := 0
		for isDigit(peek(p, i+n)) {
			n++
		}
		if inClass {
			b.WriteString(`\x00`)
		} else {
			b.WriteString("(?:)")
		}
		return n, nil
	case e == 'b' && inClass:
		b.WriteString(`\x08`)
	case strings.IndexByte("dDwWsSfnrtv", e) >= 0, (e == 'b' || e == 'B') && !inClass:
		b.WriteByte('\\')
		b.WriteByte(e)
	case isLetter(e) || e >= 0x80:
		// Any other escaped letter matches itself.
		b.WriteByte(e)
	default:
		b.WriteByte('\\')
		b.WriteByte(e)
	}
	return 0, nil
}

func peek(p string, i int) byte {
	if i+1 < len(p) {
		return p[i+1]
	}
	return 0
}

func hexRun(s string) int {
	n := 0
	for n < len(s) && strings.IndexByte("0123456789abcdefABCDEF", s[n]) >= 0 {
		n++
	}
	return n
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
