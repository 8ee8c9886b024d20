package extract

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Destinations whose content is never document text.
var rtfSkipDestinations = map[string]bool{
	"fonttbl": true, "colortbl": true, "stylesheet": true, "info": true, "pict": true,
	"header": true, "footer": true, "headerl": true, "headerr": true, "footerl": true,
	"footerr": true, "listtable": true, "listoverridetable": true, "rsidtbl": true,
	"generator": true, "xmlnstbl": true, "themedata": true, "colorschememapping": true,
	"latentstyles": true, "datastore": true, "object": true, "filetbl": true,
}

func fromRTF(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return rtfToText(data), nil
}

type rtfGroup struct {
	skip bool
	uc   int
}

type rtfParser struct {
	src   []byte
	pos   int
	out   strings.Builder
	dec   *encoding.Decoder
	stack []rtfGroup
	cur   rtfGroup
	// skipChars counts fallback characters still to drop after a \uN escape.
	skipChars int
}

// rtfToText strips control words and decodes \'hh escapes with the document code page.
func rtfToText(src []byte) string {
	p := &rtfParser{src: src, cur: rtfGroup{uc: 1}, dec: charmap.Windows1251.NewDecoder()}
	p.run()
	return joinNonEmpty(strings.Split(p.out.String(), "\n"))
}

func (p *rtfParser) run() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case '{':
			p.stack = append(p.stack, p.cur)
			p.pos++
		case '}':
			if n := len(p.stack); n > 0 {
				p.cur = p.stack[n-1]
				p.stack = p.stack[:n-1]
			}
			p.pos++
		case '\\':
			p.control()
		case '\r', '\n':
			p.pos++
		default:
			p.pos++
			if p.skipChars > 0 {
				p.skipChars--
				continue
			}
			p.text(c)
		}
	}
}

func (p *rtfParser) control() {
	p.pos++ // backslash
	if p.pos >= len(p.src) {
		return
	}

	c := p.src[p.pos]
	if !isASCIILetter(c) {
		p.pos++
		p.symbol(c)
		return
	}

	start := p.pos
	for p.pos < len(p.src) && isASCIILetter(p.src[p.pos]) {
		p.pos++
	}
	word := string(p.src[start:p.pos])

	param, hasParam := 0, false
	numStart := p.pos
	if p.pos < len(p.src) && (p.src[p.pos] == '-' || isDigit(p.src[p.pos])) {
		p.pos++
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
		if n, err := strconv.Atoi(string(p.src[numStart:p.pos])); err == nil {
			param, hasParam = n, true
		}
	}
	if p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}

	p.word(word, param, hasParam)
}

func (p *rtfParser) symbol(c byte) {
	switch c {
	case '\\', '{', '}':
		if p.consumeFallback() {
			return
		}
		p.text(c)
	case '~':
		p.text(' ')
	case '_':
		p.text('-')
	case '*':
		p.cur.skip = true
	case '\'':
		if p.pos+2 > len(p.src) {
			p.pos = len(p.src)
			return
		}
		b, err := strconv.ParseUint(string(p.src[p.pos:p.pos+2]), 16, 8)
		p.pos += 2
		if err != nil || p.consumeFallback() {
			return
		}
		p.encoded(byte(b))
	case '\r', '\n':
		p.newline()
	}
}

func (p *rtfParser) word(word string, param int, hasParam bool) {
	if rtfSkipDestinations[word] {
		p.cur.skip = true
		return
	}

	switch word {
	case "par", "line", "row", "sect", "page":
		p.newline()
	case "tab", "cell":
		p.text('\t')
	case "emdash":
		p.unicode('—')
	case "endash":
		p.unicode('–')
	case "bullet":
		p.unicode('•')
	case "lquote", "rquote":
		p.unicode('\'')
	case "ldblquote", "rdblquote":
		p.unicode('"')
	case "uc":
		if hasParam && param >= 0 {
			p.cur.uc = param
		}
	case "u":
		if !hasParam {
			return
		}
		if param < 0 {
			param += 65536
		}
		p.unicode(rune(param))
		p.skipChars = p.cur.uc
	case "ansicpg":
		if hasParam {
			p.dec = codePage(param)
		}
	}
}

func (p *rtfParser) consumeFallback() bool {
	if p.skipChars > 0 {
		p.skipChars--
		return true
	}
	return false
}

// text copies a literal byte. Non-ASCII literals are taken to be UTF-8.
func (p *rtfParser) text(c byte) {
	if p.cur.skip {
		return
	}
	p.out.WriteByte(c)
}

// encoded decodes one \'hh byte with the document code page.
func (p *rtfParser) encoded(b byte) {
	if p.cur.skip {
		return
	}
	decoded, err := p.dec.Bytes([]byte{b})
	if err != nil {
		return
	}
	p.out.Write(decoded)
}

func (p *rtfParser) unicode(r rune) {
	if p.cur.skip {
		return
	}
	p.out.WriteRune(r)
}

func (p *rtfParser) newline() {
	if p.cur.skip {
		return
	}
	p.out.WriteByte('\n')
}

func codePage(cp int) *encoding.Decoder {
	switch cp {
	case 1252:
		return charmap.Windows1252.NewDecoder()
	case 1250:
		return charmap.Windows1250.NewDecoder()
	case 866:
		return charmap.CodePage866.NewDecoder()
	default:
		return charmap.Windows1251.NewDecoder()
	}
}

func isASCIILetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
