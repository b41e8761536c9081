package pdfsource

import (
	"strconv"

	"github.com/local/pdfextract/internal/reader"
)

// matrix is a PDF affine transform [a b c d e f]:
//
//	x' = a*x + c*y + e
//	y' = b*x + d*y + f
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

// unitSquareBounds maps the XObject unit square through the transform and
// returns its axis-aligned bounding box in page space (y grows upward).
func (m matrix) unitSquareBounds() reader.Bounds {
	xs := [4]float64{m[4], m[0] + m[4], m[2] + m[4], m[0] + m[2] + m[4]}
	ys := [4]float64{m[5], m[1] + m[5], m[3] + m[5], m[1] + m[3] + m[5]}

	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for i := 1; i < 4; i++ {
		if xs[i] < minX {
			minX = xs[i]
		}
		if xs[i] > maxX {
			maxX = xs[i]
		}
		if ys[i] < minY {
			minY = ys[i]
		}
		if ys[i] > maxY {
			maxY = ys[i]
		}
	}
	return reader.Bounds{Top: maxY, Left: minX, Bottom: minY, Right: maxX}
}

// placement is one Do invocation of a named XObject together with the
// transform active at that point.
type placement struct {
	name string
	rect reader.Bounds
}

// scanPlacements walks a content stream tracking the graphics state stack
// (q, Q, cm) and records the effective transform of every Do operator.
// Only the operators relevant to placement geometry are interpreted; text
// and path operators merely consume their operands.
func scanPlacements(stream []byte) []placement {
	var (
		out      []placement
		ctm      = identity
		stack    []matrix
		operands []float64
		lastName string
	)

	s := scanner{data: stream}
	for {
		tok, ok := s.next()
		if !ok {
			break
		}
		switch tok.kind {
		case tokNumber:
			operands = append(operands, tok.num)
		case tokName:
			lastName = tok.str
		case tokOperator:
			switch tok.str {
			case "q":
				stack = append(stack, ctm)
			case "Q":
				if n := len(stack); n > 0 {
					ctm = stack[n-1]
					stack = stack[:n-1]
				}
			case "cm":
				if len(operands) >= 6 {
					o := operands[len(operands)-6:]
					ctm = matrix{o[0], o[1], o[2], o[3], o[4], o[5]}.mul(ctm)
				}
			case "Do":
				if lastName != "" {
					out = append(out, placement{name: lastName, rect: ctm.unitSquareBounds()})
				}
			case "BI":
				s.skipInlineImage()
			}
			operands = operands[:0]
			lastName = ""
		}
	}
	return out
}

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokName
	tokOperator
	tokOther
)

type token struct {
	kind tokenKind
	num  float64
	str  string
}

// scanner is a minimal content stream tokenizer. Strings, arrays, dicts and
// comments are consumed without interpretation so their contents cannot be
// mistaken for operators.
type scanner struct {
	data []byte
	pos  int
}

func (s *scanner) next() (token, bool) {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		switch {
		case isSpace(c):
			s.pos++
		case c == '%':
			s.skipToEOL()
		case c == '(':
			s.skipString()
			return token{kind: tokOther}, true
		case c == '<':
			s.skipAngle()
			return token{kind: tokOther}, true
		case c == '>':
			// Stray dict close, already consumed by skipAngle normally.
			s.pos++
		case c == '[' || c == ']' || c == '{' || c == '}':
			s.pos++
			return token{kind: tokOther}, true
		case c == '/':
			return s.readName(), true
		case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
			return s.readNumber(), true
		default:
			return s.readOperator(), true
		}
	}
	return token{}, false
}

func (s *scanner) skipToEOL() {
	for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
		s.pos++
	}
}

func (s *scanner) skipString() {
	s.pos++ // opening (
	depth := 1
	for s.pos < len(s.data) && depth > 0 {
		switch s.data[s.pos] {
		case '\\':
			s.pos++
		case '(':
			depth++
		case ')':
			depth--
		}
		s.pos++
	}
}

func (s *scanner) skipAngle() {
	s.pos++
	if s.pos < len(s.data) && s.data[s.pos] == '<' {
		// Dict open << : consume just the delimiter pair.
		s.pos++
		return
	}
	for s.pos < len(s.data) && s.data[s.pos] != '>' {
		s.pos++
	}
	if s.pos < len(s.data) {
		s.pos++
	}
}

func (s *scanner) readName() token {
	s.pos++ // leading /
	start := s.pos
	for s.pos < len(s.data) && isRegular(s.data[s.pos]) {
		s.pos++
	}
	return token{kind: tokName, str: string(s.data[start:s.pos])}
}

func (s *scanner) readNumber() token {
	start := s.pos
	s.pos++
	for s.pos < len(s.data) && (s.data[s.pos] == '.' || (s.data[s.pos] >= '0' && s.data[s.pos] <= '9')) {
		s.pos++
	}
	n, err := strconv.ParseFloat(string(s.data[start:s.pos]), 64)
	if err != nil {
		return token{kind: tokOther}
	}
	return token{kind: tokNumber, num: n}
}

func (s *scanner) readOperator() token {
	start := s.pos
	for s.pos < len(s.data) && isRegular(s.data[s.pos]) {
		s.pos++
	}
	if s.pos == start {
		// Unknown delimiter byte, step over it.
		s.pos++
		return token{kind: tokOther}
	}
	return token{kind: tokOperator, str: string(s.data[start:s.pos])}
}

// skipInlineImage consumes everything between BI and the closing EI,
// including the raw binary after ID.
func (s *scanner) skipInlineImage() {
	for s.pos+1 < len(s.data) {
		if s.data[s.pos] == 'E' && s.data[s.pos+1] == 'I' &&
			(s.pos == 0 || isSpace(s.data[s.pos-1])) &&
			(s.pos+2 >= len(s.data) || isSpace(s.data[s.pos+2]) || isDelim(s.data[s.pos+2])) {
			s.pos += 2
			return
		}
		s.pos++
	}
	s.pos = len(s.data)
}

func isSpace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(c byte) bool {
	return !isSpace(c) && !isDelim(c)
}
