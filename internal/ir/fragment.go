package ir

import (
	"fmt"
	"strings"
)

// Placeholder tokens written into fragment text.
const (
	PayloadPlaceholder = "{0}"
	CountPlaceholder   = "{1}"
)

// Fragment is a compiled SQL snippet that decodes one payload parameter
// into a typed rowset. It is immutable after NewFragment returns.
type Fragment struct {
	text      string
	payloadAt int
	countAt   int // -1 when the row-limit optimization is off
}

// NewFragment wraps compiled SQL text. payloadAt is the byte offset of the
// payload placeholder; countAt is the offset of the count placeholder or -1.
// Offsets are recorded by the compiler rather than searched for, so quoted
// identifiers that happen to contain a token do not confuse rendering.
func NewFragment(text string, payloadAt, countAt int) (*Fragment, error) {
	if !placeholderAt(text, payloadAt, PayloadPlaceholder) {
		return nil, fmt.Errorf("fragment has no %s placeholder at offset %d", PayloadPlaceholder, payloadAt)
	}
	if countAt >= 0 && !placeholderAt(text, countAt, CountPlaceholder) {
		return nil, fmt.Errorf("fragment has no %s placeholder at offset %d", CountPlaceholder, countAt)
	}
	if countAt < 0 {
		countAt = -1
	}
	return &Fragment{text: text, payloadAt: payloadAt, countAt: countAt}, nil
}

func placeholderAt(text string, at int, token string) bool {
	return at >= 0 && at+len(token) <= len(text) && text[at:at+len(token)] == token
}

// Text returns the fragment with its placeholders in place.
func (f *Fragment) Text() string {
	return f.text
}

// PayloadPosition returns the byte offset of the payload placeholder.
func (f *Fragment) PayloadPosition() int {
	return f.payloadAt
}

// HasCount reports whether the fragment expects an element-count parameter.
func (f *Fragment) HasCount() bool {
	return f.countAt >= 0
}

// Render substitutes parameter references for the placeholders, e.g.
// Render("@p1", "@p2"). countRef is ignored when HasCount is false.
func (f *Fragment) Render(payloadRef, countRef string) string {
	type splice struct {
		at  int
		ref string
	}
	splices := []splice{{f.payloadAt, payloadRef}}
	if f.countAt >= 0 {
		splices = append(splices, splice{f.countAt, countRef})
		if f.countAt < f.payloadAt {
			splices[0], splices[1] = splices[1], splices[0]
		}
	}

	var b strings.Builder
	b.Grow(len(f.text) + len(payloadRef) + len(countRef))
	last := 0
	for _, s := range splices {
		b.WriteString(f.text[last:s.at])
		b.WriteString(s.ref)
		last = s.at + 3
	}
	b.WriteString(f.text[last:])
	return b.String()
}

func (f *Fragment) String() string {
	return f.text
}
