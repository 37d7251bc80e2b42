// Package session holds session descriptions as immutable values and the
// text handling applied to them between creation and application: line-ending
// normalization, the editable text buffer, and strict validation.
package session

import "fmt"

// Kind is the role a description plays in the offer/answer exchange.
type Kind uint8

const (
	KindOffer Kind = iota + 1
	KindAnswer
)

func (k Kind) String() string {
	switch k {
	case KindOffer:
		return "offer"
	case KindAnswer:
		return "answer"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k == KindOffer || k == KindAnswer
}

// Description is an immutable offer or answer. Every edit produces a new
// value; nothing mutates one in place.
type Description struct {
	kind Kind
	body string
}

// New wraps body as a description of the given kind. The body is taken as-is;
// use Commit to obtain a normalized description from edited text.
func New(kind Kind, body string) Description {
	return Description{kind: kind, body: body}
}

func (d Description) Kind() Kind   { return d.kind }
func (d Description) Body() string { return d.body }

// IsZero reports whether d was never assigned.
func (d Description) IsZero() bool {
	return d.kind == 0 && d.body == ""
}
