package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pion/sdp/v3"
)

// ErrEmptyDescription is the cause of a ValidationError for blank text.
var ErrEmptyDescription = errors.New("description text is empty")

// ValidationError reports edited text that cannot become a description.
type ValidationError struct {
	Kind Kind
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s text: %v", e.Kind, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Commit normalizes edited text and wraps it as a new description of kind.
func Commit(text string, kind Kind) (Description, error) {
	if !kind.Valid() {
		return Description{}, &ValidationError{Kind: kind, Err: fmt.Errorf("unknown description kind")}
	}
	if strings.TrimSpace(text) == "" {
		return Description{}, &ValidationError{Kind: kind, Err: ErrEmptyDescription}
	}
	return New(kind, Normalize(text)), nil
}

// Validate parses the body of d with the SDP grammar. It catches text the
// connection agent would reject before any agent is touched.
func Validate(d Description) error {
	var parsed sdp.SessionDescription
	if err := parsed.Unmarshal([]byte(d.body)); err != nil {
		return &ValidationError{Kind: d.kind, Err: err}
	}
	return nil
}

// Editor is the editable text region for one description kind. It starts
// disabled and is enabled once a description has been presented in it.
type Editor struct {
	kind    Kind
	text    string
	enabled bool
}

func NewEditor(kind Kind) *Editor {
	return &Editor{kind: kind}
}

// Present loads the body of d into the buffer and enables editing.
func (e *Editor) Present(d Description) string {
	e.text = d.Body()
	e.enabled = true
	return e.text
}

// Edit replaces the buffer. It has no effect while the editor is disabled.
func (e *Editor) Edit(text string) bool {
	if !e.enabled {
		return false
	}
	e.text = text
	return true
}

func (e *Editor) Text() string  { return e.text }
func (e *Editor) Enabled() bool { return e.enabled }
func (e *Editor) Kind() Kind    { return e.kind }

// Disable locks the region. The last text stays visible.
func (e *Editor) Disable() { e.enabled = false }

// Commit produces a normalized description from the current buffer.
func (e *Editor) Commit() (Description, error) {
	return Commit(e.text, e.kind)
}
