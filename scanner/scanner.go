package scanner

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Class and attribute markers of the MediaWiki change-list rendering.
const (
	classLine           = "mw-changeslist-line"
	classLineWatched    = "mw-changeslist-line-watched"
	classLineNotWatched = "mw-changeslist-line-not-watched"
	classDiffLink       = "mw-changeslist-diff"
	classUserLink       = "mw-userlink"
	classDiffBytes      = "mw-diff-bytes"
	attrLogAction       = "data-mw-logaction"
)

// Scan tokenizes a change-list fragment and folds the event stream through
// the state machine. It returns the entries in document order, or the first
// contract violation as a *ParseError or *MissingFieldError.
func Scan(fragment string) ([]Entry, error) {
	var m Machine
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, fmt.Errorf("scanner: tokenize: %w", err)
			}
			return m.Finish()
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if err := m.StartTag(tok.Attr); err != nil {
				return nil, err
			}
		case html.TextToken:
			if err := m.Text(string(z.Text())); err != nil {
				return nil, err
			}
		}
	}
}

// Machine is the change-list state machine. Feed it start-tag and text
// events in document order, then call Finish. The zero value is ready to
// use. A Machine is single-use and not safe for concurrent use.
type Machine struct {
	// pendingSeen holds the classification of the current line until the
	// line's diff link materialises an entry from it.
	pendingSeen Seen
	// skippingLine is set on log-action lines; markers are ignored until
	// the next line boundary.
	skippingLine bool
	// collectingDiff is set by a byte-delta marker; the next text event is
	// the current entry's diff string.
	collectingDiff bool

	entries []Entry
}

// StartTag advances the machine with one start-tag event.
func (m *Machine) StartTag(attrs []html.Attribute) error {
	// Line boundaries are handled even while skipping: they end the
	// skipped line.
	if hasClass(attrs, classLine) {
		switch {
		case attrPresent(attrs, attrLogAction):
			// Log action (move, deletion, ...) — not an edit, skip the line.
			m.skippingLine = true
			return nil
		case hasClass(attrs, classLineWatched):
			m.pendingSeen = SeenWatched
			m.skippingLine = false
		case hasClass(attrs, classLineNotWatched):
			m.pendingSeen = SeenNotWatched
			m.skippingLine = false
		default:
			return &ParseError{Reason: "line has no seen classification"}
		}
		return nil
	}
	if m.skippingLine {
		return nil
	}

	if hasClass(attrs, classDiffLink) {
		title, ok := attrValue(attrs, "title")
		if !ok || title == "" {
			return &MissingFieldError{Marker: "diff link", Attr: "title"}
		}
		href, ok := attrValue(attrs, "href")
		if !ok {
			return &MissingFieldError{Marker: "diff link", Attr: "href"}
		}
		if m.pendingSeen == SeenUnknown {
			return &ParseError{Reason: fmt.Sprintf("entry %q created without seen classification", title)}
		}
		m.entries = append(m.entries, Entry{
			PageTitle:  title,
			LinkTarget: href,
			Seen:       m.pendingSeen,
		})
		m.pendingSeen = SeenUnknown
		return nil
	}

	if hasClass(attrs, classUserLink) {
		if len(m.entries) == 0 {
			return &ParseError{Reason: "user link before any entry"}
		}
		cur := &m.entries[len(m.entries)-1]
		cur.User, _ = attrValue(attrs, "title")
		cur.UserLink, _ = attrValue(attrs, "href")
		return nil
	}

	if hasClass(attrs, classDiffBytes) {
		m.collectingDiff = true
	}
	return nil
}

// Text advances the machine with one text event. Text is ignored unless a
// byte-delta marker announced it.
func (m *Machine) Text(data string) error {
	if !m.collectingDiff {
		return nil
	}
	m.collectingDiff = false
	if len(m.entries) == 0 {
		return &ParseError{Reason: "diff text before any entry"}
	}
	m.entries[len(m.entries)-1].Diff = data
	return nil
}

// Finish ends the scan and returns the accumulated entries. A trailing
// line with no diff link, or a byte-delta marker with no following text,
// is not an error: fields beyond title, link and seen state are optional.
func (m *Machine) Finish() ([]Entry, error) {
	return m.entries, nil
}

// hasClass reports whether the class attribute contains name as a
// whitespace-separated token.
func hasClass(attrs []html.Attribute, name string) bool {
	for _, a := range attrs {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == name {
				return true
			}
		}
	}
	return false
}

// attrValue returns the value of the named attribute.
func attrValue(attrs []html.Attribute, name string) (string, bool) {
	for _, a := range attrs {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func attrPresent(attrs []html.Attribute, name string) bool {
	_, ok := attrValue(attrs, name)
	return ok
}
