// Package scanner turns a rendered change-list fragment into structured
// watchlist entries.
//
// The fragment is one rendering of a MediaWiki watchlist: a sequence of line
// elements carrying structural class annotations. Scan makes a single forward
// pass over the tag/text event stream — no backtracking, no random access —
// and emits entries in document order. Lines describing log actions (moves,
// deletions) produce no entry. The scanner is fail-fast: the first line that
// violates the rendering contract aborts the whole fragment.
package scanner

// Seen classifies whether the user has already viewed the latest change to
// an entry's page.
type Seen int

const (
	// SeenUnknown is the zero value; entries are never emitted with it.
	SeenUnknown Seen = iota
	// SeenWatched means no new changes since the last view.
	SeenWatched
	// SeenNotWatched means the page has unseen changes.
	SeenNotWatched
)

func (s Seen) String() string {
	switch s {
	case SeenWatched:
		return "watched"
	case SeenNotWatched:
		return "not-watched"
	default:
		return "unknown"
	}
}

// Entry is one edit row of the change list.
type Entry struct {
	// PageTitle is the watched page's title. Never empty.
	PageTitle string
	// LinkTarget is the href of the row's diff link, relative to the wiki base.
	LinkTarget string
	// User and UserLink identify the edit's author. Empty when the row
	// carried no user link.
	User     string
	UserLink string
	// Diff is the raw byte-delta text, e.g. "+120". Empty when the row
	// carried no byte-delta marker.
	Diff string
	// Seen is always SeenWatched or SeenNotWatched on emitted entries.
	Seen Seen
}
