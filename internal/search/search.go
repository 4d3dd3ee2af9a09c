// Package search turns listing filters into database queries.
package search

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"huellas/internal/models"
)

// DefaultPageSize bounds a listing when no limit is configured.
const DefaultPageSize = 100

// Filters is what a listing caller asks for.
type Filters struct {
	Kind       models.PostKind
	SearchTerm string
	Species    models.Species
	Colors     []string
	Location   string
	Category   models.Category
	Limit      int
}

// Query is the composed, database-independent form of Filters.
type Query struct {
	Kind models.PostKind
	// Term and Location are lowercased and LIKE-escaped patterns, empty when unset.
	Term     string
	Location string
	Species  models.Species
	Category models.Category
	Status   models.Status
	// Colors are matched after the fetch, see MatchColors.
	Colors models.StringList
	// ExpiresAfter is set for kinds with expiry.
	ExpiresAfter *time.Time
	// NullNeverExpires treats a NULL expires_at as still listed.
	NullNeverExpires bool
	Limit            int
}

// Compose builds a Query. It performs no I/O.
func Compose(f Filters, now time.Time) Query {
	q := Query{
		Kind:     f.Kind,
		Term:     likePattern(f.SearchTerm),
		Location: likePattern(f.Location),
		Species:  f.Species,
		Status:   models.StoredStatus(f.Kind, models.StatusActive),
		Colors:   models.NormalizeStringSet(f.Colors),
		Limit:    f.Limit,
	}
	if len(q.Colors) == 0 {
		q.Colors = nil
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if f.Kind == models.KindClassified {
		q.Category = f.Category
	}
	if f.Kind.Expires() {
		t := now
		q.ExpiresAfter = &t
		q.NullNeverExpires = f.Kind == models.KindReported
	}
	return q
}

// Apply adds the query's predicates, ordering and limit to db.
func (q Query) Apply(db *gorm.DB) *gorm.DB {
	db = db.Where("status = ?", q.Status)
	if q.ExpiresAfter != nil {
		if q.NullNeverExpires {
			db = db.Where("(expires_at IS NULL OR expires_at > ?)", *q.ExpiresAfter)
		} else {
			db = db.Where("expires_at > ?", *q.ExpiresAfter)
		}
	}
	if q.Term != "" {
		db = db.Where(
			`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(location_text) LIKE ? ESCAPE '\' OR LOWER(breed) LIKE ? ESCAPE '\')`,
			q.Term, q.Term, q.Term, q.Term,
		)
	}
	if q.Species != "" {
		db = db.Where("species = ?", q.Species)
	}
	if q.Location != "" {
		db = db.Where(`LOWER(location_text) LIKE ? ESCAPE '\'`, q.Location)
	}
	if q.Category != "" {
		db = db.Where("category = ?", q.Category)
	}
	return db.Order("created_at DESC").Limit(q.Limit)
}

// MatchColors reports whether p has at least one of the requested colors.
// A query without colors matches everything.
func (q Query) MatchColors(p models.Post) bool {
	if len(q.Colors) == 0 {
		return true
	}
	have := p.Base().Colors
	for _, c := range q.Colors {
		if have.Contains(c) {
			return true
		}
	}
	return false
}

// FilterColors applies the color phase to a fetched page.
func FilterColors[P models.Post](q Query, posts []P) []P {
	if len(q.Colors) == 0 {
		return posts
	}
	out := posts[:0:0]
	for _, p := range posts {
		if q.MatchColors(p) {
			out = append(out, p)
		}
	}
	return out
}

// MatchesDashboard reports whether term is a substring of the title or id.
func MatchesDashboard(term string, p models.Post) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	b := p.Base()
	return strings.Contains(strings.ToLower(b.Title), term) || strings.Contains(strings.ToLower(b.ID), term)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	return "%" + likeEscaper.Replace(s) + "%"
}
