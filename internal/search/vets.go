package search

import "gorm.io/gorm"

// VetQuery filters the veterinarian directory.
type VetQuery struct {
	Term     string
	Province string
}

// ComposeVets builds a VetQuery. An empty province disables the province match.
func ComposeVets(term, province string) VetQuery {
	return VetQuery{Term: likePattern(term), Province: province}
}

// Apply adds the directory predicates to db.
func (q VetQuery) Apply(db *gorm.DB) *gorm.DB {
	db = db.Where("status = ?", "active")
	if q.Term != "" {
		db = db.Where(
			`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(address) LIKE ? ESCAPE '\')`,
			q.Term, q.Term, q.Term,
		)
	}
	if q.Province != "" {
		db = db.Where("province = ?", q.Province)
	}
	return db.Order("name ASC")
}
