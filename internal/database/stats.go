package database

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"huellas/internal/models"
)

// PostTableStat is the row count of one post table, split by stored status.
type PostTableStat struct {
	Kind     models.PostKind
	Table    string
	Exists   bool
	Total    int64
	ByStatus map[models.Status]int64
}

// Statuses returns the status keys in a stable order.
func (s PostTableStat) Statuses() []models.Status {
	out := make([]models.Status, 0, len(s.ByStatus))
	for st := range s.ByStatus {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PostTableStats counts the rows of every post table. Missing tables are
// reported with Exists false rather than as an error.
func PostTableStats(ctx context.Context, db *gorm.DB) ([]PostTableStat, error) {
	out := make([]PostTableStat, 0, len(models.PostKinds))
	for _, kind := range models.PostKinds {
		model := models.NewPost(kind)
		stat := PostTableStat{Kind: kind, Table: kind.Table(), ByStatus: map[models.Status]int64{}}
		if !db.Migrator().HasTable(model) {
			out = append(out, stat)
			continue
		}
		stat.Exists = true

		var rows []struct {
			Status models.Status
			N      int64
		}
		if err := db.WithContext(ctx).Model(model).
			Select("status, count(*) AS n").
			Group("status").
			Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("count %s: %w", stat.Table, err)
		}
		for _, r := range rows {
			stat.ByStatus[r.Status] = r.N
			stat.Total += r.N
		}
		out = append(out, stat)
	}
	return out, nil
}
