package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"huellas/internal/models"
	"huellas/internal/search"
)

// DashboardTab selects a slice of the user's posts.
type DashboardTab string

const (
	TabAll      DashboardTab = "all"
	TabResolved DashboardTab = "resolved"
)

// ParseDashboardTab accepts "all", "resolved" or a post kind. Empty means all.
func ParseDashboardTab(s string) (DashboardTab, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", string(TabAll):
		return TabAll, nil
	case string(TabResolved):
		return TabResolved, nil
	}
	kind, err := models.ParseKind(s)
	if err != nil {
		return "", models.NewValidationError(fmt.Sprintf("Invalid tab %q", s))
	}
	return DashboardTab(kind), nil
}

// DashboardStats summarizes every post the user owns.
type DashboardStats struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Resolved  int `json:"resolved"`
	ThisMonth int `json:"this_month"`
}

// Dashboard is one tab of the owner's view plus per-tab counts.
type Dashboard struct {
	Tab    DashboardTab         `json:"tab"`
	Posts  []models.TaggedPost  `json:"posts"`
	Counts map[DashboardTab]int `json:"counts"`
	Stats  DashboardStats       `json:"stats"`
}

type DashboardService struct {
	posts PostStore
	now   func() time.Time
}

func NewDashboardService(posts PostStore) *DashboardService {
	return &DashboardService{posts: posts, now: time.Now}
}

// Mine fetches the user's posts of every kind concurrently, newest first.
func (s *DashboardService) Mine(ctx context.Context, userID uint) ([]models.Post, error) {
	if userID == 0 {
		return nil, models.NewUnauthorizedError("Sign in to see your posts")
	}

	perKind := make([][]models.Post, len(models.PostKinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range models.PostKinds {
		g.Go(func() error {
			posts, err := s.posts.For(kind).ListByUser(gctx, userID)
			if err != nil {
				return fmt.Errorf("list %s posts: %w", kind, err)
			}
			perKind[i] = posts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []models.Post
	for _, posts := range perKind {
		all = append(all, posts...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Base().CreatedAt.After(all[j].Base().CreatedAt)
	})
	return all, nil
}

func inTab(tab DashboardTab, p models.Post) bool {
	status := p.Base().Status
	resolved := models.IsResolvedBucket(p.Kind(), status)
	switch tab {
	case TabResolved:
		return resolved
	case TabAll:
		return !resolved && status != models.StatusInactive
	default:
		return string(p.Kind()) == string(tab) && !resolved && status != models.StatusInactive
	}
}

// Dashboard returns the posts of tab whose title or id contains term.
// Counts and stats ignore term.
func (s *DashboardService) Dashboard(ctx context.Context, userID uint, tab DashboardTab, term string) (*Dashboard, error) {
	all, err := s.Mine(ctx, userID)
	if err != nil {
		return nil, err
	}

	tabs := []DashboardTab{TabAll, TabResolved}
	for _, kind := range models.PostKinds {
		tabs = append(tabs, DashboardTab(kind))
	}

	out := &Dashboard{
		Tab:    tab,
		Posts:  []models.TaggedPost{},
		Counts: make(map[DashboardTab]int, len(tabs)),
		Stats:  dashboardStats(all, s.now()),
	}
	for _, p := range all {
		for _, t := range tabs {
			if inTab(t, p) {
				out.Counts[t]++
			}
		}
		if inTab(tab, p) && search.MatchesDashboard(term, p) {
			out.Posts = append(out.Posts, models.Tag(p))
		}
	}
	return out, nil
}

func dashboardStats(posts []models.Post, now time.Time) DashboardStats {
	stats := DashboardStats{Total: len(posts)}
	year, month, _ := now.Date()
	for _, p := range posts {
		b := p.Base()
		switch {
		case b.Status == models.StatusActive:
			stats.Active++
		case models.IsResolvedBucket(p.Kind(), b.Status):
			stats.Resolved++
		}
		y, m, _ := b.CreatedAt.In(now.Location()).Date()
		if y == year && m == month {
			stats.ThisMonth++
		}
	}
	return stats
}
