package seed

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"gorm.io/gorm"

	"huellas/internal/catalog"
	"huellas/internal/models"
	"huellas/internal/service"
)

// Distribution weights how seeded posts are split between kinds.
type Distribution map[models.PostKind]int

// DefaultDistribution leans towards lost and reported animals.
var DefaultDistribution = Distribution{
	models.KindLost:       4,
	models.KindReported:   3,
	models.KindAdoption:   2,
	models.KindClassified: 1,
}

// Options configuration for the seeder
type Options struct {
	Users int
	Posts int
	Vets  int
	Clean bool
	// AnonymousPct is the share of posts published without an account, 0-100.
	AnonymousPct int
	MaxDays      int
	// Seed makes runs reproducible. Zero picks a random seed.
	Seed         int64
	SkipBcrypt   bool
	TTL          time.Duration
	Distribution Distribution
	Catalog      *catalog.Catalog
}

func (o Options) ttl() time.Duration {
	if o.TTL > 0 {
		return o.TTL
	}
	return service.DefaultPostConfig().LostTTL
}

// Summary reports what a seeding run created.
type Summary struct {
	Users int
	Posts map[models.PostKind]int
	Vets  int
	// Secrets maps anonymous post ids to their plaintext owner secret.
	Secrets map[string]string
}

// Seed populates the database with demo data
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	log.Printf("Seeding %d users, %d posts and %d veterinarians", opts.Users, opts.Posts, opts.Vets)

	if opts.Clean {
		if err := clearData(ctx, db); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
	}

	f := NewFactory(db, opts)
	summary := &Summary{Posts: make(map[models.PostKind]int), Secrets: make(map[string]string)}

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		u, err := f.CreateUser(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, u)
	}
	summary.Users = len(users)

	dist := opts.Distribution
	if len(dist) == 0 {
		dist = DefaultDistribution
	}
	counts := computeCounts(opts.Posts, dist)
	for _, kind := range models.PostKinds {
		for i := 0; i < counts[kind]; i++ {
			var owner *models.User
			if len(users) > 0 && f.faker.Number(1, 100) > opts.AnonymousPct {
				owner = users[f.faker.Number(0, len(users)-1)]
			}
			post, secret, err := f.CreatePost(ctx, kind, owner)
			if err != nil {
				return nil, fmt.Errorf("failed to create %s post: %w", kind, err)
			}
			if secret != "" {
				summary.Secrets[post.Base().ID] = secret
			}
			summary.Posts[kind]++
		}
	}

	for i := 0; i < opts.Vets; i++ {
		if _, err := f.CreateVeterinarian(ctx); err != nil {
			return nil, fmt.Errorf("failed to create veterinarian: %w", err)
		}
		summary.Vets++
	}

	log.Printf("Seeding completed: %d users, %v posts, %d veterinarians", summary.Users, summary.Posts, summary.Vets)
	return summary, nil
}

// computeCounts splits total across kinds by weight using the largest
// remainder method. Ties go to the kind listed first in models.PostKinds.
func computeCounts(total int, d Distribution) map[models.PostKind]int {
	counts := make(map[models.PostKind]int, len(models.PostKinds))
	sum := 0
	for _, k := range models.PostKinds {
		if d[k] > 0 {
			sum += d[k]
		}
	}
	if total <= 0 || sum == 0 {
		return counts
	}

	type share struct {
		kind models.PostKind
		rem  int
		pos  int
	}
	shares := make([]share, 0, len(models.PostKinds))
	assigned := 0
	for i, k := range models.PostKinds {
		w := d[k]
		if w <= 0 {
			continue
		}
		counts[k] = total * w / sum
		assigned += counts[k]
		shares = append(shares, share{kind: k, rem: total * w % sum, pos: i})
	}
	sort.SliceStable(shares, func(i, j int) bool {
		if shares[i].rem != shares[j].rem {
			return shares[i].rem > shares[j].rem
		}
		return shares[i].pos < shares[j].pos
	})
	for i := 0; assigned < total; i++ {
		counts[shares[i%len(shares)].kind]++
		assigned++
	}
	return counts
}

// clearData removes seeded rows children first so foreign keys hold.
func clearData(ctx context.Context, db *gorm.DB) error {
	log.Println("Clearing existing data...")
	tables := []interface{}{
		&models.Highlight{},
		&models.Report{},
		&models.SuspendedPostLog{},
		&models.LostPost{},
		&models.ReportedPost{},
		&models.AdoptionPost{},
		&models.Classified{},
		&models.Veterinarian{},
		&models.Profile{},
		&models.User{},
	}
	tx := db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range tables {
		if err := tx.Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}
