package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"huellas/internal/models"
	"huellas/internal/observability"
	"huellas/internal/ownership"
	"huellas/internal/search"
)

// PostRepository defines persistence operations for one post kind.
type PostRepository interface {
	Kind() models.PostKind
	Create(ctx context.Context, post models.Post) error
	ListActive(ctx context.Context, q search.Query) ([]models.Post, error)
	GetByID(ctx context.Context, id string) (models.Post, error)
	UpdateStatus(ctx context.Context, id string, to models.Status, proof ownership.Proof) (models.Post, error)
	ForceStatus(ctx context.Context, id string, to models.Status) (models.Post, error)
	Delete(ctx context.Context, id string, proof ownership.Proof) error
	ListByUser(ctx context.Context, userID uint) ([]models.Post, error)
	DeleteByUser(ctx context.Context, userID uint) (int64, error)
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// SuspensionChecker reports whether a post is in the suspension log.
type SuspensionChecker interface {
	IsSuspended(ctx context.Context, postID string, kind models.PostKind) (bool, error)
}

// row constrains P to the pointer of a post struct T.
type row[T any] interface {
	*T
	models.Post
}

type postRepository[T any, P row[T]] struct {
	db          *gorm.DB
	kind        models.PostKind
	suspensions SuspensionChecker
}

func newPostRepository[T any, P row[T]](db *gorm.DB, suspensions SuspensionChecker) *postRepository[T, P] {
	var zero T
	return &postRepository[T, P]{db: db, kind: P(&zero).Kind(), suspensions: suspensions}
}

func (r *postRepository[T, P]) Kind() models.PostKind { return r.kind }

func (r *postRepository[T, P]) table() string { return r.kind.Table() }

func (r *postRepository[T, P]) cast(post models.Post) (P, error) {
	p, ok := post.(P)
	if !ok {
		return nil, models.NewInternalError(fmt.Errorf("post of kind %s passed to %s repository", post.Kind(), r.kind))
	}
	return p, nil
}

func (r *postRepository[T, P]) Create(ctx context.Context, post models.Post) error {
	p, err := r.cast(post)
	if err != nil {
		return err
	}
	defer observability.TrackQuery("create", r.table())()

	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewValidationError("Post already exists")
		}
		return models.NewPersistenceError(err)
	}
	return nil
}

func (r *postRepository[T, P]) ListActive(ctx context.Context, q search.Query) ([]models.Post, error) {
	defer observability.TrackQuery("list_active", r.table())()

	var rows []T
	if err := q.Apply(readDB(r.db).WithContext(ctx).Model(new(T))).Find(&rows).Error; err != nil {
		return nil, models.NewPersistenceError(err)
	}

	page := make([]P, len(rows))
	for i := range rows {
		page[i] = P(&rows[i])
	}
	page = search.FilterColors(q, page)

	out := make([]models.Post, len(page))
	for i, p := range page {
		out[i] = p
	}
	return out, nil
}

func (r *postRepository[T, P]) find(ctx context.Context, db *gorm.DB, id string) (P, error) {
	var t T
	if err := db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, storageError(err, "Post", id)
	}
	return P(&t), nil
}

func (r *postRepository[T, P]) GetByID(ctx context.Context, id string) (models.Post, error) {
	defer observability.TrackQuery("get", r.table())()
	return r.find(ctx, readDB(r.db), id)
}

func (r *postRepository[T, P]) writeStatus(ctx context.Context, p P, to models.Status) error {
	stored := models.StoredStatus(r.kind, to)
	if err := r.db.WithContext(ctx).Model(p).Update("status", stored).Error; err != nil {
		return models.NewPersistenceError(err)
	}
	p.Base().Status = stored
	return nil
}

// UpdateStatus applies an owner transition after authorizing proof.
func (r *postRepository[T, P]) UpdateStatus(ctx context.Context, id string, to models.Status, proof ownership.Proof) (models.Post, error) {
	defer observability.TrackQuery("update_status", r.table())()

	p, err := r.find(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	if err := ownership.Authorize(proof, ownership.OwnerOf(p)); err != nil {
		observability.OwnershipRejections.WithLabelValues(string(r.kind), "status").Inc()
		return nil, err
	}
	from := p.Base().Status
	if err := models.ValidateTransition(models.ActorOwner, r.kind, from, to); err != nil {
		return nil, err
	}
	// a suspended post shares the stored value of a resolved one
	if to == models.StatusActive && from == models.StatusInactive && r.suspensions != nil {
		suspended, err := r.suspensions.IsSuspended(ctx, id, r.kind)
		if err != nil {
			return nil, err
		}
		if suspended {
			return nil, models.NewValidationError("This post was suspended by a moderator and cannot be reactivated")
		}
	}

	if err := r.writeStatus(ctx, p, to); err != nil {
		return nil, err
	}
	return p, nil
}

// ForceStatus applies a moderation transition without proof.
func (r *postRepository[T, P]) ForceStatus(ctx context.Context, id string, to models.Status) (models.Post, error) {
	defer observability.TrackQuery("force_status", r.table())()

	p, err := r.find(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	if err := models.ValidateTransition(models.ActorModerator, r.kind, p.Base().Status, to); err != nil {
		return nil, err
	}
	if err := r.writeStatus(ctx, p, to); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete hard-deletes the post after authorizing proof.
func (r *postRepository[T, P]) Delete(ctx context.Context, id string, proof ownership.Proof) error {
	defer observability.TrackQuery("delete", r.table())()

	p, err := r.find(ctx, r.db, id)
	if err != nil {
		return err
	}
	if err := ownership.Authorize(proof, ownership.OwnerOf(p)); err != nil {
		observability.OwnershipRejections.WithLabelValues(string(r.kind), "delete").Inc()
		return err
	}
	if err := r.db.WithContext(ctx).Delete(p).Error; err != nil {
		return models.NewPersistenceError(err)
	}
	return nil
}

func (r *postRepository[T, P]) ListByUser(ctx context.Context, userID uint) ([]models.Post, error) {
	defer observability.TrackQuery("list_by_user", r.table())()

	var rows []T
	if err := readDB(r.db).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, models.NewPersistenceError(err)
	}
	out := make([]models.Post, len(rows))
	for i := range rows {
		out[i] = P(&rows[i])
	}
	return out, nil
}

func (r *postRepository[T, P]) DeleteByUser(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(new(T))
	if res.Error != nil {
		return 0, models.NewPersistenceError(res.Error)
	}
	return res.RowsAffected, nil
}

// PurgeExpired deletes posts whose expiry is before the cutoff. Kinds
// without expiry are left alone.
func (r *postRepository[T, P]) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	if !r.kind.Expires() {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", before).
		Delete(new(T))
	if res.Error != nil {
		return 0, models.NewPersistenceError(res.Error)
	}
	return res.RowsAffected, nil
}

// Posts holds one repository per kind.
type Posts struct {
	repos map[models.PostKind]PostRepository
}

// NewPosts builds the per-kind repositories. suspensions may be nil.
func NewPosts(db *gorm.DB, suspensions SuspensionChecker) *Posts {
	return &Posts{
		repos: map[models.PostKind]PostRepository{
			models.KindLost:       newPostRepository[models.LostPost](db, suspensions),
			models.KindReported:   newPostRepository[models.ReportedPost](db, suspensions),
			models.KindAdoption:   newPostRepository[models.AdoptionPost](db, suspensions),
			models.KindClassified: newPostRepository[models.Classified](db, suspensions),
		},
	}
}

// For returns the repository for kind. It panics on a kind ParseKind would reject.
func (p *Posts) For(kind models.PostKind) PostRepository {
	repo, ok := p.repos[kind]
	if !ok {
		panic(fmt.Sprintf("repository: unknown kind %q", kind))
	}
	return repo
}
