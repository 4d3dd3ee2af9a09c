package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"huellas/internal/cache"
	"huellas/internal/events"
	"huellas/internal/featureflags"
	"huellas/internal/middleware"
	"huellas/internal/models"
	"huellas/internal/observability"
	"huellas/internal/ownership"
	"huellas/internal/repository"
	"huellas/internal/search"
	"huellas/internal/validation"
)

// PostStore resolves the repository for a kind.
type PostStore interface {
	For(kind models.PostKind) repository.PostRepository
}

// PostConfig holds the tunables of the post service.
type PostConfig struct {
	LostTTL     time.Duration
	ReportedTTL time.Duration
	PageSize    int
	CacheTTL    time.Duration
	BcryptCost  int
}

// DefaultPostConfig mirrors the configuration defaults.
func DefaultPostConfig() PostConfig {
	return PostConfig{
		LostTTL:     30 * 24 * time.Hour,
		ReportedTTL: 30 * 24 * time.Hour,
		PageSize:    search.DefaultPageSize,
		CacheTTL:    cache.DefaultListingTTL,
		BcryptCost:  ownership.DefaultCost,
	}
}

type PostService struct {
	posts      PostStore
	highlights repository.HighlightRepository
	uploads    *UploadService
	flags      *featureflags.Manager
	cache      *cache.Store
	events     *events.Publisher
	hasher     *ownership.Hasher
	cfg        PostConfig
	now        func() time.Time
}

// CreatePostInput is the union of the per-kind create fields. Fields that do
// not apply to Kind are ignored.
type CreatePostInput struct {
	Kind   models.PostKind
	UserID uint

	Title           string
	Description     string
	Species         string
	Breed           string
	Colors          []string
	LocationText    string
	LocationLat     *float64
	LocationLng     *float64
	Images          []string
	Uploads         []UploadInput
	ContactWhatsApp *string
	ContactPhone    *string
	ContactEmail    *string

	LostAt       *time.Time
	State        string
	Age          string
	Category     string
	Condition    string
	Price        *float64
	StoreContact string
}

// CreatePostResult carries the plaintext secret of an anonymous post. It is
// returned once and never stored.
type CreatePostResult struct {
	Post   models.Post `json:"post"`
	Secret string      `json:"owner_secret,omitempty"`
}

// HighlightedPost pairs a highlight with its post, nil when the post is gone.
type HighlightedPost struct {
	models.Highlight
	Post models.Post `json:"post"`
}

func NewPostService(
	posts PostStore,
	highlights repository.HighlightRepository,
	uploads *UploadService,
	flags *featureflags.Manager,
	store *cache.Store,
	publisher *events.Publisher,
	cfg PostConfig,
) *PostService {
	if publisher == nil {
		publisher = events.NewPublisher(nil)
	}
	return &PostService{
		posts:      posts,
		highlights: highlights,
		uploads:    uploads,
		flags:      flags,
		cache:      store,
		events:     publisher,
		hasher:     ownership.NewHasher(cfg.BcryptCost),
		cfg:        cfg,
		now:        time.Now,
	}
}

func optional(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

// build validates in and returns the unsaved post. It performs no I/O.
func (s *PostService) build(in CreatePostInput) (models.Post, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.LocationText = strings.TrimSpace(in.LocationText)

	if err := validation.ValidateTitle(in.Title); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateDescription(in.Description); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateCoordinates(in.LocationLat, in.LocationLng); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	species, err := models.ParseSpecies(in.Species)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	whatsapp, phone, email := optional(in.ContactWhatsApp), optional(in.ContactPhone), optional(in.ContactEmail)
	for _, n := range []*string{whatsapp, phone} {
		if n == nil {
			continue
		}
		if err := validation.ValidatePhone(*n); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}
	if email != nil {
		if err := validation.ValidateEmail(*email); err != nil {
			return nil, models.NewValidationError("contact_email: " + err.Error())
		}
	}

	base := models.PostBase{
		Title:           in.Title,
		Description:     strings.TrimSpace(in.Description),
		Species:         species,
		Breed:           strings.TrimSpace(in.Breed),
		Colors:          models.NormalizeStringSet(in.Colors),
		LocationText:    in.LocationText,
		LocationLat:     in.LocationLat,
		LocationLng:     in.LocationLng,
		Images:          models.NormalizeStringSet(in.Images),
		ContactWhatsApp: whatsapp,
		ContactPhone:    phone,
		ContactEmail:    email,
		Status:          models.StatusActive,
	}
	now := s.now()

	switch in.Kind {
	case models.KindLost:
		if base.LocationText == "" {
			return nil, models.NewValidationError("location_text is required")
		}
		return &models.LostPost{PostBase: base, LostAt: in.LostAt, ExpiresAt: now.Add(s.cfg.LostTTL)}, nil
	case models.KindReported:
		if base.LocationText == "" {
			return nil, models.NewValidationError("location_text is required")
		}
		state, err := models.ParseReportState(in.State)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		expires := now.Add(s.cfg.ReportedTTL)
		return &models.ReportedPost{PostBase: base, State: state, ExpiresAt: &expires}, nil
	case models.KindAdoption:
		return &models.AdoptionPost{PostBase: base, Age: strings.TrimSpace(in.Age)}, nil
	case models.KindClassified:
		category, err := models.ParseCategory(in.Category)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		if in.Price != nil && *in.Price < 0 {
			return nil, models.NewValidationError("price cannot be negative")
		}
		return &models.Classified{
			PostBase:     base,
			Category:     category,
			Condition:    strings.TrimSpace(in.Condition),
			Price:        in.Price,
			StoreContact: strings.TrimSpace(in.StoreContact),
		}, nil
	default:
		return nil, models.NewValidationError(fmt.Sprintf("invalid post type %q", in.Kind))
	}
}

// Create validates, assigns ownership, stores uploads and inserts the post.
// Anonymous callers get a freshly generated secret in the result.
func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*CreatePostResult, error) {
	post, err := s.build(in)
	if err != nil {
		return nil, err
	}
	if len(in.Uploads) > 0 && s.uploads == nil {
		return nil, models.NewValidationError("Image uploads are not available")
	}

	result := &CreatePostResult{Post: post}
	base := post.Base()
	ownershipMode := "session"
	if in.UserID != 0 {
		uid := in.UserID
		base.UserID = &uid
	} else {
		if !s.flags.On(featureflags.AnonymousPosting, 0) {
			return nil, models.NewUnauthorizedError("Sign in to publish a post")
		}
		secret, err := ownership.GenerateSecret()
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		hash, err := s.hasher.HashSecret(secret)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		base.OwnerSecretHash = &hash
		result.Secret = secret
		ownershipMode = "secret"
	}

	var stored []*StoredImage
	if len(in.Uploads) > 0 {
		stored, err = s.uploads.UploadAll(ctx, BucketPosts, in.Uploads)
		if err != nil {
			return nil, err
		}
		for _, img := range stored {
			base.Images = append(base.Images, img.URL)
		}
	}

	if err := s.posts.For(in.Kind).Create(ctx, post); err != nil {
		for _, img := range stored {
			middleware.Logger.WarnContext(ctx, "orphaned upload after failed insert",
				slog.String("kind", string(in.Kind)),
				slog.Any("paths", img.Paths),
			)
		}
		return nil, err
	}

	s.cache.BumpVersion(ctx, cache.ListingVersionKey(string(in.Kind)))
	observability.PostsCreated.WithLabelValues(string(in.Kind), ownershipMode).Inc()
	s.events.PostCreated(ctx, post)
	middleware.Logger.InfoContext(ctx, "post created",
		slog.String("kind", string(in.Kind)),
		slog.String("post_id", base.ID),
		slog.String("ownership", ownershipMode),
	)
	return result, nil
}

// listingFingerprint identifies a listing in the cache. Time is left out: the
// expiry cut is re-applied on every read.
func listingFingerprint(q search.Query) string {
	b, _ := json.Marshal(struct {
		Term, Location string
		Species        models.Species
		Category       models.Category
		Colors         models.StringList
		Limit          int
	}{q.Term, q.Location, q.Species, q.Category, q.Colors, q.Limit})
	return string(b)
}

// List returns the active posts of f.Kind. Anonymous viewers get posts
// without contact details.
func (s *PostService) List(ctx context.Context, f search.Filters, viewerID uint) ([]models.Post, error) {
	if f.Limit <= 0 {
		f.Limit = s.cfg.PageSize
	}
	now := s.now()
	q := search.Compose(f, now)
	repo := s.posts.For(f.Kind)

	var posts []models.Post
	if s.cache.Enabled() && s.flags.On(featureflags.ListingCache, viewerID) {
		version := s.cache.Version(ctx, cache.ListingVersionKey(string(f.Kind)))
		key := cache.ListingKey(string(f.Kind), version, listingFingerprint(q))

		var rows []json.RawMessage
		hit, err := s.cache.Aside(ctx, key, &rows, s.cfg.CacheTTL, func() error {
			var err error
			if posts, err = repo.ListActive(ctx, q); err != nil {
				return err
			}
			rows, err = encodePosts(posts)
			return err
		})
		if err != nil {
			return nil, err
		}
		if hit {
			observability.ListingCache.WithLabelValues("hit").Inc()
			if posts, err = decodePosts(f.Kind, rows); err != nil {
				return nil, models.NewInternalError(err)
			}
		} else {
			observability.ListingCache.WithLabelValues("miss").Inc()
		}
	} else {
		var err error
		if posts, err = repo.ListActive(ctx, q); err != nil {
			return nil, err
		}
	}

	out := posts[:0]
	for _, p := range posts {
		if exp := models.ExpiresAt(p); exp != nil && !exp.After(now) {
			continue
		}
		if viewerID == 0 {
			models.RedactContact(p)
		}
		out = append(out, p)
	}
	return out, nil
}

func encodePosts(posts []models.Post) ([]json.RawMessage, error) {
	rows := make([]json.RawMessage, len(posts))
	for i, p := range posts {
		b, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		rows[i] = b
	}
	return rows, nil
}

func decodePosts(kind models.PostKind, rows []json.RawMessage) ([]models.Post, error) {
	posts := make([]models.Post, len(rows))
	for i, raw := range rows {
		p := models.NewPost(kind)
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, err
		}
		posts[i] = p
	}
	return posts, nil
}

// Get returns one post. Contact fields are cleared for anonymous viewers.
func (s *PostService) Get(ctx context.Context, kind models.PostKind, id string, viewerID uint) (models.Post, error) {
	post, err := s.posts.For(kind).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if viewerID == 0 {
		models.RedactContact(post)
	}
	return post, nil
}

// ContactInfo returns the contact block of a post to a signed-in viewer.
func (s *PostService) ContactInfo(ctx context.Context, kind models.PostKind, id string, viewerID uint) (models.Contact, error) {
	if viewerID == 0 {
		return models.Contact{}, models.NewUnauthorizedError("Sign in to see contact information")
	}
	post, err := s.posts.For(kind).GetByID(ctx, id)
	if err != nil {
		return models.Contact{}, err
	}
	return models.ContactOf(post), nil
}

// ChangeStatus applies an owner transition.
func (s *PostService) ChangeStatus(ctx context.Context, kind models.PostKind, id string, to models.Status, proof ownership.Proof) (models.Post, error) {
	post, err := s.posts.For(kind).UpdateStatus(ctx, id, to, proof)
	if err != nil {
		return nil, err
	}
	s.cache.BumpVersion(ctx, cache.ListingVersionKey(string(kind)))
	observability.StatusChanges.WithLabelValues(string(kind), string(to)).Inc()
	s.events.PostStatusChanged(ctx, kind, id, to)
	return post, nil
}

// Delete hard-deletes a post after authorizing proof.
func (s *PostService) Delete(ctx context.Context, kind models.PostKind, id string, proof ownership.Proof) error {
	if err := s.posts.For(kind).Delete(ctx, id, proof); err != nil {
		return err
	}
	s.cache.BumpVersion(ctx, cache.ListingVersionKey(string(kind)))
	s.events.PostDeleted(ctx, kind, id)
	return nil
}

// ToggleHighlight saves or unsaves a post and reports the new state.
func (s *PostService) ToggleHighlight(ctx context.Context, userID uint, kind models.PostKind, id string) (bool, error) {
	if userID == 0 {
		return false, models.NewUnauthorizedError("Sign in to save posts")
	}
	if _, err := s.posts.For(kind).GetByID(ctx, id); err != nil {
		return false, err
	}
	return s.highlights.Toggle(ctx, userID, id, kind)
}

// ListHighlights returns the user's saved posts, newest first. Highlights of
// deleted posts are kept with a nil Post.
func (s *PostService) ListHighlights(ctx context.Context, userID uint) ([]HighlightedPost, error) {
	hs, err := s.highlights.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]HighlightedPost, 0, len(hs))
	for _, h := range hs {
		item := HighlightedPost{Highlight: h}
		post, err := s.posts.For(h.PostType).GetByID(ctx, h.PostID)
		switch {
		case err == nil:
			item.Post = post
		case models.IsCode(err, models.CodeNotFound):
		default:
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
