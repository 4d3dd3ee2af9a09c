// Package models contains data structures for the application's domain models.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostKind discriminates the four post variants.
type PostKind string

const (
	KindLost       PostKind = "lost"
	KindReported   PostKind = "reported"
	KindAdoption   PostKind = "adoption"
	KindClassified PostKind = "classified"
)

// PostKinds lists every kind in display order.
var PostKinds = []PostKind{KindLost, KindReported, KindAdoption, KindClassified}

// ErrUnknownKind is returned by ParseKind for anything outside PostKinds.
var ErrUnknownKind = errors.New("unknown post kind")

// ParseKind validates a kind coming from a URL or request body.
func ParseKind(s string) (PostKind, error) {
	k := PostKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindLost, KindReported, KindAdoption, KindClassified:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Table returns the table that stores rows of this kind.
func (k PostKind) Table() string {
	switch k {
	case KindLost:
		return "lost_posts"
	case KindReported:
		return "reported_posts"
	case KindAdoption:
		return "adoption_posts"
	case KindClassified:
		return "classifieds"
	default:
		panic(fmt.Sprintf("models: no table for kind %q", k))
	}
}

// Expires reports whether listings of this kind are bounded by expires_at.
func (k PostKind) Expires() bool {
	return k == KindLost || k == KindReported
}

// Status is the stored lifecycle value of a post.
type Status string

const (
	StatusActive   Status = "active"
	StatusResolved Status = "resolved"
	StatusInactive Status = "inactive"
)

// Post is implemented only by the four kind structs in this package.
type Post interface {
	Kind() PostKind
	Base() *PostBase
	isPost()
}

// PostBase holds the attributes shared by every kind.
type PostBase struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	UserID          *uint      `gorm:"index" json:"user_id,omitempty"`
	OwnerSecretHash *string    `gorm:"column:owner_secret_hash" json:"-"`
	Title           string     `gorm:"size:200;not null" json:"title"`
	Description     string     `gorm:"type:text" json:"description"`
	Species         Species    `gorm:"size:16;index" json:"species,omitempty"`
	Breed           string     `json:"breed,omitempty"`
	Colors          StringList `json:"colors"`
	LocationText    string     `json:"location_text"`
	LocationLat     *float64   `json:"location_lat,omitempty"`
	LocationLng     *float64   `json:"location_lng,omitempty"`
	Images          StringList `json:"images"`
	ContactWhatsApp *string    `gorm:"column:contact_whatsapp" json:"contact_whatsapp,omitempty"`
	ContactPhone    *string    `json:"contact_phone,omitempty"`
	ContactEmail    *string    `json:"contact_email,omitempty"`
	Status          Status     `gorm:"size:16;not null;default:active;index" json:"status"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Base returns the shared attributes.
func (b *PostBase) Base() *PostBase { return b }

func (*PostBase) isPost() {}

// ErrOwnershipMode is returned when a post carries both or neither ownership fields.
var ErrOwnershipMode = errors.New("post must have exactly one of user_id or owner_secret_hash")

// CheckOwnership enforces that exactly one ownership mode is set.
func (b *PostBase) CheckOwnership() error {
	hasUser := b.UserID != nil
	hasSecret := b.OwnerSecretHash != nil && *b.OwnerSecretHash != ""
	if hasUser == hasSecret {
		return ErrOwnershipMode
	}
	return nil
}

// BeforeCreate assigns the id and rejects rows that break the ownership rule.
func (b *PostBase) BeforeCreate(_ *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = StatusActive
	}
	return b.CheckOwnership()
}

// Contact is the subset of a post shown only to signed-in users.
type Contact struct {
	WhatsApp     *string `json:"whatsapp,omitempty"`
	WhatsAppLink string  `json:"whatsapp_link,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Email        *string `json:"email,omitempty"`
	StoreContact string  `json:"store_contact,omitempty"`
}

// LostPost is a pet missing from its owner.
type LostPost struct {
	PostBase
	LostAt    *time.Time `json:"lost_at,omitempty"`
	ExpiresAt time.Time  `gorm:"not null;index" json:"expires_at"`
}

func (LostPost) TableName() string { return KindLost.Table() }
func (*LostPost) Kind() PostKind   { return KindLost }

// ReportState describes what the reporter saw.
type ReportState string

const (
	ReportStateSeen    ReportState = "seen"
	ReportStateInjured ReportState = "injured"
	ReportStateOther   ReportState = "other"
)

// ParseReportState accepts the empty string as seen.
func ParseReportState(s string) (ReportState, error) {
	switch st := ReportState(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return ReportStateSeen, nil
	case ReportStateSeen, ReportStateInjured, ReportStateOther:
		return st, nil
	default:
		return "", fmt.Errorf("invalid state %q", s)
	}
}

// ReportedPost is an animal seen on the street by someone other than its owner.
type ReportedPost struct {
	PostBase
	State     ReportState `gorm:"size:16;not null;default:seen" json:"state"`
	ExpiresAt *time.Time  `gorm:"index" json:"expires_at,omitempty"`
}

func (ReportedPost) TableName() string { return KindReported.Table() }
func (*ReportedPost) Kind() PostKind   { return KindReported }

// AdoptionPost offers an animal for adoption.
type AdoptionPost struct {
	PostBase
	Age string `json:"age,omitempty"`
}

func (AdoptionPost) TableName() string { return KindAdoption.Table() }
func (*AdoptionPost) Kind() PostKind   { return KindAdoption }

// Category groups marketplace items.
type Category string

const (
	CategoryFood        Category = "food"
	CategoryToys        Category = "toys"
	CategoryAccessories Category = "accessories"
	CategoryMedicine    Category = "medicine"
	CategoryServices    Category = "services"
	CategoryOther       Category = "other"
)

// ParseCategory rejects empty and unknown categories.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryFood, CategoryToys, CategoryAccessories, CategoryMedicine, CategoryServices, CategoryOther:
		return c, nil
	default:
		return "", fmt.Errorf("invalid category %q", s)
	}
}

// Classified is a marketplace listing.
type Classified struct {
	PostBase
	Category     Category `gorm:"size:32;not null;index" json:"category"`
	Condition    string   `json:"condition,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	StoreContact string   `json:"store_contact,omitempty"`
}

func (Classified) TableName() string { return KindClassified.Table() }
func (*Classified) Kind() PostKind   { return KindClassified }

// NewPost returns an empty post of the given kind.
func NewPost(kind PostKind) Post {
	switch kind {
	case KindLost:
		return &LostPost{}
	case KindReported:
		return &ReportedPost{}
	case KindAdoption:
		return &AdoptionPost{}
	case KindClassified:
		return &Classified{}
	default:
		panic(fmt.Sprintf("models: unknown kind %q", kind))
	}
}

// ContactOf extracts the contact block of a post.
func ContactOf(p Post) Contact {
	b := p.Base()
	c := Contact{WhatsApp: b.ContactWhatsApp, Phone: b.ContactPhone, Email: b.ContactEmail}
	if b.ContactWhatsApp != nil && *b.ContactWhatsApp != "" {
		c.WhatsAppLink = WhatsAppLink(*b.ContactWhatsApp)
	}
	switch v := p.(type) {
	case *Classified:
		c.StoreContact = v.StoreContact
	case *LostPost, *ReportedPost, *AdoptionPost:
	}
	return c
}

// RedactContact clears every contact field and the author's account id,
// for anonymous viewers.
func RedactContact(p Post) {
	b := p.Base()
	b.ContactWhatsApp, b.ContactPhone, b.ContactEmail = nil, nil, nil
	b.UserID = nil
	switch v := p.(type) {
	case *Classified:
		v.StoreContact = ""
	case *LostPost, *ReportedPost, *AdoptionPost:
	}
}

// WhatsAppLink builds a wa.me deep link from a free-form phone number.
func WhatsAppLink(number string) string {
	var digits strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return "https://wa.me/" + digits.String()
}

// ExpiresAt returns the expiry of lost and reported posts, nil otherwise.
func ExpiresAt(p Post) *time.Time {
	switch v := p.(type) {
	case *LostPost:
		t := v.ExpiresAt
		return &t
	case *ReportedPost:
		return v.ExpiresAt
	case *AdoptionPost, *Classified:
		return nil
	default:
		return nil
	}
}

// TaggedPost carries the kind next to a post in mixed-kind listings.
type TaggedPost struct {
	Kind PostKind `json:"kind"`
	Post Post     `json:"post"`
}

// Tag wraps p with its kind.
func Tag(p Post) TaggedPost {
	return TaggedPost{Kind: p.Kind(), Post: p}
}
