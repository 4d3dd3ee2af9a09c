package search

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"huellas/internal/models"
	"huellas/internal/testutil"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func TestCompose(t *testing.T) {
	tests := []struct {
		name string
		in   Filters
		want Query
	}{
		{
			name: "lost defaults",
			in:   Filters{Kind: models.KindLost},
			want: Query{Kind: models.KindLost, Status: models.StatusActive, ExpiresAfter: &now, Limit: DefaultPageSize},
		},
		{
			name: "reported keeps null expiry",
			in:   Filters{Kind: models.KindReported, Limit: 20},
			want: Query{Kind: models.KindReported, Status: models.StatusActive, ExpiresAfter: &now, NullNeverExpires: true, Limit: 20},
		},
		{
			name: "adoption has no expiry",
			in:   Filters{Kind: models.KindAdoption, SearchTerm: "  Labrador ", Species: models.SpeciesDog},
			want: Query{Kind: models.KindAdoption, Term: "%labrador%", Species: models.SpeciesDog, Status: models.StatusActive, Limit: DefaultPageSize},
		},
		{
			name: "category only for classifieds",
			in:   Filters{Kind: models.KindAdoption, Category: models.CategoryFood},
			want: Query{Kind: models.KindAdoption, Status: models.StatusActive, Limit: DefaultPageSize},
		},
		{
			name: "classified category and escaped location",
			in:   Filters{Kind: models.KindClassified, Category: models.CategoryToys, Location: "50%_off"},
			want: Query{Kind: models.KindClassified, Location: `%50\%\_off%`, Category: models.CategoryToys, Status: models.StatusActive, Limit: DefaultPageSize},
		},
		{
			name: "colors deduped",
			in:   Filters{Kind: models.KindAdoption, Colors: []string{"Negro", " negro", "", "Blanco"}},
			want: Query{Kind: models.KindAdoption, Status: models.StatusActive, Colors: models.StringList{"Negro", "Blanco"}, Limit: DefaultPageSize},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compose(tt.in, now)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Compose() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComposeIsPure(t *testing.T) {
	f := Filters{Kind: models.KindLost, SearchTerm: "gato", Colors: []string{"Gris"}}
	assert.True(t, cmp.Equal(Compose(f, now), Compose(f, now)))
}

func TestMatchColors(t *testing.T) {
	p := &models.AdoptionPost{PostBase: models.PostBase{Colors: models.StringList{"Negro", "Blanco"}}}

	assert.True(t, Compose(Filters{Kind: models.KindAdoption}, now).MatchColors(p))
	assert.True(t, Compose(Filters{Kind: models.KindAdoption, Colors: []string{"blanco"}}, now).MatchColors(p))
	assert.False(t, Compose(Filters{Kind: models.KindAdoption, Colors: []string{"Gris"}}, now).MatchColors(p))

	q := Compose(Filters{Kind: models.KindAdoption, Colors: []string{"Gris", "Negro"}}, now)
	posts := []*models.AdoptionPost{p, {PostBase: models.PostBase{Colors: models.StringList{"Gris"}}}, {}}
	assert.Len(t, FilterColors(q, posts), 2)
}

func TestMatchesDashboard(t *testing.T) {
	p := &models.LostPost{PostBase: models.PostBase{ID: "3f2a-beef", Title: "Perdido Toby"}}
	assert.True(t, MatchesDashboard("", p))
	assert.True(t, MatchesDashboard("toby", p))
	assert.True(t, MatchesDashboard("BEEF", p))
	assert.False(t, MatchesDashboard("luna", p))
}

func seedLost(t *testing.T, db *gorm.DB, posts ...*models.LostPost) {
	t.Helper()
	for _, p := range posts {
		require.NoError(t, db.Create(p).Error)
	}
}

func TestApply_LostListing(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	older := testutil.LostPost(1, "Toby perdido", now.Add(-48*time.Hour))
	older.Breed = "Labrador"
	older.Species = models.SpeciesDog
	newer := testutil.LostPost(1, "Gata Luna", now.Add(-time.Hour))
	newer.Species = models.SpeciesCat
	newer.Description = "Tiene collar rojo"
	expired := testutil.LostPost(1, "Viejo", now.Add(-40*24*time.Hour))
	resolved := testutil.LostPost(1, "Encontrado", now.Add(-2*time.Hour))
	resolved.Status = models.StatusResolved
	literal := testutil.LostPost(1, "100% fiel", now.Add(-3*time.Hour))
	literal.LocationText = "Rosario"
	seedLost(t, db, older, newer, expired, resolved, literal)

	list := func(f Filters) []string {
		t.Helper()
		f.Kind = models.KindLost
		var rows []models.LostPost
		require.NoError(t, Compose(f, now).Apply(db.Model(&models.LostPost{})).Find(&rows).Error)
		titles := make([]string, len(rows))
		for i, r := range rows {
			titles[i] = r.Title
		}
		return titles
	}

	assert.Equal(t, []string{"Gata Luna", "100% fiel", "Toby perdido"}, list(Filters{}))
	assert.Equal(t, []string{"Toby perdido"}, list(Filters{SearchTerm: "LABRA"}))
	assert.Equal(t, []string{"Gata Luna"}, list(Filters{SearchTerm: "collar"}))
	assert.Equal(t, []string{"Gata Luna"}, list(Filters{Species: models.SpeciesCat}))
	assert.Equal(t, []string{"100% fiel"}, list(Filters{SearchTerm: "100%"}))
	assert.Equal(t, []string{"100% fiel"}, list(Filters{Location: "rosario"}))
	assert.Empty(t, list(Filters{SearchTerm: "toby", Location: "rosario"}))
	assert.Equal(t, []string{"Gata Luna"}, list(Filters{Limit: 1}))
}

func TestApply_ReportedWithoutExpiryStaysListed(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	past := now.Add(-time.Hour)
	rows := []*models.ReportedPost{
		{PostBase: models.PostBase{OwnerSecretHash: testutil.Ptr(testutil.SecretHash), Title: "sin vencimiento", CreatedAt: now.Add(-time.Hour)}},
		{PostBase: models.PostBase{OwnerSecretHash: testutil.Ptr(testutil.SecretHash), Title: "vencido", CreatedAt: now.Add(-2 * time.Hour)}, ExpiresAt: &past},
		{PostBase: models.PostBase{OwnerSecretHash: testutil.Ptr(testutil.SecretHash), Title: "resuelto", Status: models.StatusInactive, CreatedAt: now}},
	}
	for _, r := range rows {
		require.NoError(t, db.Create(r).Error)
	}

	var got []models.ReportedPost
	require.NoError(t, Compose(Filters{Kind: models.KindReported}, now).Apply(db.Model(&models.ReportedPost{})).Find(&got).Error)
	require.Len(t, got, 1)
	assert.Equal(t, "sin vencimiento", got[0].Title)
}

func TestApply_ClassifiedCategory(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	for i, c := range []models.Category{models.CategoryFood, models.CategoryToys} {
		require.NoError(t, db.Create(&models.Classified{
			PostBase: models.PostBase{UserID: testutil.UserID(1), Title: string(c), CreatedAt: now.Add(time.Duration(i) * time.Minute)},
			Category: c,
		}).Error)
	}

	var got []models.Classified
	require.NoError(t, Compose(Filters{Kind: models.KindClassified, Category: models.CategoryToys}, now).
		Apply(db.Model(&models.Classified{})).Find(&got).Error)
	require.Len(t, got, 1)
	assert.Equal(t, models.CategoryToys, got[0].Category)
}

func TestVetQuery(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	vets := []models.Veterinarian{
		{Name: "Clinica Norte", Address: "Av. Santa Fe 100", Province: "Buenos Aires"},
		{Name: "Vet Sur", Description: "Guardia 24hs", Province: "Córdoba"},
		{Name: "Cerrada", Province: "Buenos Aires", Status: "inactive"},
	}
	for i := range vets {
		require.NoError(t, db.Create(&vets[i]).Error)
	}

	find := func(q VetQuery) []string {
		t.Helper()
		var rows []models.Veterinarian
		require.NoError(t, q.Apply(db.Model(&models.Veterinarian{})).Find(&rows).Error)
		names := make([]string, len(rows))
		for i, r := range rows {
			names[i] = r.Name
		}
		return names
	}

	assert.Equal(t, []string{"Clinica Norte", "Vet Sur"}, find(ComposeVets("", "")))
	assert.Equal(t, []string{"Vet Sur"}, find(ComposeVets("guardia", "")))
	assert.Equal(t, []string{"Clinica Norte"}, find(ComposeVets("santa fe", "Buenos Aires")))
	assert.Empty(t, find(ComposeVets("guardia", "Buenos Aires")))
}
