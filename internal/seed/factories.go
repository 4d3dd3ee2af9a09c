// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"huellas/internal/catalog"
	"huellas/internal/models"
	"huellas/internal/ownership"
	"huellas/internal/repository"
)

// DemoPassword is the password of every seeded user.
const DemoPassword = "password123"

var (
	lostTitles     = []string{"Se perdió %s", "Buscamos a %s", "%s salió de casa y no volvió", "Ayuda para encontrar a %s"}
	reportedTitles = []string{"%s visto en la plaza", "Encontré un %s suelto", "%s deambulando cerca de la estación", "%s herido en la calle"}
	adoptionTitles = []string{"%s busca hogar", "Adoptá a %s", "%s en adopción responsable", "%s espera una familia"}
	classifiedItems = map[models.Category][]string{
		models.CategoryFood:        {"Alimento balanceado 15kg", "Snacks naturales", "Alimento para gatos castrados"},
		models.CategoryToys:        {"Pelota de goma", "Rascador de dos pisos", "Juguete mordedor"},
		models.CategoryAccessories: {"Cucha grande", "Correa extensible", "Transportadora mediana"},
		models.CategoryMedicine:    {"Pipetas antipulgas", "Antiparasitario interno", "Collar antipulgas"},
		models.CategoryServices:    {"Paseador de perros", "Peluquería canina a domicilio", "Guardería para mascotas"},
		models.CategoryOther:       {"Libro de adiestramiento", "Jaula para aves", "Pecera de 40 litros"},
	}
	conditions  = []string{"nuevo", "usado", "como nuevo"}
	ages        = []string{"2 meses", "6 meses", "1 año", "3 años", "adulto"}
	vetServices = []string{"Consultas", "Vacunación", "Cirugía", "Guardia 24 hs", "Peluquería", "Internación", "Rayos X"}
)

// Factory builds domain entities and persists them through the repositories.
type Factory struct {
	faker    *gofakeit.Faker
	catalog  *catalog.Catalog
	users    repository.UserRepository
	profiles repository.ProfileRepository
	posts    *repository.Posts
	vets     repository.VeterinarianRepository
	hasher   *ownership.Hasher
	opts     Options
	now      func() time.Time
}

// NewFactory creates a Factory bound to db. A zero opts.Seed picks a random seed.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	cat := opts.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	cost := bcrypt.DefaultCost
	if opts.SkipBcrypt {
		cost = bcrypt.MinCost
	}
	return &Factory{
		faker:    gofakeit.New(opts.Seed),
		catalog:  cat,
		users:    repository.NewUserRepository(db),
		profiles: repository.NewProfileRepository(db),
		posts:    repository.NewPosts(db, nil),
		vets:     repository.NewVeterinarianRepository(db),
		hasher:   ownership.NewHasher(cost),
		opts:     opts,
		now:      time.Now,
	}
}

// CreateUser persists a user with a filled-in profile.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	cost := bcrypt.DefaultCost
	if f.opts.SkipBcrypt {
		cost = bcrypt.MinCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:    models.NormalizeEmail(fmt.Sprintf("%s.%d@example.com", f.faker.Username(), f.faker.Number(100, 999))),
		Password: string(hashed),
	}
	for _, override := range overrides {
		override(user)
	}
	if err := f.users.Create(ctx, user); err != nil {
		return nil, err
	}

	profile, err := f.profiles.GetOrCreate(ctx, user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	country, province := f.region()
	profile.DisplayName = f.faker.FirstName() + " " + f.faker.LastName()
	profile.Country = country.Name
	profile.Province = province.Name
	if err := f.profiles.Update(ctx, profile); err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost returns an unsaved post of kind. A nil owner makes an anonymous
// post and the plaintext secret is returned alongside it.
func (f *Factory) BuildPost(kind models.PostKind, owner *models.User) (models.Post, string, error) {
	created := f.createdAt()
	country, province := f.region()
	species := f.species()
	name := f.faker.PetName()

	base := models.PostBase{
		Description:  f.faker.Paragraph(1, 3, 12, " "),
		Species:      species,
		Breed:        f.pick(f.catalog.BreedsFor(species)),
		Colors:       f.colors(),
		LocationText: f.faker.Street() + ", " + province.Name,
		Images:       models.StringList{fmt.Sprintf("https://picsum.photos/seed/%s/800/600", f.faker.UUID())},
		Status:       models.StatusActive,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	if country.Name != "" {
		base.LocationText += ", " + country.Name
	}
	if box := province.BBox; box != nil {
		lat := f.faker.Float64Range(box[1], box[3])
		lng := f.faker.Float64Range(box[0], box[2])
		base.LocationLat, base.LocationLng = &lat, &lng
	}
	whatsapp := fmt.Sprintf("+54 9 11 %s-%s", f.faker.Numerify("####"), f.faker.Numerify("####"))
	base.ContactWhatsApp = &whatsapp
	if f.faker.Bool() {
		email := f.faker.Email()
		base.ContactEmail = &email
	}

	var secret string
	if owner != nil {
		uid := owner.ID
		base.UserID = &uid
	} else {
		var err error
		if secret, err = ownership.GenerateSecret(); err != nil {
			return nil, "", err
		}
		hash, err := f.hasher.HashSecret(secret)
		if err != nil {
			return nil, "", err
		}
		base.OwnerSecretHash = &hash
	}

	switch kind {
	case models.KindLost:
		base.Title = fmt.Sprintf(f.pick(lostTitles), name)
		lostAt := created.Add(-time.Duration(f.faker.Number(1, 48)) * time.Hour)
		return &models.LostPost{PostBase: base, LostAt: &lostAt, ExpiresAt: created.Add(f.opts.ttl())}, secret, nil
	case models.KindReported:
		base.Title = fmt.Sprintf(f.pick(reportedTitles), speciesNoun(species))
		expires := created.Add(f.opts.ttl())
		state := models.ReportStateSeen
		if f.faker.Number(1, 5) == 1 {
			state = models.ReportStateInjured
		}
		return &models.ReportedPost{PostBase: base, State: state, ExpiresAt: &expires}, secret, nil
	case models.KindAdoption:
		base.Title = fmt.Sprintf(f.pick(adoptionTitles), name)
		return &models.AdoptionPost{PostBase: base, Age: f.pick(ages)}, secret, nil
	case models.KindClassified:
		category := models.Category(f.pick(f.categoryValues()))
		base.Title = f.pick(classifiedItems[category])
		base.Species = ""
		base.Breed = ""
		base.Colors = nil
		price := float64(f.faker.Number(5, 500)) * 100
		return &models.Classified{
			PostBase:     base,
			Category:     category,
			Condition:    f.pick(conditions),
			Price:        &price,
			StoreContact: f.faker.Company(),
		}, secret, nil
	default:
		return nil, "", fmt.Errorf("unknown post kind %q", kind)
	}
}

// CreatePost builds and persists a post.
func (f *Factory) CreatePost(ctx context.Context, kind models.PostKind, owner *models.User) (models.Post, string, error) {
	post, secret, err := f.BuildPost(kind, owner)
	if err != nil {
		return nil, "", err
	}
	if err := f.posts.For(kind).Create(ctx, post); err != nil {
		return nil, "", err
	}
	return post, secret, nil
}

// CreateVeterinarian persists a directory entry in a random province.
func (f *Factory) CreateVeterinarian(ctx context.Context) (*models.Veterinarian, error) {
	country, province := f.region()
	vet := &models.Veterinarian{
		Name:        "Veterinaria " + f.faker.LastName(),
		Description: f.faker.Sentence(8),
		Address:     f.faker.Street(),
		Province:    province.Name,
		Country:     country.Name,
		Phone:       f.faker.Numerify("011 ####-####"),
		Email:       f.faker.Email(),
		Website:     f.faker.URL(),
		Services:    f.sample(vetServices, 3),
		Images:      models.StringList{},
	}
	if err := f.vets.Create(ctx, vet); err != nil {
		return nil, err
	}
	return vet, nil
}

func (f *Factory) createdAt() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}
	back := time.Duration(f.faker.Number(0, maxDays*24*60)) * time.Minute
	return f.now().Add(-back).UTC()
}

func (f *Factory) region() (catalog.Country, catalog.Province) {
	if len(f.catalog.Countries) == 0 {
		return catalog.Country{}, catalog.Province{}
	}
	country := f.catalog.Countries[f.faker.Number(0, len(f.catalog.Countries)-1)]
	if len(country.Provinces) == 0 {
		return country, catalog.Province{}
	}
	return country, country.Provinces[f.faker.Number(0, len(country.Provinces)-1)]
}

// species favors dogs and cats the way real listings do.
func (f *Factory) species() models.Species {
	switch n := f.faker.Number(1, 10); {
	case n <= 5:
		return models.SpeciesDog
	case n <= 8:
		return models.SpeciesCat
	default:
		return models.AllSpecies[f.faker.Number(2, len(models.AllSpecies)-1)]
	}
}

func (f *Factory) colors() models.StringList {
	return models.NormalizeStringSet(f.sample(f.catalog.Colors, f.faker.Number(1, 2)))
}

func (f *Factory) categoryValues() []string {
	values := make([]string, 0, len(f.catalog.Categories))
	for _, o := range f.catalog.Categories {
		if _, ok := classifiedItems[models.Category(o.Value)]; ok {
			values = append(values, o.Value)
		}
	}
	if len(values) == 0 {
		values = append(values, string(models.CategoryOther))
	}
	return values
}

func (f *Factory) pick(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[f.faker.Number(0, len(values)-1)]
}

func (f *Factory) sample(values []string, n int) []string {
	if n > len(values) {
		n = len(values)
	}
	shuffled := append([]string(nil), values...)
	f.faker.ShuffleStrings(shuffled)
	return shuffled[:n]
}

func speciesNoun(s models.Species) string {
	switch s {
	case models.SpeciesDog:
		return "Perro"
	case models.SpeciesCat:
		return "Gato"
	case models.SpeciesBird:
		return "Ave"
	default:
		return "Animal"
	}
}
