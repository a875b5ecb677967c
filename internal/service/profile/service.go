package profile

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/db"
	svcErr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/media"
	"github.com/oggyb/ember/internal/repository"
	"github.com/oggyb/ember/internal/sms"
)

const (
	minAge      = 18
	maxAge      = 100
	maxPhotos   = 6
	maxPrompts  = 3
	maxBioRunes = 500

	defaultMaxDistance = 50.0
)

var errUserNotFound = svcErr.NewNotFoundError("User")

// Service owns the user-editable side of a profile.
type Service struct {
	appCtx   *app.AppContext
	users    *repository.UserRepository
	blocks   *repository.BlockRepository
	uploader media.Uploader
	sms      sms.Sender
	now      func() time.Time
}

type Option func(*Service)

func WithUploader(u media.Uploader) Option {
	return func(s *Service) { s.uploader = u }
}

func WithSMS(sender sms.Sender) Option {
	return func(s *Service) { s.sms = sender }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewProfileService creates the profile service. Without Cloudinary
// configured uploads are kept inline as data URLs.
func NewProfileService(appCtx *app.AppContext, opts ...Option) *Service {
	s := &Service{
		appCtx: appCtx,
		users:  repository.NewUserRepository(appCtx.DB),
		blocks: repository.NewBlockRepository(appCtx.DB),
		sms:    sms.LogSender{Log: appCtx.Logger},
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	if s.uploader == nil {
		up, err := media.New(appCtx.Config.Cloudinary.URL, appCtx.Config.Cloudinary.Folder)
		if err != nil {
			appCtx.Logger.Error("cloudinary disabled", "err", err)
			up = media.DataURL{}
		}
		s.uploader = up
	}
	return s
}

// UpdateRequest carries the editable profile fields. Nil fields are left alone.
type UpdateRequest struct {
	Name               *string     `json:"name"`
	Age                *int        `json:"age"`
	Gender             *string     `json:"gender"`
	InterestedIn       *string     `json:"interested_in"`
	Bio                *string     `json:"bio"`
	Photos             []string    `json:"photos"`
	VideoURL           *string     `json:"video_url"`
	Prompts            []db.Prompt `json:"prompts"`
	Interests          []string    `json:"interests"`
	Height             *int        `json:"height"`
	Education          *string     `json:"education"`
	DatingPurpose      *string     `json:"dating_purpose"`
	Religion           *string     `json:"religion"`
	Languages          []string    `json:"languages"`
	ChildrenPreference *string     `json:"children_preference"`
	PoliticalView      *string     `json:"political_view"`
	Pets               *string     `json:"pets"`
	Ethnicity          *string     `json:"ethnicity"`
	SubEthnicity       *string     `json:"sub_ethnicity"`
}

func (r *UpdateRequest) validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return svcErr.NewValidationError("name", "must not be empty")
	}
	if r.Age != nil && (*r.Age < minAge || *r.Age > maxAge) {
		return svcErr.NewValidationError("age", "must be between 18 and 100")
	}
	if r.Bio != nil && utf8.RuneCountInString(*r.Bio) > maxBioRunes {
		return svcErr.NewValidationError("bio", "must be at most 500 characters")
	}
	if len(r.Photos) > maxPhotos {
		return svcErr.NewValidationError("photos", "at most 6 photos")
	}
	if len(r.Prompts) > maxPrompts {
		return svcErr.NewValidationError("prompts", "at most 3 prompts")
	}
	for _, p := range r.Prompts {
		if strings.TrimSpace(p.Question) == "" || strings.TrimSpace(p.Answer) == "" {
			return svcErr.NewValidationError("prompts", "question and answer are required")
		}
	}
	if r.Height != nil && (*r.Height < 90 || *r.Height > 250) {
		return svcErr.NewValidationError("height", "must be between 90 and 250 cm")
	}
	return nil
}

// apply copies the set fields onto u and returns their column names.
func (r *UpdateRequest) apply(u *db.User) []string {
	var cols []string
	setStr := func(dst **string, v *string, col string) {
		if v != nil {
			s := strings.TrimSpace(*v)
			*dst = &s
			cols = append(cols, col)
		}
	}
	if r.Name != nil {
		u.Name = strings.TrimSpace(*r.Name)
		cols = append(cols, "name")
	}
	if r.Age != nil {
		u.Age = r.Age
		cols = append(cols, "age")
	}
	if r.Height != nil {
		u.Height = r.Height
		cols = append(cols, "height")
	}
	setStr(&u.Gender, r.Gender, "gender")
	setStr(&u.InterestedIn, r.InterestedIn, "interested_in")
	setStr(&u.Bio, r.Bio, "bio")
	setStr(&u.VideoURL, r.VideoURL, "video_url")
	setStr(&u.Education, r.Education, "education")
	setStr(&u.DatingPurpose, r.DatingPurpose, "dating_purpose")
	setStr(&u.Religion, r.Religion, "religion")
	setStr(&u.ChildrenPreference, r.ChildrenPreference, "children_preference")
	setStr(&u.PoliticalView, r.PoliticalView, "political_view")
	setStr(&u.Pets, r.Pets, "pets")
	setStr(&u.Ethnicity, r.Ethnicity, "ethnicity")
	setStr(&u.SubEthnicity, r.SubEthnicity, "sub_ethnicity")
	if r.Photos != nil {
		u.Photos = r.Photos
		cols = append(cols, "photos")
	}
	if r.Prompts != nil {
		u.Prompts = r.Prompts
		cols = append(cols, "prompts")
	}
	if r.Interests != nil {
		u.Interests = r.Interests
		cols = append(cols, "interests")
	}
	if r.Languages != nil {
		u.Languages = r.Languages
		cols = append(cols, "languages")
	}
	return cols
}

// Update merges the request into the caller's profile.
//
// Behavior:
//   - Only fields present in the request change.
//   - is_profile_complete is recomputed from the merged profile: age,
//     gender, interested_in, at least one photo and one prompt.
//   - last_active is bumped.
//
// Example:
//
//	u, err := svc.Update(ctx, "user_1", UpdateRequest{Bio: &bio})
func (s *Service) Update(ctx context.Context, userID string, req UpdateRequest) (*db.User, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	cols := req.apply(u)
	u.ComputeCompleteness()
	u.LastActive = s.now()
	cols = append(cols, "is_profile_complete", "last_active")

	if err := s.users.UpdateColumns(ctx, u, cols...); err != nil {
		return nil, err
	}
	return u, nil
}

// Get returns another user's public profile. A block in either direction
// looks exactly like a missing user.
func (s *Service) Get(ctx context.Context, viewerID, userID string) (*db.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errUserNotFound
	} else if err != nil {
		return nil, err
	}
	if viewerID != userID {
		blocked, err := s.blocks.IsBlockedEither(ctx, viewerID, userID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, errUserNotFound
		}
		u.Email = ""
	}
	return u, nil
}

type LocationRequest struct {
	City      *string  `json:"city"`
	State     *string  `json:"state"`
	Country   *string  `json:"country"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// SetLocation replaces the caller's location. Coordinates come as a pair.
func (s *Service) SetLocation(ctx context.Context, userID string, req LocationRequest) (*db.User, error) {
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return nil, svcErr.NewValidationError("location", "latitude and longitude go together")
	}
	if req.Latitude != nil && (*req.Latitude < -90 || *req.Latitude > 90) {
		return nil, svcErr.NewValidationError("latitude", "must be between -90 and 90")
	}
	if req.Longitude != nil && (*req.Longitude < -180 || *req.Longitude > 180) {
		return nil, svcErr.NewValidationError("longitude", "must be between -180 and 180")
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Location = db.Location{
		City:      req.City,
		State:     req.State,
		Country:   req.Country,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}
	err = s.users.UpdateColumns(ctx, u, "location_city", "location_state", "location_country",
		"location_latitude", "location_longitude")
	if err != nil {
		return nil, err
	}
	return u, nil
}

// SetLanguage stores the preferred UI language code, e.g. "es" or "zh-cn".
func (s *Service) SetLanguage(ctx context.Context, userID, code string) (string, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if _, ok := languageNames[code]; !ok {
		return "", svcErr.NewValidationError("language", "unsupported language "+code)
	}
	u := &db.User{ID: userID, PreferredLanguage: code}
	if err := s.users.UpdateColumns(ctx, u, "preferred_language"); err != nil {
		return "", err
	}
	return code, nil
}

// Filters returns the caller's discovery filters with range defaults filled in.
func (s *Service) Filters(ctx context.Context, userID string) (db.Filters, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return db.Filters{}, err
	}
	return withDefaults(u.Filters), nil
}

func withDefaults(f db.Filters) db.Filters {
	if f.AgeMin == nil {
		v := minAge
		f.AgeMin = &v
	}
	if f.AgeMax == nil {
		v := maxAge
		f.AgeMax = &v
	}
	if f.MaxDistance == nil {
		v := defaultMaxDistance
		f.MaxDistance = &v
	}
	return f
}

// SetFilters replaces the caller's discovery filters.
func (s *Service) SetFilters(ctx context.Context, userID string, f db.Filters) (db.Filters, error) {
	switch {
	case f.AgeMin != nil && *f.AgeMin < minAge:
		return db.Filters{}, svcErr.NewValidationError("age_min", "must be at least 18")
	case f.AgeMax != nil && *f.AgeMax > maxAge:
		return db.Filters{}, svcErr.NewValidationError("age_max", "must be at most 100")
	case f.AgeMin != nil && f.AgeMax != nil && *f.AgeMin > *f.AgeMax:
		return db.Filters{}, svcErr.NewValidationError("age_min", "must not exceed age_max")
	case f.HeightMin != nil && f.HeightMax != nil && *f.HeightMin > *f.HeightMax:
		return db.Filters{}, svcErr.NewValidationError("height_min", "must not exceed height_max")
	case f.MaxDistance != nil && *f.MaxDistance <= 0:
		return db.Filters{}, svcErr.NewValidationError("max_distance", "must be positive")
	}

	u := &db.User{ID: userID, Filters: f}
	if err := s.users.UpdateColumns(ctx, u, "filters"); err != nil {
		return db.Filters{}, err
	}
	return withDefaults(f), nil
}
