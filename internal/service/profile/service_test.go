package profile_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/ember/internal/db"
	svcErr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/repository"
	"github.com/oggyb/ember/internal/service/profile"
	"github.com/oggyb/ember/internal/sms"
	"github.com/oggyb/ember/internal/testutil"
)

// pngBytes sniff as image/png.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

func newUser(id string) *db.User {
	return &db.User{ID: id, Email: id + "@test.com", Name: id}
}

func TestUpdate_Completeness(t *testing.T) {
	ctx := context.Background()
	appCtx := testutil.App(t)
	testutil.Seed(t, appCtx.DB, newUser("nina"))
	svc := profile.NewProfileService(appCtx)

	u, err := svc.Update(ctx, "nina", profile.UpdateRequest{
		Age:          testutil.Int(27),
		Gender:       testutil.String("female"),
		InterestedIn: testutil.String("male"),
		Interests:    []string{"hiking"},
	})
	require.NoError(t, err)
	assert.False(t, u.IsProfileComplete)

	u, err = svc.Update(ctx, "nina", profile.UpdateRequest{
		Photos:  []string{"https://img.test/n.jpg"},
		Prompts: []db.Prompt{{Question: "I'm known for", Answer: "pancakes"}},
	})
	require.NoError(t, err)
	assert.True(t, u.IsProfileComplete)

	stored, err := repository.NewUserRepository(appCtx.DB).FindByID(ctx, "nina")
	require.NoError(t, err)
	assert.True(t, stored.IsProfileComplete)
	assert.Equal(t, 27, *stored.Age)
	assert.Equal(t, []string{"hiking"}, stored.Interests)

	_, err = svc.Update(ctx, "nina", profile.UpdateRequest{Age: testutil.Int(16)})
	assert.Equal(t, "validation_error", svcErr.Map(err).Code)
}

func TestGet_HiddenByBlock(t *testing.T) {
	ctx := context.Background()
	appCtx := testutil.App(t)
	testutil.Seed(t, appCtx.DB, newUser("nina"), newUser("omar"), newUser("pia"))
	require.NoError(t, repository.NewBlockRepository(appCtx.DB).Block(ctx, "omar", "nina"))
	svc := profile.NewProfileService(appCtx)

	_, err := svc.Get(ctx, "nina", "omar")
	assert.Equal(t, "User not found", svcErr.Map(err).Message)
	_, err = svc.Get(ctx, "nina", "ghost")
	assert.Equal(t, http.StatusNotFound, svcErr.Map(err).StatusCode)

	u, err := svc.Get(ctx, "pia", "omar")
	require.NoError(t, err)
	assert.Empty(t, u.Email)
}

func TestLocationAndLanguage(t *testing.T) {
	ctx := context.Background()
	appCtx := testutil.App(t)
	testutil.Seed(t, appCtx.DB, newUser("nina"))
	svc := profile.NewProfileService(appCtx)

	_, err := svc.SetLocation(ctx, "nina", profile.LocationRequest{Latitude: testutil.Float(40.7)})
	assert.Error(t, err)
	_, err = svc.SetLocation(ctx, "nina", profile.LocationRequest{Latitude: testutil.Float(91), Longitude: testutil.Float(0)})
	assert.Error(t, err)

	u, err := svc.SetLocation(ctx, "nina", profile.LocationRequest{
		City: testutil.String("New York"), Latitude: testutil.Float(40.7), Longitude: testutil.Float(-74),
	})
	require.NoError(t, err)
	assert.True(t, u.Location.HasCoordinates())

	code, err := svc.SetLanguage(ctx, "nina", "ZH-CN")
	require.NoError(t, err)
	assert.Equal(t, "zh-cn", code)
	_, err = svc.SetLanguage(ctx, "nina", "klingon")
	assert.Error(t, err)

	stored, err := repository.NewUserRepository(appCtx.DB).FindByID(ctx, "nina")
	require.NoError(t, err)
	assert.Equal(t, "zh-cn", stored.PreferredLanguage)
	assert.Equal(t, "New York", *stored.Location.City)
}

func TestFilters_Defaults(t *testing.T) {
	ctx := context.Background()
	appCtx := testutil.App(t)
	testutil.Seed(t, appCtx.DB, newUser("nina"))
	svc := profile.NewProfileService(appCtx)

	f, err := svc.Filters(ctx, "nina")
	require.NoError(t, err)
	assert.Equal(t, 18, *f.AgeMin)
	assert.Equal(t, 100, *f.AgeMax)
	assert.Equal(t, 50.0, *f.MaxDistance)

	_, err = svc.SetFilters(ctx, "nina", db.Filters{AgeMin: testutil.Int(40), AgeMax: testutil.Int(30)})
	assert.Error(t, err)

	_, err = svc.SetFilters(ctx, "nina", db.Filters{AgeMin: testutil.Int(25), Religions: []string{"buddhist"}})
	require.NoError(t, err)
	f, err = svc.Filters(ctx, "nina")
	require.NoError(t, err)
	assert.Equal(t, 25, *f.AgeMin)
	assert.Equal(t, 100, *f.AgeMax)
	assert.Equal(t, []string{"buddhist"}, f.Religions)
}

func TestPhoneVerification(t *testing.T) {
	ctx := context.Background()
	appCtx := testutil.App(t)
	testutil.Seed(t, appCtx.DB, newUser("nina"))
	texts := &sms.Recorder{}
	svc := profile.NewProfileService(appCtx, profile.WithSMS(texts))

	_, err := svc.SendPhoneCode(ctx, "nina", "12")
	assert.Equal(t, "validation_error", svcErr.Map(err).Code)

	code, err := svc.SendPhoneCode(ctx, "nina", "+1 (555) 010-2030")
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Contains(t, texts.Last("+15550102030"), code)

	_, err = svc.VerifyPhoneCode(ctx, "nina", "+15550102030", "000000x")
	assert.Equal(t, http.StatusBadRequest, svcErr.Map(err).StatusCode)

	st, err := svc.VerifyPhoneCode(ctx, "nina", "+15550102030", code)
	require.NoError(t, err)
	assert.Equal(t, db.VerificationVerified, st.Phone)
	assert.Equal(t, db.VerificationVerified, st.Status)

	// codes are single use
	_, err = svc.VerifyPhoneCode(ctx, "nina", "+15550102030", code)
	assert.Error(t, err)
}

func TestPhotoAndIDVerification(t *testing.T) {
	ctx := context.Background()
	appCtx := testutil.App(t)
	testutil.Seed(t, appCtx.DB, newUser("nina"), newUser("omar"))
	svc := profile.NewProfileService(appCtx)

	st, err := svc.VerifyID(ctx, "omar", bytes.NewReader(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, db.VerificationPending, st.ID)
	assert.Equal(t, db.VerificationPending, st.Status)

	_, err = svc.VerifyPhoto(ctx, "nina", strings.NewReader("plain text"))
	assert.Equal(t, "File must be an image", svcErr.Map(err).Message)

	st, err = svc.VerifyPhoto(ctx, "nina", bytes.NewReader(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, db.VerificationVerified, st.Photo)
	assert.Equal(t, db.VerificationVerified, st.Status)
}

func TestEndpoints(t *testing.T) {
	appCtx := testutil.App(t)
	testutil.Seed(t, appCtx.DB, newUser("nina"))
	r := testutil.Router(appCtx, profile.NewRegistrar(appCtx))
	tok := testutil.Token(t, appCtx, "nina")

	w := testutil.Do(t, r, http.MethodGet, "/api/preferences/filters", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 50, testutil.Decode[map[string]any](t, w)["max_distance"])

	w = testutil.Do(t, r, http.MethodPost, "/api/upload/photo/base64", tok, map[string]string{
		"data": "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.HasPrefix(testutil.Decode[map[string]string](t, w)["url"], "data:image/png"))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("photo", "me.png")
	require.NoError(t, err)
	_, _ = fw.Write(pngBytes)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/upload/photo", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	w = testutil.Do(t, r, http.MethodPost, "/api/verification/phone/send", tok, map[string]string{"phone": "+15550102030"})
	require.Equal(t, http.StatusOK, w.Code)
	code := testutil.Decode[map[string]string](t, w)["debug_code"]
	require.Len(t, code, 6)

	w = testutil.Do(t, r, http.MethodPost, "/api/verification/phone/verify", tok, map[string]string{"phone": "+15550102030", "code": code})
	require.Equal(t, http.StatusOK, w.Code)

	w = testutil.Do(t, r, http.MethodGet, "/api/verification/status", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "verified", testutil.Decode[map[string]string](t, w)["verification_status"])

	w = testutil.Do(t, r, http.MethodGet, "/api/profile/ghost", tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
