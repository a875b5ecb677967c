package profile

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"regexp"
	"strings"

	"github.com/oggyb/ember/internal/cache"
	"github.com/oggyb/ember/internal/db"
	svcErr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/media"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// VerificationStatus is the per-channel view returned by the status endpoint.
type VerificationStatus struct {
	Status string `json:"verification_status"`
	Photo  string `json:"photo_verification"`
	Phone  string `json:"phone_verification"`
	ID     string `json:"id_verification"`
}

func statusOf(u *db.User) VerificationStatus {
	return VerificationStatus{
		Status: u.VerificationStatus,
		Photo:  u.PhotoVerification,
		Phone:  u.PhoneVerification,
		ID:     u.IDVerification,
	}
}

// overall is verified once photo or phone is verified, pending while any
// channel waits for review.
func overall(u *db.User) string {
	switch {
	case u.PhotoVerification == db.VerificationVerified || u.PhoneVerification == db.VerificationVerified:
		return db.VerificationVerified
	case u.PhotoVerification == db.VerificationPending || u.PhoneVerification == db.VerificationPending ||
		u.IDVerification == db.VerificationPending:
		return db.VerificationPending
	}
	return db.VerificationUnverified
}

func (s *Service) Verification(ctx context.Context, userID string) (VerificationStatus, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return VerificationStatus{}, err
	}
	return statusOf(u), nil
}

// uploadErr turns media validation failures into 400s.
func uploadErr(err error) error {
	switch {
	case errors.Is(err, media.ErrTooLarge):
		return svcErr.InvalidArgument("File too large (max 10MB)")
	case errors.Is(err, media.ErrNotImage):
		return svcErr.InvalidArgument("File must be an image")
	}
	return err
}

// VerifyPhoto stores the selfie and marks the photo channel verified.
func (s *Service) VerifyPhoto(ctx context.Context, userID string, r io.Reader) (VerificationStatus, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return VerificationStatus{}, err
	}
	url, err := s.uploader.Upload(ctx, r, "verification", u.ID)
	if err != nil {
		return VerificationStatus{}, uploadErr(err)
	}
	u.VerificationPhoto = &url
	u.PhotoVerification = db.VerificationVerified
	u.VerificationStatus = overall(u)
	if err := s.users.UpdateColumns(ctx, u, "verification_photo", "photo_verification", "verification_status"); err != nil {
		return VerificationStatus{}, err
	}
	return statusOf(u), nil
}

// VerifyID stores the document for manual review.
func (s *Service) VerifyID(ctx context.Context, userID string, r io.Reader) (VerificationStatus, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return VerificationStatus{}, err
	}
	url, err := s.uploader.Upload(ctx, r, "documents", u.ID)
	if err != nil {
		return VerificationStatus{}, uploadErr(err)
	}
	u.IDDocument = &url
	if u.IDVerification != db.VerificationVerified {
		u.IDVerification = db.VerificationPending
	}
	u.VerificationStatus = overall(u)
	if err := s.users.UpdateColumns(ctx, u, "id_document", "id_verification", "verification_status"); err != nil {
		return VerificationStatus{}, err
	}
	return statusOf(u), nil
}

func normalizePhone(phone string) (string, error) {
	p := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "").Replace(strings.TrimSpace(phone))
	if !phonePattern.MatchString(p) {
		return "", svcErr.NewValidationError("phone", "invalid phone number")
	}
	return p, nil
}

func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// SendPhoneCode texts a 6 digit code valid for 10 minutes. Outside
// production the code is also returned so it can be entered without SMS.
func (s *Service) SendPhoneCode(ctx context.Context, userID, phone string) (debugCode string, err error) {
	p, err := normalizePhone(phone)
	if err != nil {
		return "", err
	}
	code, err := newCode()
	if err != nil {
		return "", err
	}
	if err := s.appCtx.RedisCache.SetPhoneCode(ctx, userID, p, code); err != nil {
		return "", err
	}
	if err := s.sms.Send(ctx, p, "Your Ember verification code is "+code); err != nil {
		s.appCtx.Logger.Error("sms send failed", "user_id", userID, "err", err)
		return "", svcErr.ErrServiceUnavailable.WithMessage("Could not send verification code")
	}
	if s.appCtx.Config.App.ENV != "production" {
		return code, nil
	}
	return "", nil
}

// VerifyPhoneCode checks the code and marks the phone channel verified.
func (s *Service) VerifyPhoneCode(ctx context.Context, userID, phone, code string) (VerificationStatus, error) {
	p, err := normalizePhone(phone)
	if err != nil {
		return VerificationStatus{}, err
	}
	err = s.appCtx.RedisCache.CheckPhoneCode(ctx, userID, p, strings.TrimSpace(code))
	if errors.Is(err, cache.ErrCodeMismatch) {
		return VerificationStatus{}, svcErr.InvalidArgument("Invalid or expired verification code")
	} else if err != nil {
		return VerificationStatus{}, err
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return VerificationStatus{}, err
	}
	u.Phone = &p
	u.PhoneVerification = db.VerificationVerified
	u.VerificationStatus = overall(u)
	if err := s.users.UpdateColumns(ctx, u, "phone", "phone_verification", "verification_status"); err != nil {
		return VerificationStatus{}, err
	}
	return statusOf(u), nil
}

// UploadPhoto stores a profile photo and returns its URL. The photo list
// itself is saved through Update.
func (s *Service) UploadPhoto(ctx context.Context, userID string, r io.Reader) (string, error) {
	url, err := s.uploader.Upload(ctx, r, "profiles", userID)
	if err != nil {
		return "", uploadErr(err)
	}
	return url, nil
}
