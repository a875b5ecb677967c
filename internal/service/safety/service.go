package safety

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/db"
	svcErr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/repository"
	"github.com/oggyb/ember/internal/utils/ids"
)

const maxReasonLength = 64

// reportReasons are the categories offered by the report dialog. Anything
// else is stored as "other".
var reportReasons = map[string]bool{
	"inappropriate_content": true,
	"harassment":            true,
	"fake_profile":          true,
	"spam":                  true,
	"underage":              true,
	"scam":                  true,
	"other":                 true,
}

// Service implements blocking and reporting.
type Service struct {
	appCtx  *app.AppContext
	users   *repository.UserRepository
	blocks  *repository.BlockRepository
	reports *repository.ReportRepository
}

// NewSafetyService creates the safety service with dependencies from AppContext.
func NewSafetyService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:  appCtx,
		users:   repository.NewUserRepository(appCtx.DB),
		blocks:  repository.NewBlockRepository(appCtx.DB),
		reports: repository.NewReportRepository(appCtx.DB),
	}
}

func (s *Service) target(ctx context.Context, callerID, targetID string) error {
	if targetID == callerID {
		return svcErr.InvalidArgument("You cannot do this to yourself")
	}
	if _, err := s.users.FindByID(ctx, targetID); errors.Is(err, gorm.ErrRecordNotFound) {
		return svcErr.NewNotFoundError("User")
	} else if err != nil {
		return err
	}
	return nil
}

// Block adds a one-way block edge.
//
// Behavior:
//   - A second block of the same user is 400 "User already blocked".
//   - Any match between the pair and its messages are deleted with the edge.
//   - Both users' cached like counts are dropped.
func (s *Service) Block(ctx context.Context, blockerID, targetID string) error {
	if err := s.target(ctx, blockerID, targetID); err != nil {
		return err
	}
	if err := s.blocks.Block(ctx, blockerID, targetID); errors.Is(err, gorm.ErrDuplicatedKey) {
		return svcErr.NewConflictError("User already blocked")
	} else if err != nil {
		return err
	}

	for _, id := range []string{blockerID, targetID} {
		if err := s.appCtx.RedisCache.InvalidateLikeCount(ctx, id); err != nil {
			s.appCtx.Logger.Warn("invalidate like count failed", "user_id", id, "err", err)
		}
	}
	s.appCtx.Logger.Info("user blocked", "blocker_id", blockerID, "blocked_id", targetID)
	return nil
}

// Unblock removes the edge; 404 when there was none.
func (s *Service) Unblock(ctx context.Context, blockerID, targetID string) error {
	ok, err := s.blocks.Unblock(ctx, blockerID, targetID)
	if err != nil {
		return err
	}
	if !ok {
		return svcErr.NewNotFoundError("Block")
	}
	for _, id := range []string{blockerID, targetID} {
		_ = s.appCtx.RedisCache.InvalidateLikeCount(ctx, id)
	}
	return nil
}

type ReportRequest struct {
	UserID  string  `json:"user_id" binding:"required"`
	Reason  string  `json:"reason" binding:"required"`
	Details *string `json:"details"`
}

// Report records a complaint for moderation. It has no effect on matching.
func (s *Service) Report(ctx context.Context, reporterID string, req ReportRequest) (*db.Report, error) {
	if err := s.target(ctx, reporterID, req.UserID); err != nil {
		return nil, err
	}
	reason := strings.ToLower(strings.TrimSpace(req.Reason))
	if !reportReasons[reason] || len(reason) > maxReasonLength {
		reason = "other"
	}
	rep := &db.Report{
		ID:         ids.New("report"),
		ReporterID: reporterID,
		ReportedID: req.UserID,
		Reason:     reason,
		Details:    req.Details,
		Status:     "open",
	}
	if err := s.reports.Create(ctx, rep); err != nil {
		return nil, err
	}
	s.appCtx.Logger.Info("user reported", "report_id", rep.ID, "reported_id", rep.ReportedID, "reason", reason)
	return rep, nil
}

// Blocked lists the users the caller blocked, latest first.
func (s *Service) Blocked(ctx context.Context, blockerID string) ([]*db.User, error) {
	blockedIDs, err := s.blocks.BlockedIDs(ctx, blockerID)
	if err != nil {
		return nil, err
	}
	byID, err := s.users.FindByIDs(ctx, blockedIDs)
	if err != nil {
		return nil, err
	}
	out := make([]*db.User, 0, len(blockedIDs))
	for _, id := range blockedIDs {
		if u, ok := byID[id]; ok {
			u.Email = ""
			out = append(out, u)
		}
	}
	return out, nil
}
