package calls

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/ember/internal/app"
	"github.com/oggyb/ember/internal/db"
	svcErr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/realtime"
	"github.com/oggyb/ember/internal/repository"
	"github.com/oggyb/ember/internal/service/participant"
	"github.com/oggyb/ember/internal/utils/ids"
)

const (
	CallAudio = "audio"
	CallVideo = "video"
)

var errCallNotFound = svcErr.NewNotFoundError("Call")

var signalTypes = map[string]bool{"offer": true, "answer": true, "ice-candidate": true}

// Service implements call setup and WebRTC signal relay.
type Service struct {
	appCtx *app.AppContext
	users  *repository.UserRepository
	calls  *repository.CallRepository
	guard  *participant.Guard
	now    func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewCallService creates the call service with dependencies from AppContext.
func NewCallService(appCtx *app.AppContext, opts ...Option) *Service {
	s := &Service{
		appCtx: appCtx,
		users:  repository.NewUserRepository(appCtx.DB),
		calls:  repository.NewCallRepository(appCtx.DB),
		guard:  participant.New(appCtx.DB),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) publish(ctx context.Context, userID, typ string, fields map[string]any) {
	if err := s.appCtx.Bus.Publish(ctx, userID, realtime.NewEvent(typ, fields)); err != nil {
		s.appCtx.Logger.Warn("realtime publish failed", "type", typ, "user_id", userID, "err", err)
	}
}

type InitiateRequest struct {
	MatchID  string `json:"match_id" binding:"required"`
	CallType string `json:"call_type"`
}

// Initiated is the caller's view of a new call.
type Initiated struct {
	*db.Call
	CalleeOnline bool `json:"callee_online"`
}

// Initiate starts ringing the partner of a match.
//
// Behavior:
//   - Caller must be a participant of an unblocked match.
//   - call_type defaults to audio.
//   - call_incoming goes to the callee with the caller's public card.
func (s *Service) Initiate(ctx context.Context, caller *db.User, req InitiateRequest) (*Initiated, error) {
	switch req.CallType {
	case "":
		req.CallType = CallAudio
	case CallAudio, CallVideo:
	default:
		return nil, svcErr.NewValidationError("call_type", "must be audio or video")
	}
	m, err := s.guard.Active(ctx, req.MatchID, caller.ID)
	if err != nil {
		return nil, err
	}

	call := &db.Call{
		ID:        ids.New("call"),
		MatchID:   m.ID,
		CallerID:  caller.ID,
		CalleeID:  m.Partner(caller.ID),
		CallType:  req.CallType,
		Status:    db.CallRinging,
		StartedAt: s.now(),
	}
	if err := s.calls.Create(ctx, call); err != nil {
		return nil, err
	}

	s.publish(ctx, call.CalleeID, realtime.TypeCallIncoming, map[string]any{
		"call_id":   call.ID,
		"match_id":  m.ID,
		"call_type": call.CallType,
		"caller": map[string]any{
			"user_id": caller.ID,
			"name":    caller.Name,
			"picture": caller.Picture,
		},
	})
	return &Initiated{Call: call, CalleeOnline: s.appCtx.Registry.Online(call.CalleeID)}, nil
}

func (s *Service) load(ctx context.Context, callID, userID string) (*db.Call, error) {
	call, err := s.calls.FindByID(ctx, callID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errCallNotFound
	} else if err != nil {
		return nil, err
	}
	if call.Other(userID) == "" {
		return nil, svcErr.NewForbiddenError("You are not part of this call")
	}
	return call, nil
}

// transition applies updates only from the allowed states.
func (s *Service) transition(ctx context.Context, call *db.Call, from []string, updates map[string]any) error {
	ok, err := s.calls.Transition(ctx, call.ID, from, updates)
	if err != nil {
		return err
	}
	if !ok {
		return svcErr.InvalidArgument("Call is already " + call.Status)
	}
	return nil
}

// Answer moves a ringing call to active. Only the callee can answer.
func (s *Service) Answer(ctx context.Context, userID, callID string) (*db.Call, error) {
	call, err := s.load(ctx, callID, userID)
	if err != nil {
		return nil, err
	}
	if call.CalleeID != userID {
		return nil, svcErr.NewForbiddenError("Only the callee can answer")
	}
	now := s.now()
	if err := s.transition(ctx, call, []string{db.CallRinging}, map[string]any{
		"status": db.CallActive, "answered_at": now,
	}); err != nil {
		return nil, err
	}
	call.Status, call.AnsweredAt = db.CallActive, &now

	s.publish(ctx, call.CallerID, realtime.TypeCallAnswered, map[string]any{"call_id": call.ID})
	return call, nil
}

// Reject declines a ringing call. Only the callee can reject.
func (s *Service) Reject(ctx context.Context, userID, callID string) (*db.Call, error) {
	call, err := s.load(ctx, callID, userID)
	if err != nil {
		return nil, err
	}
	if call.CalleeID != userID {
		return nil, svcErr.NewForbiddenError("Only the callee can reject")
	}
	now := s.now()
	if err := s.transition(ctx, call, []string{db.CallRinging}, map[string]any{
		"status": db.CallRejected, "ended_at": now,
	}); err != nil {
		return nil, err
	}
	call.Status, call.EndedAt = db.CallRejected, &now

	s.publish(ctx, call.CallerID, realtime.TypeCallRejected, map[string]any{"call_id": call.ID})
	return call, nil
}

// End hangs up a ringing or active call from either side. Duration counts
// from the answer, so unanswered calls last 0 seconds.
func (s *Service) End(ctx context.Context, userID, callID string) (*db.Call, error) {
	call, err := s.load(ctx, callID, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	duration := 0
	if call.AnsweredAt != nil {
		duration = int(now.Sub(*call.AnsweredAt).Seconds())
	}
	if err := s.transition(ctx, call, []string{db.CallRinging, db.CallActive}, map[string]any{
		"status": db.CallEnded, "ended_at": now, "duration": duration,
	}); err != nil {
		return nil, err
	}
	call.Status, call.EndedAt, call.Duration = db.CallEnded, &now, duration

	s.publish(ctx, call.Other(userID), realtime.TypeCallEnded, map[string]any{
		"call_id":  call.ID,
		"duration": duration,
		"ended_by": userID,
	})
	return call, nil
}

type SignalRequest struct {
	SignalType string          `json:"signal_type" binding:"required"`
	Data       json.RawMessage `json:"data"`
}

// Signal relays an SDP offer/answer or ICE candidate to the other party.
func (s *Service) Signal(ctx context.Context, userID, callID string, req SignalRequest) error {
	if !signalTypes[req.SignalType] {
		return svcErr.NewValidationError("signal_type", "must be offer, answer or ice-candidate")
	}
	call, err := s.load(ctx, callID, userID)
	if err != nil {
		return err
	}
	if call.Status == db.CallEnded || call.Status == db.CallRejected {
		return svcErr.InvalidArgument("Call is already " + call.Status)
	}
	s.publish(ctx, call.Other(userID), realtime.TypeWebRTCSignal, map[string]any{
		"call_id":      call.ID,
		"signal_type":  req.SignalType,
		"data":         req.Data,
		"from_user_id": userID,
	})
	return nil
}

type ICEServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

// ICEServers returns the STUN servers plus the TURN relay when configured.
func (s *Service) ICEServers() []ICEServer {
	cfg := s.appCtx.Config.Calls
	var out []ICEServer
	if len(cfg.STUNURLs) > 0 {
		out = append(out, ICEServer{URLs: cfg.STUNURLs})
	}
	if len(cfg.TURNURLs) > 0 {
		out = append(out, ICEServer{URLs: cfg.TURNURLs, Username: cfg.TURNUsername, Credential: cfg.TURNCredential})
	}
	if out == nil {
		out = []ICEServer{}
	}
	return out
}
