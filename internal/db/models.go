package db

import (
	"time"
)

const (
	VerificationUnverified = "unverified"
	VerificationPending    = "pending"
	VerificationVerified   = "verified"
)

const (
	LikeRegular   = "regular"
	LikeSuperLike = "super_like"
	LikeRose      = "rose"
)

// Premium plans.
const (
	PlanWeekly  = "weekly"
	PlanMonthly = "monthly"
	PlanYearly  = "yearly"
)

// Prompt is one answered profile prompt.
type Prompt struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Location is embedded into users with the location_ column prefix.
type Location struct {
	City      *string  `gorm:"size:128" json:"city"`
	State     *string  `gorm:"size:128" json:"state"`
	Country   *string  `gorm:"size:128" json:"country"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// HasCoordinates reports whether both coordinates are present.
func (l Location) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// Filters is the advanced discovery filter document. Nil/empty fields impose no constraint.
type Filters struct {
	AgeMin             *int     `json:"age_min,omitempty"`
	AgeMax             *int     `json:"age_max,omitempty"`
	MaxDistance        *float64 `json:"max_distance,omitempty"`
	HeightMin          *int     `json:"height_min,omitempty"`
	HeightMax          *int     `json:"height_max,omitempty"`
	EducationLevels    []string `json:"education_levels,omitempty"`
	SpecificInterests  []string `json:"specific_interests,omitempty"`
	Genders            []string `json:"genders,omitempty"`
	DatingPurposes     []string `json:"dating_purposes,omitempty"`
	Religions          []string `json:"religions,omitempty"`
	Languages          []string `json:"languages,omitempty"`
	ChildrenPreference []string `json:"children_preference,omitempty"`
	PoliticalViews     []string `json:"political_views,omitempty"`
	Pets               []string `json:"pets,omitempty"`
	Ethnicities        []string `json:"ethnicities,omitempty"`
	SubEthnicities     []string `json:"sub_ethnicities,omitempty"`
}

// User is one account. Counters track the three consumable daily actions.
//
// Indexes:
//   - email unique
//   - idx_users_discoverable(is_profile_complete, verification_status, gender)
//     Narrows the discovery base query.
type User struct {
	ID           string  `gorm:"primaryKey;size:32" json:"user_id"`
	Email        string  `gorm:"uniqueIndex;size:191;not null" json:"email"`
	PasswordHash *string `gorm:"size:255" json:"-"`
	Name         string  `gorm:"size:128;not null" json:"name"`
	Picture      *string `gorm:"size:512" json:"picture"`

	Age                *int     `json:"age"`
	Gender             *string  `gorm:"size:32;index:idx_users_discoverable,priority:3" json:"gender"`
	InterestedIn       *string  `gorm:"size:32" json:"interested_in"`
	Bio                *string  `gorm:"type:text" json:"bio"`
	Photos             []string `gorm:"serializer:json;type:text" json:"photos"`
	VideoURL           *string  `gorm:"size:512" json:"video_url"`
	Prompts            []Prompt `gorm:"serializer:json;type:text" json:"prompts"`
	Interests          []string `gorm:"serializer:json;type:text" json:"interests"`
	Height             *int     `json:"height"`
	Education          *string  `gorm:"size:64" json:"education"`
	DatingPurpose      *string  `gorm:"size:64" json:"dating_purpose"`
	Religion           *string  `gorm:"size:64" json:"religion"`
	Languages          []string `gorm:"serializer:json;type:text" json:"languages"`
	ChildrenPreference *string  `gorm:"size:64" json:"children_preference"`
	PoliticalView      *string  `gorm:"size:64" json:"political_view"`
	Pets               *string  `gorm:"size:64" json:"pets"`
	Ethnicity          *string  `gorm:"size:64" json:"ethnicity"`
	SubEthnicity       *string  `gorm:"size:64" json:"sub_ethnicity"`

	Location          Location `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	PreferredLanguage string   `gorm:"size:8;default:en" json:"preferred_language"`
	Filters           Filters  `gorm:"serializer:json;type:text" json:"filters"`

	VerificationStatus string  `gorm:"size:16;default:unverified;index:idx_users_discoverable,priority:2" json:"verification_status"`
	PhotoVerification  string  `gorm:"size:16;default:unverified" json:"photo_verification"`
	PhoneVerification  string  `gorm:"size:16;default:unverified" json:"phone_verification"`
	IDVerification     string  `gorm:"size:16;default:unverified" json:"id_verification"`
	Phone              *string `gorm:"size:32" json:"-"`
	VerificationPhoto  *string `gorm:"size:512" json:"-"`
	IDDocument         *string `gorm:"size:512" json:"-"`

	SwipeCount       int        `gorm:"not null;default:0" json:"-"`
	SwipeResetAt     *time.Time `json:"-"`
	SuperLikeCount   int        `gorm:"not null;default:0" json:"-"`
	SuperLikeResetAt *time.Time `json:"-"`
	RoseCount        int        `gorm:"not null;default:0" json:"-"`
	RoseResetAt      *time.Time `json:"-"`
	ExtraSuperLikes  int        `gorm:"not null;default:0" json:"super_likes"`
	ExtraRoses       int        `gorm:"not null;default:0" json:"roses"`

	IsPremium        bool       `gorm:"not null;default:false" json:"is_premium"`
	PremiumPlan      *string    `gorm:"size:32" json:"premium_plan"`
	PremiumExpiresAt *time.Time `json:"premium_expires_at"`
	IsAmbassador     bool       `gorm:"not null;default:false" json:"is_ambassador"`

	IsProfileComplete bool      `gorm:"not null;default:false;index:idx_users_discoverable,priority:1" json:"is_profile_complete"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	LastActive        time.Time `json:"last_active"`

	// Distance is attached by discovery, never stored.
	Distance *float64 `gorm:"-" json:"distance,omitempty"`
}

// PremiumActive reports whether premium is on and not expired at now.
func (u *User) PremiumActive(now time.Time) bool {
	if !u.IsPremium {
		return false
	}
	return u.PremiumExpiresAt == nil || u.PremiumExpiresAt.After(now)
}

// Verified reports the discovery precondition on the requester.
func (u *User) Verified() bool {
	return u.VerificationStatus == VerificationVerified
}

// ComputeCompleteness derives is_profile_complete from the profile fields.
func (u *User) ComputeCompleteness() bool {
	u.IsProfileComplete = u.Age != nil && *u.Age > 0 &&
		u.Gender != nil && *u.Gender != "" &&
		u.InterestedIn != nil && *u.InterestedIn != "" &&
		len(u.Photos) > 0 &&
		len(u.Prompts) > 0
	return u.IsProfileComplete
}

// UserSession backs the HTTP-only session_token cookie.
type UserSession struct {
	Token     string    `gorm:"primaryKey;size:96"`
	UserID    string    `gorm:"size:32;not null;index"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Like is a directed edge liker → liked, unique per ordered pair.
//
// Indexes:
//   - idx_like_pair(liker_id, liked_user_id) unique
//     Duplicate guard and O(1) reverse-edge lookup.
//   - idx_like_received(liked_user_id, created_at DESC)
//     "Who liked me" lists with pagination.
type Like struct {
	ID           string    `gorm:"primaryKey;size:32" json:"like_id"`
	LikerID      string    `gorm:"size:32;not null;uniqueIndex:idx_like_pair,priority:1" json:"liker_id"`
	LikedUserID  string    `gorm:"size:32;not null;uniqueIndex:idx_like_pair,priority:2;index:idx_like_received,priority:1" json:"liked_user_id"`
	LikeType     string    `gorm:"size:16;not null;default:regular" json:"like_type"`
	LikedSection *string   `gorm:"size:64" json:"liked_section"`
	Comment      *string   `gorm:"size:500" json:"comment"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index:idx_like_received,priority:2,sort:desc" json:"created_at"`

	Liker *User `gorm:"-" json:"liker,omitempty"`
}

// Match is an undirected pairing stored with User1ID < User2ID.
type Match struct {
	ID               string     `gorm:"primaryKey;size:32" json:"match_id"`
	User1ID          string     `gorm:"size:32;not null;uniqueIndex:idx_match_pair,priority:1" json:"user1_id"`
	User2ID          string     `gorm:"size:32;not null;uniqueIndex:idx_match_pair,priority:2;index" json:"user2_id"`
	MatchedAt        time.Time  `gorm:"not null;index" json:"matched_at"`
	LastMessage      *string    `gorm:"type:text" json:"last_message"`
	LastMessageAt    *time.Time `gorm:"index" json:"last_message_at"`
	FirstMessageSent bool       `gorm:"not null;default:false" json:"first_message_sent"`
	FirstMessageAt   *time.Time `json:"first_message_at"`
	WarningSent      bool       `gorm:"not null;default:false" json:"warning_sent"`
	WarningSentAt    *time.Time `json:"warning_sent_at"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`

	OtherUser *User `gorm:"-" json:"other_user,omitempty"`
}

// Partner returns the id of the other member, or "" if userID is not in the match.
func (m *Match) Partner(userID string) string {
	switch userID {
	case m.User1ID:
		return m.User2ID
	case m.User2ID:
		return m.User1ID
	}
	return ""
}

// Has reports whether userID is a member.
func (m *Match) Has(userID string) bool {
	return m.User1ID == userID || m.User2ID == userID
}

type Block struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	BlockerID string    `gorm:"size:32;not null;uniqueIndex:idx_block_pair,priority:1" json:"blocker_id"`
	BlockedID string    `gorm:"size:32;not null;uniqueIndex:idx_block_pair,priority:2;index" json:"blocked_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type Report struct {
	ID         string    `gorm:"primaryKey;size:32" json:"report_id"`
	ReporterID string    `gorm:"size:32;not null;index" json:"reporter_id"`
	ReportedID string    `gorm:"size:32;not null;index" json:"reported_id"`
	Reason     string    `gorm:"size:64;not null" json:"reason"`
	Details    *string   `gorm:"type:text" json:"details"`
	Status     string    `gorm:"size:16;default:open" json:"status"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

const (
	MessageText  = "text"
	MessageGIF   = "gif"
	MessageVoice = "voice"
	MessageImage = "image"
	MessageGift  = "gift"
)

type Message struct {
	ID          string            `gorm:"primaryKey;size:32" json:"message_id"`
	MatchID     string            `gorm:"size:32;not null;index:idx_message_match,priority:1" json:"match_id"`
	SenderID    string            `gorm:"size:32;not null" json:"sender_id"`
	MessageType string            `gorm:"size:16;not null;default:text" json:"message_type"`
	Content     string            `gorm:"type:text" json:"content"`
	MediaURL    *string           `gorm:"size:512" json:"media_url"`
	Read        bool              `gorm:"column:is_read;not null;default:false" json:"read"`
	ReadAt      *time.Time        `json:"read_at"`
	EditedAt    *time.Time        `json:"edited_at"`
	Deleted     bool              `gorm:"not null;default:false" json:"deleted"`
	Reactions   map[string]string `gorm:"serializer:json;type:text" json:"reactions"`
	CreatedAt   time.Time         `gorm:"autoCreateTime;index:idx_message_match,priority:2" json:"created_at"`
}

type Notification struct {
	ID        string         `gorm:"primaryKey;size:32" json:"notification_id" bson:"_id"`
	UserID    string         `gorm:"size:32;not null;index:idx_notification_user,priority:1" json:"user_id" bson:"user_id"`
	Type      string         `gorm:"size:32;not null" json:"type" bson:"type"`
	Title     string         `gorm:"size:255" json:"title" bson:"title"`
	Body      string         `gorm:"type:text" json:"body" bson:"body"`
	Data      map[string]any `gorm:"serializer:json;type:text" json:"data" bson:"data,omitempty"`
	Read      bool           `gorm:"column:is_read;not null;default:false" json:"read" bson:"read"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index:idx_notification_user,priority:2,sort:desc" json:"created_at" bson:"created_at"`
}

// PushSubscription is a browser web push endpoint.
type PushSubscription struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"size:32;not null;index"`
	Endpoint  string    `gorm:"size:512;not null;uniqueIndex"`
	P256dh    string    `gorm:"size:255;not null"`
	Auth      string    `gorm:"size:255;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

const (
	CallRinging  = "ringing"
	CallActive   = "active"
	CallRejected = "rejected"
	CallEnded    = "ended"
)

type Call struct {
	ID         string     `gorm:"primaryKey;size:32" json:"call_id"`
	MatchID    string     `gorm:"size:32;not null;index" json:"match_id"`
	CallerID   string     `gorm:"size:32;not null" json:"caller_id"`
	CalleeID   string     `gorm:"size:32;not null" json:"callee_id"`
	CallType   string     `gorm:"size:8;not null" json:"call_type"`
	Status     string     `gorm:"size:16;not null" json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	AnsweredAt *time.Time `json:"answered_at"`
	EndedAt    *time.Time `json:"ended_at"`
	Duration   int        `json:"duration"`
}

// Other returns the opposite party, or "" if userID is not on the call.
func (c *Call) Other(userID string) string {
	switch userID {
	case c.CallerID:
		return c.CalleeID
	case c.CalleeID:
		return c.CallerID
	}
	return ""
}

// Transaction is one Stripe checkout session.
type Transaction struct {
	ID            string    `gorm:"primaryKey;size:32" json:"transaction_id"`
	SessionID     string    `gorm:"size:255;not null;uniqueIndex" json:"session_id"`
	UserID        string    `gorm:"size:32;not null;index" json:"user_id"`
	PackageID     string    `gorm:"size:32;not null" json:"package_id"`
	Amount        int64     `gorm:"not null" json:"amount"`
	Currency      string    `gorm:"size:8;not null" json:"currency"`
	Status        string    `gorm:"size:32;not null" json:"status"`
	PaymentStatus string    `gorm:"size:32;not null" json:"payment_status"`
	Fulfilled     bool      `gorm:"not null;default:false" json:"fulfilled"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// DailyPick stores one user's picks for one UTC date.
type DailyPick struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"size:32;not null;uniqueIndex:idx_daily_pick,priority:1"`
	Date      string    `gorm:"size:10;not null;uniqueIndex:idx_daily_pick,priority:2"`
	PickIDs   []string  `gorm:"serializer:json;type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

type VirtualGift struct {
	ID          string    `gorm:"primaryKey;size:32" json:"id"`
	MatchID     string    `gorm:"size:32;not null;index" json:"match_id"`
	SenderID    string    `gorm:"size:32;not null" json:"sender_id"`
	RecipientID string    `gorm:"size:32;not null;index" json:"recipient_id"`
	GiftID      string    `gorm:"size:32;not null" json:"gift_id"`
	Message     *string   `gorm:"size:500" json:"message"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type IcebreakerSession struct {
	ID              string                    `gorm:"primaryKey;size:32" json:"session_id"`
	MatchID         string                    `gorm:"size:32;not null;index" json:"match_id"`
	GameType        string                    `gorm:"size:32;not null" json:"game_type"`
	StartedBy       string                    `gorm:"size:32;not null" json:"started_by"`
	Questions       []any                     `gorm:"serializer:json;type:text" json:"questions"`
	CurrentQuestion int                       `gorm:"not null;default:0" json:"current_question"`
	Answers         map[int]map[string]string `gorm:"serializer:json;type:text" json:"answers"`
	Status          string                    `gorm:"size:16;not null" json:"status"`
	CreatedAt       time.Time                 `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time                 `gorm:"autoUpdateTime" json:"updated_at"`
}

// Models lists every table for AutoMigrate.
func Models() []any {
	return []any{
		&User{}, &UserSession{}, &Like{}, &Match{}, &Block{}, &Report{},
		&Message{}, &Notification{}, &PushSubscription{}, &Call{},
		&Transaction{}, &DailyPick{}, &VirtualGift{}, &IcebreakerSession{},
	}
}
