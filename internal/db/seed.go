package db

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DemoPassword is the password of every seeded demo account.
const DemoPassword = "password123"

type demoProfile struct {
	name      string
	age       int
	gender    string
	city      string
	country   string
	lat, lng  float64
	bio       string
	interests []string
	height    int
	education string
	purpose   string
	photo     string
}

var demoProfiles = []demoProfile{
	{"Emma Wilson", 26, "female", "New York", "USA", 40.7128, -74.0060,
		"Adventure seeker | Coffee addict | Dog mom | Love hiking and trying new restaurants!",
		[]string{"Travel", "Hiking", "Coffee", "Dogs", "Food"}, 165, "Bachelors", "Long-term Relationship",
		"photo-1494790108377-be9c29b29330"},
	{"Sophie Chen", 24, "female", "San Francisco", "USA", 37.7749, -122.4194,
		"Tech enthusiast | Yoga lover | Foodie | Always down for a spontaneous road trip!",
		[]string{"Technology", "Yoga", "Food", "Travel", "Photography"}, 160, "Masters", "Long-term Relationship",
		"photo-1524504388940-b1c1722653e1"},
	{"Maya Rodriguez", 28, "female", "Los Angeles", "USA", 34.0522, -118.2437,
		"Artist by day | Dancer by night | Beach lover | Looking for someone to share sunsets with!",
		[]string{"Art", "Dancing", "Beach", "Music", "Movies"}, 170, "Bachelors", "Casual Dating",
		"photo-1488426862026-3ee34a7d66df"},
	{"Isabella Martinez", 27, "female", "Miami", "USA", 25.7617, -80.1918,
		"Fitness junkie | Salsa dancer | Sunday brunch is my religion",
		[]string{"Fitness", "Dancing", "Food", "Beach", "Travel"}, 168, "Bachelors", "Long-term Relationship",
		"photo-1529626455594-4ff0802cfb7e"},
	{"Olivia Brown", 29, "female", "London", "UK", 51.5074, -0.1278,
		"Bookworm and theatre lover. Will judge you by your tea order.",
		[]string{"Books", "Theatre", "Tea", "Museums", "Writing"}, 163, "Masters", "Long-term Relationship",
		"photo-1517841905240-472988babdf9"},
	{"Aiko Tanaka", 25, "female", "Tokyo", "Japan", 35.6762, 139.6503,
		"Ramen hunter, amateur photographer, karaoke champion.",
		[]string{"Photography", "Food", "Music", "Gaming", "Travel"}, 158, "Bachelors", "Friendship",
		"photo-1534528741775-53994a69daeb"},
	{"James Carter", 29, "male", "New York", "USA", 40.7306, -73.9352,
		"Runner, home cook, and terrible at staying indoors on weekends.",
		[]string{"Running", "Cooking", "Travel", "Coffee", "Music"}, 183, "Masters", "Long-term Relationship",
		"photo-1500648767791-00dcc994a43e"},
	{"Liam Nguyen", 27, "male", "San Francisco", "USA", 37.7849, -122.4094,
		"Software engineer who climbs on weekends. Ask me about my sourdough.",
		[]string{"Climbing", "Technology", "Baking", "Hiking", "Board Games"}, 178, "Bachelors", "Long-term Relationship",
		"photo-1506794778202-cad84cf45f1d"},
	{"Noah Thompson", 31, "male", "Los Angeles", "USA", 34.0622, -118.2537,
		"Musician and surfer. Looking for a duet partner.",
		[]string{"Music", "Surfing", "Beach", "Movies", "Art"}, 180, "Bachelors", "Casual Dating",
		"photo-1507003211169-0a1dd7228f2d"},
	{"Mateo Garcia", 28, "male", "Miami", "USA", 25.7717, -80.2018,
		"Chef in training. I will cook for you, you pick the playlist.",
		[]string{"Cooking", "Dancing", "Food", "Fitness", "Travel"}, 176, "Associate", "Long-term Relationship",
		"photo-1492562080023-ab3db95bfbce"},
	{"Oliver Smith", 30, "male", "London", "UK", 51.5174, -0.1378,
		"Architect, cyclist, museum wanderer. Always up for a pub quiz.",
		[]string{"Architecture", "Cycling", "Museums", "Trivia", "Books"}, 185, "Masters", "Long-term Relationship",
		"photo-1519085360753-af0119f7cbe7"},
	{"Kenji Sato", 26, "male", "Tokyo", "Japan", 35.6862, 139.6603,
		"Game designer. Coffee snob. Let's find the best izakaya in town.",
		[]string{"Gaming", "Coffee", "Design", "Food", "Anime"}, 174, "Bachelors", "Friendship",
		"photo-1504257432389-52343af06ae3"},
}

var demoPrompts = []Prompt{
	{Question: "A perfect Sunday looks like...", Answer: "Long brunch, a walk, and a good movie."},
	{Question: "I'm looking for...", Answer: "Someone curious who laughs easily."},
}

// DemoUserID returns the stable id of the i-th demo profile.
func DemoUserID(i int) string { return fmt.Sprintf("demo_%02d", i+1) }

// SeedTestData inserts the demo profiles and a few pending likes between them.
//
// Behavior:
//   - Idempotent: existing demo rows are left untouched.
//   - Every demo account can sign in with DemoPassword.
//   - Each woman has liked the man in the same city, so liking back makes a match.
//
// Works on both MySQL and SQLite.
func SeedTestData(db *gorm.DB) error {
	ctx := context.Background()
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	hashed := string(hash)
	now := time.Now().UTC()

	users := make([]User, 0, len(demoProfiles))
	for i, p := range demoProfiles {
		interested := "male"
		if p.gender == "male" {
			interested = "female"
		}
		photo := "https://images.unsplash.com/" + p.photo + "?w=400&h=500&fit=crop"
		first := strings.ToLower(strings.Fields(p.name)[0])
		u := User{
			ID:                 DemoUserID(i),
			Email:              first + ".demo@ember.app",
			PasswordHash:       &hashed,
			Name:               p.name,
			Picture:            &photo,
			Age:                ptr(p.age),
			Gender:             ptr(p.gender),
			InterestedIn:       ptr(interested),
			Bio:                ptr(p.bio),
			Photos:             []string{photo},
			Prompts:            demoPrompts,
			Interests:          p.interests,
			Height:             ptr(p.height),
			Education:          ptr(p.education),
			DatingPurpose:      ptr(p.purpose),
			Languages:          []string{"English"},
			PreferredLanguage:  "en",
			VerificationStatus: VerificationVerified,
			PhotoVerification:  VerificationVerified,
			PhoneVerification:  VerificationUnverified,
			IDVerification:     VerificationUnverified,
			Location: Location{
				City:      ptr(p.city),
				Country:   ptr(p.country),
				Latitude:  ptr(p.lat),
				Longitude: ptr(p.lng),
			},
			CreatedAt:  now.Add(-time.Duration(24+r.Intn(24*60)) * time.Hour),
			LastActive: now.Add(-time.Duration(r.Intn(72)) * time.Hour),
		}
		u.IsProfileComplete = u.ComputeCompleteness()
		users = append(users, u)
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&users)
		if res.Error != nil {
			return fmt.Errorf("failed to seed users: %w", res.Error)
		}

		var likes []Like
		half := len(demoProfiles) / 2
		for i := 0; i < half; i++ {
			likes = append(likes, Like{
				ID:          fmt.Sprintf("like_demo_%02d", i+1),
				LikerID:     DemoUserID(i),
				LikedUserID: DemoUserID(i + half),
				LikeType:    LikeRegular,
				CreatedAt:   now.Add(-time.Duration(r.Intn(12)+1) * time.Hour),
			})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&likes).Error; err != nil {
			return fmt.Errorf("failed to seed likes: %w", err)
		}
		return nil
	})
}

func ptr[T any](v T) *T { return &v }
