package discovery

import (
	"time"

	"github.com/oggyb/ember/internal/db"
	"github.com/oggyb/ember/internal/utils/geo"
)

// NewUserWindow marks accounts that get the "new" feed boost.
const NewUserWindow = 48 * time.Hour

// MatchesFilters applies the advanced filter document to one candidate.
// Every set field must hold; a constrained field the candidate left empty fails.
func MatchesFilters(f db.Filters, u *db.User) bool {
	if f.AgeMin != nil || f.AgeMax != nil {
		if u.Age == nil || !inRange(*u.Age, f.AgeMin, f.AgeMax) {
			return false
		}
	}
	if f.HeightMin != nil || f.HeightMax != nil {
		if u.Height == nil || !inRange(*u.Height, f.HeightMin, f.HeightMax) {
			return false
		}
	}

	return oneOf(f.EducationLevels, u.Education) &&
		overlaps(f.SpecificInterests, u.Interests) &&
		oneOf(f.Genders, u.Gender) &&
		oneOf(f.DatingPurposes, u.DatingPurpose) &&
		oneOf(f.Religions, u.Religion) &&
		overlaps(f.Languages, u.Languages) &&
		oneOf(f.ChildrenPreference, u.ChildrenPreference) &&
		oneOf(f.PoliticalViews, u.PoliticalView) &&
		oneOf(f.Pets, u.Pets) &&
		oneOf(f.Ethnicities, u.Ethnicity) &&
		oneOf(f.SubEthnicities, u.SubEthnicity)
}

func inRange(v int, lo, hi *int) bool {
	if lo != nil && v < *lo {
		return false
	}
	if hi != nil && v > *hi {
		return false
	}
	return true
}

// oneOf holds when set is empty or v is one of its members.
func oneOf(set []string, v *string) bool {
	if len(set) == 0 {
		return true
	}
	if v == nil {
		return false
	}
	for _, s := range set {
		if s == *v {
			return true
		}
	}
	return false
}

// overlaps holds when set is empty or shares an element with vals.
func overlaps(set, vals []string) bool {
	if len(set) == 0 {
		return true
	}
	want := make(map[string]struct{}, len(set))
	for _, s := range set {
		want[s] = struct{}{}
	}
	for _, v := range vals {
		if _, ok := want[v]; ok {
			return true
		}
	}
	return false
}

// applyDistance attaches distance where both sides have coordinates and drops
// candidates further than maxDistance. Candidates without coordinates stay.
func applyDistance(requester *db.User, users []db.User, maxDistance *float64) []db.User {
	if !requester.Location.HasCoordinates() {
		return users
	}
	lat, lon := *requester.Location.Latitude, *requester.Location.Longitude

	out := users[:0]
	for i := range users {
		u := users[i]
		if u.Location.HasCoordinates() {
			d := geo.Distance(lat, lon, *u.Location.Latitude, *u.Location.Longitude)
			if maxDistance != nil && d > *maxDistance {
				continue
			}
			rounded := geo.Round1(d)
			u.Distance = &rounded
		}
		out = append(out, u)
	}
	return out
}

// Prioritize reorders into new+ambassador, new, ambassador, rest.
// Order inside a bucket is the input order.
func Prioritize(users []db.User, now time.Time) []db.User {
	var buckets [4][]db.User
	for _, u := range users {
		isNew := now.Sub(u.CreatedAt) < NewUserWindow
		switch {
		case isNew && u.IsAmbassador:
			buckets[0] = append(buckets[0], u)
		case isNew:
			buckets[1] = append(buckets[1], u)
		case u.IsAmbassador:
			buckets[2] = append(buckets[2], u)
		default:
			buckets[3] = append(buckets[3], u)
		}
	}
	out := make([]db.User, 0, len(users))
	for _, b := range buckets {
		out = append(out, b...)
	}
	return out
}

// SharedInterests counts interests present on both profiles.
func SharedInterests(a, b *db.User) int {
	seen := make(map[string]struct{}, len(a.Interests))
	for _, i := range a.Interests {
		seen[i] = struct{}{}
	}
	n := 0
	for _, i := range b.Interests {
		if _, ok := seen[i]; ok {
			n++
			delete(seen, i)
		}
	}
	return n
}
