package billing

import (
	"time"

	"github.com/oggyb/ember/internal/db"
)

const (
	kindPlan  = "plan"
	kindAddon = "addon"
)

// Package is one purchasable item. Amounts are in the smallest currency unit
// and are never taken from the client.
type Package struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Kind       string        `json:"kind"`
	Amount     int64         `json:"amount"`
	Duration   time.Duration `json:"-"`
	Days       int           `json:"days,omitempty"`
	SuperLikes int           `json:"super_likes,omitempty"`
	Roses      int           `json:"roses,omitempty"`
	Features   []string      `json:"features,omitempty"`
}

var premiumFeatures = []string{
	"Unlimited likes",
	"See who liked you",
	"Advanced filters",
	"Send premium gifts",
}

var plans = []Package{
	{ID: db.PlanWeekly, Name: "Ember Premium Weekly", Kind: kindPlan, Amount: 999, Days: 7, Features: premiumFeatures},
	{ID: db.PlanMonthly, Name: "Ember Premium Monthly", Kind: kindPlan, Amount: 2999, Days: 30, Features: premiumFeatures},
	{
		ID: db.PlanYearly, Name: "Ember Premium Yearly", Kind: kindPlan, Amount: 19999, Days: 365,
		Features: append(append([]string(nil), premiumFeatures...), "Unlimited super likes"),
	},
}

var addons = []Package{
	{ID: "roses_5", Name: "5 Roses", Kind: kindAddon, Amount: 499, Roses: 5},
	{ID: "super_likes_5", Name: "5 Super Likes", Kind: kindAddon, Amount: 499, SuperLikes: 5},
}

func init() {
	for i := range plans {
		plans[i].Duration = time.Duration(plans[i].Days) * 24 * time.Hour
	}
}

func findPackage(id string) (Package, bool) {
	for _, list := range [][]Package{plans, addons} {
		for _, p := range list {
			if p.ID == id {
				return p, true
			}
		}
	}
	return Package{}, false
}
