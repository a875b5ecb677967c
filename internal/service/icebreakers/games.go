package icebreakers

const (
	GameWouldYouRather = "would_you_rather"
	GameQuickQuestions = "quick_questions"
	GameThisOrThat     = "this_or_that"
)

// Choice is a two-option question.
type Choice struct {
	Q string `json:"q"`
	A string `json:"a"`
	B string `json:"b"`
}

// Game describes one mini-game in the catalog.
type Game struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	questions   []any
}

var games = []Game{
	{
		ID:          GameWouldYouRather,
		Name:        "Would You Rather",
		Description: "Pick one of two options and compare answers",
		Icon:        "🤔",
		questions: []any{
			Choice{Q: "Would you rather...", A: "Travel to the past", B: "Travel to the future"},
			Choice{Q: "Would you rather...", A: "Live by the beach", B: "Live in the mountains"},
			Choice{Q: "Would you rather...", A: "Have a picnic", B: "Go to a fancy dinner"},
			Choice{Q: "Would you rather...", A: "Read minds", B: "Be invisible"},
			Choice{Q: "Would you rather...", A: "Never use social media again", B: "Never watch TV again"},
			Choice{Q: "Would you rather...", A: "Go on a road trip", B: "Take a flight somewhere new"},
			Choice{Q: "Would you rather...", A: "Cook together", B: "Order takeout"},
			Choice{Q: "Would you rather...", A: "Have a big party", B: "Have a quiet night in"},
		},
	},
	{
		ID:          GameQuickQuestions,
		Name:        "Quick Questions",
		Description: "Answer short questions to get to know each other",
		Icon:        "⚡",
		questions: []any{
			"What's your favorite way to spend a weekend?",
			"What's the best trip you've ever taken?",
			"What song have you had on repeat lately?",
			"What's your go-to comfort food?",
			"What's something you're proud of this year?",
			"What's the last thing that made you laugh out loud?",
			"What's on your bucket list?",
			"Coffee order?",
		},
	},
	{
		ID:          GameThisOrThat,
		Name:        "This or That",
		Description: "Quick picks between two things",
		Icon:        "⚖️",
		questions: []any{
			Choice{Q: "This or that?", A: "Cats", B: "Dogs"},
			Choice{Q: "This or that?", A: "Sunrise", B: "Sunset"},
			Choice{Q: "This or that?", A: "Coffee", B: "Tea"},
			Choice{Q: "This or that?", A: "Books", B: "Movies"},
			Choice{Q: "This or that?", A: "Summer", B: "Winter"},
			Choice{Q: "This or that?", A: "City", B: "Countryside"},
			Choice{Q: "This or that?", A: "Sweet", B: "Savory"},
		},
	},
}

func findGame(id string) (Game, bool) {
	for _, g := range games {
		if g.ID == id {
			return g, true
		}
	}
	return Game{}, false
}
