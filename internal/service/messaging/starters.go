package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/oggyb/ember/internal/db"
	"github.com/oggyb/ember/internal/degrade"
	svcErr "github.com/oggyb/ember/internal/errors"
	"github.com/oggyb/ember/internal/llm"
)

const starterCount = 3

var promptLibrary = []string{
	"A perfect Sunday looks like...",
	"I'm looking for someone who...",
	"The way to win me over is...",
	"My most irrational fear is...",
	"I geek out on...",
	"Two truths and a lie...",
	"Unusual skills I have...",
	"My simple pleasures are...",
	"I'll pick the restaurant if you...",
	"Together we could...",
	"I'm convinced that...",
	"Dating me is like...",
	"My love language is...",
	"I want someone who...",
	"The one thing I'd love to know about you is...",
}

// PromptLibrary returns the built-in profile prompts.
func PromptLibrary() []string {
	return append([]string(nil), promptLibrary...)
}

var genericStarters = []string{
	"If you could travel anywhere tomorrow, where would you go?",
	"What's something you're really passionate about that most people don't know?",
	"What's the best meal you've ever had?",
}

func personalStarters(name string) []string {
	if name == "" {
		name = "there"
	}
	return []string{
		fmt.Sprintf("Hey %s! What made you smile today?", name),
		"I noticed we have some things in common! What do you enjoy most about your interests?",
		"What's the story behind your profile? I'd love to know more!",
	}
}

// ConversationStarters asks the LLM for openers, personalized when otherID is set.
//
// Behavior:
//   - Unknown otherID, or a block between caller and otherID: 404.
//   - Any LLM failure returns the canned starters (personalized with the
//     other user's name when known).
func (s *Service) ConversationStarters(ctx context.Context, callerID, otherID string) ([]string, error) {
	var other *db.User
	if otherID != "" {
		u, err := s.users.FindByID(ctx, otherID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.NewNotFoundError("User")
		} else if err != nil {
			return nil, err
		}
		blocked, err := s.blocks.IsBlockedEither(ctx, callerID, otherID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, svcErr.NewNotFoundError("User")
		}
		other = u
	}

	system := "You are a helpful dating coach. Generate conversation starters that are fun, respectful, " +
		"and likely to get a response. Return only a JSON array of 3 strings."
	user := "Generate 3 creative, fun, and engaging conversation starters for a dating app."
	fallback := genericStarters
	if other != nil {
		profile, err := json.Marshal(map[string]any{
			"name":      other.Name,
			"interests": other.Interests,
			"bio":       other.Bio,
			"prompts":   other.Prompts,
		})
		if err != nil {
			return nil, err
		}
		system = "You are a helpful dating coach. Generate personalized conversation starters based on " +
			"the profile. Return only a JSON array of 3 strings."
		user = "Profile: " + string(profile)
		fallback = personalStarters(other.Name)
	}

	policy := degrade.Policy[[]string]{
		Name:    "llm_starters",
		Timeout: s.appCtx.Config.LLM.Timeout,
		Logger:  s.appCtx.Logger,
		Fallback: func(context.Context, error) ([]string, error) {
			return append([]string(nil), fallback...), nil
		},
	}
	return policy.Do(ctx, func(ctx context.Context) ([]string, error) {
		reply, err := s.llm.Complete(ctx, system, user, 200)
		if err != nil {
			return nil, err
		}
		starters, err := llm.Strings(reply)
		if err != nil {
			return nil, err
		}
		if len(starters) > starterCount {
			starters = starters[:starterCount]
		}
		return starters, nil
	})
}
