// Package conversion maps the interaction that stopped an anonymous user to
// the sign-up prompt shown for it.
package conversion

import "strings"

// Trigger is the interaction that prompted a sign-up
type Trigger string

const (
	TriggerShare     Trigger = "share"
	TriggerLike      Trigger = "like"
	TriggerMyView    Trigger = "my-view"
	TriggerRateLimit Trigger = "rate-limit"
	TriggerWatermark Trigger = "watermark"
	TriggerDefault   Trigger = "default"
)

// Triggers lists every trigger with a dedicated bundle, in display order
var Triggers = []Trigger{TriggerShare, TriggerLike, TriggerMyView, TriggerRateLimit, TriggerWatermark, TriggerDefault}

// ParseTrigger normalizes s. Anything unrecognized becomes TriggerDefault.
func ParseTrigger(s string) Trigger {
	t := Trigger(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case TriggerShare, TriggerLike, TriggerMyView, TriggerRateLimit, TriggerWatermark, TriggerDefault:
		return t
	}
	return TriggerDefault
}

// Context is the interaction a prompt is being shown for. It is consumed once
// by whatever renders the prompt.
type Context struct {
	Trigger      Trigger `json:"trigger"`
	VisionID     string  `json:"vision_id,omitempty"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
}

// Presentation is the copy shown for a trigger
type Presentation struct {
	Trigger      Trigger  `json:"trigger"`
	Title        string   `json:"title"`
	Subtitle     string   `json:"subtitle"`
	Description  string   `json:"description"`
	CTALabel     string   `json:"cta_label"`
	Benefits     []string `json:"benefits"`
	VisionID     string   `json:"vision_id,omitempty"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
}

// Decide returns the presentation for c. It never fails: triggers outside the
// known set get the default bundle.
func Decide(c Context) Presentation {
	p := bundle(ParseTrigger(string(c.Trigger)))
	p.VisionID = c.VisionID
	p.ThumbnailURL = c.ThumbnailURL
	return p
}

// DecideTrigger is Decide without vision details
func DecideTrigger(t Trigger) Presentation {
	return Decide(Context{Trigger: t})
}

func bundle(t Trigger) Presentation {
	switch t {
	case TriggerShare:
		return Presentation{
			Trigger:     t,
			Title:       "Share Your Civic Vision",
			Subtitle:    "Create your free CIVIZ profile to share & climb the leaderboard",
			Description: "Show the world your vision and see how it ranks against other civic leaders",
			CTALabel:    "Create Profile & Share",
			Benefits: []string{
				"Climb the civic leaderboard",
				"Track your impact & reach",
				"Remove watermarks forever",
				"Unlimited AI generations",
			},
		}
	case TriggerLike:
		return Presentation{
			Trigger:     t,
			Title:       "Boost This Vision",
			Subtitle:    "Sign up to boost this vision and earn points",
			Description: "Your likes help great civic ideas rise to the top of the community",
			CTALabel:    "Sign Up & Like",
			Benefits: []string{
				"Boost amazing civic visions",
				"Earn points for every action",
				"Build your civic reputation",
				"Help great ideas go viral",
			},
		}
	case TriggerMyView:
		return Presentation{
			Trigger:     t,
			Title:       "Your Personal Civic Dashboard",
			Subtitle:    "Sign up to save your civic impact dashboard",
			Description: "Track all your visions, points, and community influence in one place",
			CTALabel:    "Create My Dashboard",
			Benefits: []string{
				"Personal impact dashboard",
				"Save all your AI visions",
				"Track your civic influence",
				"See your hottest content",
			},
		}
	case TriggerRateLimit:
		return Presentation{
			Trigger:     t,
			Title:       "You've Created Amazing Visions!",
			Subtitle:    "Sign up to continue unlimited civic visioning",
			Description: "You're clearly passionate about civic change. Join our community of civic visionaries!",
			CTALabel:    "Unlock Unlimited Visions",
			Benefits: []string{
				"Unlimited AI generations",
				"No daily limits ever",
				"Premium generation speed",
				"Watermark-free images",
			},
		}
	case TriggerWatermark:
		return Presentation{
			Trigger:     t,
			Title:       "Save Clean, Professional Images",
			Subtitle:    "Sign up to save and remove watermarks",
			Description: "Get clean, shareable images perfect for presentations and social media",
			CTALabel:    "Remove Watermarks",
			Benefits: []string{
				"Clean, professional images",
				"Perfect for social sharing",
				"Great for presentations",
				"Build your civic brand",
			},
		}
	default:
		return Presentation{
			Trigger:     TriggerDefault,
			Title:       "Join the Civic Revolution",
			Subtitle:    "Create your free account in 10 seconds",
			Description: "Be part of the community shaping the future of our cities",
			CTALabel:    "Join CIVIZ",
			Benefits: []string{
				"Unlimited AI generation",
				"Civic impact leaderboard",
				"Clean, watermark-free images",
				"Shape your city's future",
			},
		}
	}
}
