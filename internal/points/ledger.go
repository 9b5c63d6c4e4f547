// Package points implements the points ledger. Every operation takes a value
// and returns a new one; nothing here mutates its input, so the results can
// be written back in a single store update.
package points

import (
	"math"
	"slices"

	"github.com/benvon/civiz/internal/models"
)

const (
	// VisionSubmission is credited for every submitted vision
	VisionSubmission = 3
	// ImageLike is credited to a user for each vision they like
	ImageLike = 1
	// FundingMultiplier converts a funded amount into points
	FundingMultiplier = 2

	// SubmitterBonusRate is the share of the submitter's points added to a
	// vision's display score.
	SubmitterBonusRate = 0.10
	// LikerContributionRate is the share of a liker's points added to the
	// vision they like, on top of the base ImageLike point.
	LikerContributionRate = 0.05
)

// Account is a points balance together with the set of visions its owner
// currently likes.
type Account struct {
	models.PointsAccount
	LikedVisions []string `json:"liked_visions"`
}

// Likes reports whether visionID is in the liked set
func (a Account) Likes(visionID string) bool {
	return slices.Contains(a.LikedVisions, visionID)
}

// OnVisionSubmitted credits a vision submission
func OnVisionSubmitted(a Account) Account {
	a.TotalPoints += VisionSubmission
	a.PointsFromVisions += VisionSubmission
	a.LikedVisions = slices.Clone(a.LikedVisions)
	return a
}

// SubmitVision credits a submission and returns the new vision's starting
// score, the submitter bonus computed on the balance before the credit.
func SubmitVision(a Account) (Account, int) {
	return OnVisionSubmitted(a), ImagePoints(0, a.TotalPoints)
}

// OnLike credits a like of visionID. Liking an already liked vision returns
// the account unchanged.
func OnLike(a Account, visionID string) Account {
	if a.Likes(visionID) {
		return a
	}
	a.TotalPoints += ImageLike
	a.PointsFromLikes += ImageLike
	a.LikedVisions = append(slices.Clone(a.LikedVisions), visionID)
	return a
}

// OnUnlike reverses OnLike. Unliking a vision that is not liked returns the
// account unchanged. Only points still held in PointsFromLikes are removed,
// so the total never drops below the sum of the other sources.
func OnUnlike(a Account, visionID string) Account {
	if !a.Likes(visionID) {
		return a
	}
	debit := min(ImageLike, a.PointsFromLikes)
	a.TotalPoints -= debit
	a.PointsFromLikes -= debit
	a.LikedVisions = slices.DeleteFunc(slices.Clone(a.LikedVisions), func(id string) bool {
		return id == visionID
	})
	return a
}

// OnFunding projects a funded amount into points
func OnFunding(amount int) int {
	if amount <= 0 {
		return 0
	}
	return amount * FundingMultiplier
}

// CreditFunding applies OnFunding(amount) to the account
func CreditFunding(a Account, amount int) Account {
	p := OnFunding(amount)
	a.TotalPoints += p
	a.PointsFromFunding += p
	a.LikedVisions = slices.Clone(a.LikedVisions)
	return a
}

// Merge adds another balance source by source, ignoring negative
// components. It is used to carry guest points into an account.
func Merge(a Account, add models.PointsAccount) Account {
	v := max(0, add.PointsFromVisions)
	l := max(0, add.PointsFromLikes)
	f := max(0, add.PointsFromFunding)
	a.PointsFromVisions += v
	a.PointsFromLikes += l
	a.PointsFromFunding += f
	a.TotalPoints += v + l + f
	a.LikedVisions = slices.Clone(a.LikedVisions)
	return a
}

// Contribution is what a liker with likerTotal points adds to a vision
func Contribution(likerTotal int) int {
	return ImageLike + int(math.Floor(float64(max(0, likerTotal))*LikerContributionRate))
}

// ImagePoints is a vision's display score: one point per like plus a bonus
// of SubmitterBonusRate of the submitter's points.
func ImagePoints(likes, submitterPoints int) int {
	return max(0, likes)*ImageLike + int(math.Floor(float64(max(0, submitterPoints))*SubmitterBonusRate))
}
