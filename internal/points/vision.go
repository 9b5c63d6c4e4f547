package points

import "maps"

// VisionTally is the like state of one vision. LikedBy maps each liker to the
// contribution they added so an unlike removes exactly that amount.
type VisionTally struct {
	Likes   int            `json:"likes"`
	Points  int            `json:"points"`
	LikedBy map[string]int `json:"liked_by"`
}

// IsLikedBy reports whether userID currently likes the vision
func (v VisionTally) IsLikedBy(userID string) bool {
	_, ok := v.LikedBy[userID]
	return ok
}

// VisionOnLike records a like by userID whose balance is likerTotal
func VisionOnLike(v VisionTally, userID string, likerTotal int) VisionTally {
	if v.IsLikedBy(userID) {
		return v
	}
	c := Contribution(likerTotal)
	v.LikedBy = maps.Clone(v.LikedBy)
	if v.LikedBy == nil {
		v.LikedBy = make(map[string]int, 1)
	}
	v.LikedBy[userID] = c
	v.Likes++
	v.Points += c
	return v
}

// VisionOnUnlike removes userID's like and the contribution it recorded,
// flooring both counters at zero.
func VisionOnUnlike(v VisionTally, userID string) VisionTally {
	c, ok := v.LikedBy[userID]
	if !ok {
		return v
	}
	v.LikedBy = maps.Clone(v.LikedBy)
	delete(v.LikedBy, userID)
	v.Likes = max(0, v.Likes-1)
	v.Points = max(0, v.Points-c)
	return v
}

// Like applies a like to both sides at once. The contribution is computed
// from the liker's balance before the like is credited. If the account
// already likes the vision neither side changes.
func Like(a Account, v VisionTally, userID, visionID string) (Account, VisionTally) {
	if a.Likes(visionID) {
		return a, v
	}
	return OnLike(a, visionID), VisionOnLike(v, userID, a.TotalPoints)
}

// Unlike is the inverse of Like
func Unlike(a Account, v VisionTally, userID, visionID string) (Account, VisionTally) {
	if !a.Likes(visionID) {
		return a, v
	}
	return OnUnlike(a, visionID), VisionOnUnlike(v, userID)
}
