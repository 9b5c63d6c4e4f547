package models

// PointsAccount is a user's points balance broken down by source. The total
// always equals the sum of the three sources and no field is negative.
type PointsAccount struct {
	TotalPoints       int `json:"total_points"`
	PointsFromVisions int `json:"points_from_visions"`
	PointsFromLikes   int `json:"points_from_likes"`
	PointsFromFunding int `json:"points_from_funding"`
}

// Consistent reports whether the balance satisfies the account invariants
func (p PointsAccount) Consistent() bool {
	if p.TotalPoints < 0 || p.PointsFromVisions < 0 || p.PointsFromLikes < 0 || p.PointsFromFunding < 0 {
		return false
	}
	return p.TotalPoints == p.PointsFromVisions+p.PointsFromLikes+p.PointsFromFunding
}
