package graph

type FollowRequest struct {
	FollowerID int64 `json:"follower_id" query:"follower_id"`
	FollowedID int64 `json:"followed_id" query:"followed_id"`
}

// Counts holds the denormalized counters next to the edge set sizes they
// must agree with.
type Counts struct {
	UserID         int64 `json:"user_id"`
	FollowerCount  int64 `json:"follower_count"`
	FollowingCount int64 `json:"following_count"`
	FollowerEdges  int64 `json:"follower_edges"`
	FollowingEdges int64 `json:"following_edges"`
}

func (c Counts) Consistent() bool {
	return c.FollowerCount == c.FollowerEdges && c.FollowingCount == c.FollowingEdges
}
