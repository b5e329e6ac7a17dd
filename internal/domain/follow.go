package domain

import "time"

// Follow records that one user follows another. The (followerId,
// followedId) pair is unique; following twice is a no-op.
type Follow struct {
	ID         int       `json:"id"`
	FollowerID int       `json:"followerId"`
	FollowedID int       `json:"followedId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// FollowRequest is the body of follow/unfollow endpoints
type FollowRequest struct {
	FollowerID int `json:"followerId"`
}
