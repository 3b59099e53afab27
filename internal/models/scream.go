package models

// Scream represents a post. LikeCount and CommentCount are denormalized and
// recomputed from the likes and comments collections.
type Scream struct {
	ScreamID     string `json:"screamId"`
	Body         string `json:"body"`
	UserHandle   string `json:"userHandle"`
	UserImage    string `json:"userImage"`
	CreatedAt    string `json:"createdAt"`
	LikeCount    int    `json:"likeCount"`
	CommentCount int    `json:"commentCount"`
}

func (s *Scream) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"body":         s.Body,
		"userHandle":   s.UserHandle,
		"userImage":    s.UserImage,
		"createdAt":    s.CreatedAt,
		"likeCount":    s.LikeCount,
		"commentCount": s.CommentCount,
	}
}

// ScreamDetail is a scream together with its comments, newest first
type ScreamDetail struct {
	Scream
	Comments []Comment `json:"comments"`
}

// CreateScreamRequest defines the request body for posting a scream
type CreateScreamRequest struct {
	Body string `json:"body" validate:"notblank,max=1000"`
}
