package models

// Comment represents a comment on a scream
type Comment struct {
	Body       string `json:"body"`
	ScreamID   string `json:"screamId"`
	UserHandle string `json:"userHandle"`
	UserImage  string `json:"userImage"`
	CreatedAt  string `json:"createdAt"`
}

func (c *Comment) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"body":       c.Body,
		"screamId":   c.ScreamID,
		"userHandle": c.UserHandle,
		"userImage":  c.UserImage,
		"createdAt":  c.CreatedAt,
	}
}

// CreateCommentRequest defines the request body for commenting on a scream.
// Errors are reported under the "comment" key.
type CreateCommentRequest struct {
	Body string `json:"body" errkey:"comment" validate:"notblank,max=1000"`
}
