package models

// Like represents a like on a scream. A (UserHandle, ScreamID) pair appears
// at most once; the handlers check before inserting.
type Like struct {
	ID         string `json:"-"`
	UserHandle string `json:"userHandle"`
	ScreamID   string `json:"screamId"`
	CreatedAt  string `json:"createdAt,omitempty"`
}

func (l *Like) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"userHandle": l.UserHandle,
		"screamId":   l.ScreamID,
		"createdAt":  l.CreatedAt,
	}
}
