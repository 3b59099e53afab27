package models

// Notification types
const (
	NotificationLike    = "like"
	NotificationComment = "comment"
)

// Notification is created by the change reactions. Its id is the id of the
// like or comment that caused it.
type Notification struct {
	NotificationID string `json:"notificationId,omitempty"`
	Recipient      string `json:"recipient"`
	Sender         string `json:"sender"`
	Type           string `json:"type"`
	ScreamID       string `json:"screamId"`
	CreatedAt      string `json:"createdAt"`
	Read           bool   `json:"read"`
}

func (n *Notification) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"recipient": n.Recipient,
		"sender":    n.Sender,
		"type":      n.Type,
		"screamId":  n.ScreamID,
		"createdAt": n.CreatedAt,
		"read":      n.Read,
	}
}

// MarkReadRequest is the body of POST /notifications: a list of ids
type MarkReadRequest struct {
	IDs []string `errkey:"notifications" validate:"min=1,dive,notblank"`
}
