package model

// User is the read-only view of the external user directory. This service
// never creates or mutates users; it only resolves ids for authorization and
// notification rendering.
type User struct {
	ID       string `json:"id,omitempty" bson:"_id,omitempty"`
	Username string `json:"username" bson:"username"`
	Email    string `json:"email" bson:"email"`
	Phone    string `json:"phone,omitempty" bson:"phone,omitempty"`
}
