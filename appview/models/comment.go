package models

import "time"

// Comment is append-only; comments are only creatable once the
// capsule's unlock condition has been satisfied.
type Comment struct {
	Id        string
	CapsuleId string
	UserId    string
	UserName  string
	Body      string
	Created   time.Time
}
