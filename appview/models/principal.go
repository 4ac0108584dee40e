package models

// Principal is the authenticated identity attached to a request by the
// session layer. Registration and credentials live elsewhere; this is
// all the core ever sees of a user.
type Principal struct {
	Id    string
	Email string
	Name  string
}
