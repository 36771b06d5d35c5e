package domain

// Actor is the authenticated caller as seen by access control. Role always
// comes from the stored user, never from token claims.
type Actor struct {
	ID    string
	Role  Role
	Email string
	Name  string
}

// ActorFromUser builds an actor from a freshly loaded user.
func ActorFromUser(user *User) Actor {
	return Actor{ID: user.ID, Role: user.Role, Email: user.Email, Name: user.Name}
}
