package identity

// ActorContext identifies the user performing a request. It is passed
// explicitly into every authorization and query call; nothing reads the
// current actor from ambient state.
type ActorContext struct {
	UserID         int64
	Role           Role
	OrganisationID int64
}

func (a ActorContext) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a ActorContext) Valid() bool {
	return a.UserID > 0 && a.Role.Valid()
}
