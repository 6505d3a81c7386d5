package access

// Action is what the actor wants to do to a resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionReview Action = "review"
)

// ResourceType is the kind of record being accessed.
type ResourceType string

const (
	ResourceEntry        ResourceType = "entry"
	ResourceGoal         ResourceType = "goal"
	ResourceUser         ResourceType = "user"
	ResourceTeam         ResourceType = "team"
	ResourceDepartment   ResourceType = "department"
	ResourceOrganisation ResourceType = "organisation"
)

// Resource is the reference the engine decides against. OwnerID is the owning
// user where one exists (the entry's author, the goal's setter, the user
// record itself); zero otherwise.
type Resource struct {
	Type           ResourceType
	ID             int64
	OwnerID        int64
	OrganisationID int64
}

func EntryResource(entryID, ownerID, organisationID int64) Resource {
	return Resource{Type: ResourceEntry, ID: entryID, OwnerID: ownerID, OrganisationID: organisationID}
}

func UserResource(userID, organisationID int64) Resource {
	return Resource{Type: ResourceUser, ID: userID, OwnerID: userID, OrganisationID: organisationID}
}

func GoalResource(goalID, setBy, organisationID int64) Resource {
	return Resource{Type: ResourceGoal, ID: goalID, OwnerID: setBy, OrganisationID: organisationID}
}
