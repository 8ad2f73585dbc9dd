package domain

// Role names the access level of an actor. Roles are established by the
// surrounding authentication layer; the engine only consumes them.
type Role string

// Recognised roles.
const (
	// RoleAdmin has unrestricted access.
	RoleAdmin Role = "admin"
	// RoleEmployee may only operate on loans targeting their own person.
	RoleEmployee Role = "employee"
	// RoleCompany may operate on loans within their office scope.
	RoleCompany Role = "company"
)

// ActorContext carries the identity and scope of the caller into every engine
// operation. It replaces ambient session state so operations stay
// deterministic and testable.
type ActorContext struct {
	// Subject is an opaque identifier for the caller (login, token subject).
	Subject string
	Role    Role
	// PersonID links the actor to a person directory record, when known.
	PersonID *string
	// OfficeID bounds a company-scoped actor to one office, when set.
	OfficeID *string
}

// Scope describes the resolved reach of an operation for authorization.
// OfficeID and DepartmentID are filled from the resolved target where the
// directory allows it.
type Scope struct {
	Target       TargetRef
	OfficeID     *string
	DepartmentID *string
}
