package domain

// ValueObject represents an immutable domain concept defined by its attributes.
type ValueObject interface {
	Equals(other ValueObject) bool
}

// OrganizationID identifies the tenant that owns a project. The engine only
// ever sees input pre-scoped to one organization, so this travels as opaque
// reference data across bounded contexts.
type OrganizationID struct {
	value string
}

// NewOrganizationID creates an OrganizationID from a string.
func NewOrganizationID(value string) OrganizationID {
	return OrganizationID{value: value}
}

// String returns the string representation of the OrganizationID.
func (o OrganizationID) String() string {
	return o.value
}

// Equals checks if two OrganizationIDs are equal.
func (o OrganizationID) Equals(other ValueObject) bool {
	if otherID, ok := other.(OrganizationID); ok {
		return o.value == otherID.value
	}
	return false
}

// IsEmpty returns true if the OrganizationID is empty.
func (o OrganizationID) IsEmpty() bool {
	return o.value == ""
}
