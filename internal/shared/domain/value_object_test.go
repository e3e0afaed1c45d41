package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewOrganizationID(t *testing.T) {
	t.Run("creates OrganizationID from string", func(t *testing.T) {
		value := "org-123"
		orgID := NewOrganizationID(value)

		assert.Equal(t, value, orgID.String())
	})

	t.Run("creates empty OrganizationID", func(t *testing.T) {
		orgID := NewOrganizationID("")

		assert.Equal(t, "", orgID.String())
		assert.True(t, orgID.IsEmpty())
	})
}

func TestOrganizationID_Equals(t *testing.T) {
	t.Run("returns true for equal OrganizationIDs", func(t *testing.T) {
		a := NewOrganizationID("org-123")
		b := NewOrganizationID("org-123")

		assert.True(t, a.Equals(b))
	})

	t.Run("returns false for different OrganizationIDs", func(t *testing.T) {
		a := NewOrganizationID("org-123")
		b := NewOrganizationID("org-456")

		assert.False(t, a.Equals(b))
	})

	t.Run("returns false for different value object types", func(t *testing.T) {
		orgID := NewOrganizationID("org-123")
		other := otherValueObject{}

		assert.False(t, orgID.Equals(other))
	})
}

type otherValueObject struct{}

func (otherValueObject) Equals(other ValueObject) bool { return false }
