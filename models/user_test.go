package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfileStateBasicFields(t *testing.T) {
	u := User{UserID: "u1", Role: []string{RolePatient}}
	assert.Equal(t, ProfileIncomplete, u.ProfileState())

	u.FirstName = "Ada"
	assert.Equal(t, ProfileIncomplete, u.ProfileState())

	u.PhoneNumber = "+15550100"
	assert.Equal(t, ProfileComplete, u.ProfileState())
}

func TestProfileStateCredentialedRoles(t *testing.T) {
	base := User{UserID: "u1", FirstName: "Ada", PhoneNumber: "+15550100"}

	for _, role := range []string{RoleDoctor, RoleSupplier, RoleImporter} {
		u := base
		u.Role = []string{role}
		assert.Equal(t, ProfileIncomplete, u.ProfileState(), role)
		u.LicenseNumber = "LIC-1"
		assert.Equal(t, ProfileComplete, u.ProfileState(), role)
	}

	facility := base
	facility.Role = []string{RoleFacility}
	assert.Equal(t, ProfileIncomplete, facility.ProfileState())
	facility.Organization = "Sunrise Clinic"
	assert.Equal(t, ProfileComplete, facility.ProfileState())
}

func TestProfileStateNoRole(t *testing.T) {
	u := User{UserID: "u1", FirstName: "Ada", PhoneNumber: "+15550100"}
	assert.Equal(t, ProfileIncomplete, u.ProfileState())
}

func TestHasRole(t *testing.T) {
	u := User{Role: []string{RoleImporter, RoleSupplier}}
	assert.True(t, u.HasRole(RoleSupplier))
	assert.False(t, u.HasRole(RoleAdmin))
}

func TestCartItemTotals(t *testing.T) {
	item := CartItem{BatchItems: []BatchItem{
		{BatchID: "b1", Quantity: 2, UnitPrice: 10},
		{BatchID: "b2", Quantity: 3, UnitPrice: 4},
	}}
	assert.Equal(t, 32.0, item.Subtotal())
	assert.Equal(t, 5, item.TotalQuantity())
}
