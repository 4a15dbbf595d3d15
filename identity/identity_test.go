package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	r, ok := ParseRole(" distributor ")
	assert.True(t, ok)
	assert.Equal(t, Distributor, r)

	r, ok = ParseRole("ADMIN")
	assert.True(t, ok)
	assert.Equal(t, Admin, r)

	_, ok = ParseRole("superuser")
	assert.False(t, ok)
}

func TestCanReadApplication(t *testing.T) {
	d := uint(7)
	other := uint(8)

	tests := []struct {
		name        string
		caller      Identity
		owner       uint
		distributor *uint
		want        bool
	}{
		{"admin reads anything", Identity{UserID: 1, Role: Admin}, 3, nil, true},
		{"owner reads own", Identity{UserID: 3, Role: Customer}, 3, nil, true},
		{"customer cannot read others", Identity{UserID: 4, Role: Customer}, 3, nil, false},
		{"assigned distributor", Identity{UserID: 7, Role: Distributor}, 3, &d, true},
		{"other distributor", Identity{UserID: 7, Role: Distributor}, 3, &other, false},
		{"unassigned record", Identity{UserID: 7, Role: Distributor}, 3, nil, false},
		{"zero identity", Identity{}, 0, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanReadApplication(tt.caller, tt.owner, tt.distributor))
		})
	}
}

func TestRolePredicates(t *testing.T) {
	admin := Identity{UserID: 1, Role: Admin}
	customer := Identity{UserID: 2, Role: Customer}
	distributor := Identity{UserID: 3, Role: Distributor}

	assert.True(t, CanManageCatalog(admin))
	assert.False(t, CanManageCatalog(distributor))
	assert.True(t, CanSubmitApplication(customer))
	assert.False(t, CanSubmitApplication(admin))
	assert.True(t, CanPostFeedback(customer))
	assert.False(t, CanViewFeedback(customer))
	assert.True(t, CanViewFeedback(admin))
	assert.True(t, CanManageNotifications(admin))

	assert.True(t, RequiresProfile(Customer))
	assert.True(t, RequiresProfile(Distributor))
	assert.False(t, RequiresProfile(Admin))
}
