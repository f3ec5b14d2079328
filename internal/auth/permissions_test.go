package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"reviewhub/pkg/models"
)

func TestCanManageCatalog(t *testing.T) {
	assert.True(t, CanManageCatalog(models.RoleAdmin))
	assert.False(t, CanManageCatalog(models.RoleModerator))
	assert.False(t, CanManageCatalog(models.RoleUser))
	assert.False(t, CanManageCatalog(""))
}

func TestCanManageUsers(t *testing.T) {
	assert.True(t, CanManageUsers(models.RoleAdmin))
	assert.False(t, CanManageUsers(models.RoleModerator))
	assert.False(t, CanManageUsers(models.RoleUser))
}

func TestCanModifyContent(t *testing.T) {
	tests := []struct {
		name        string
		role        string
		requesterID string
		authorID    string
		want        bool
	}{
		{"author edits own content", models.RoleUser, "u1", "u1", true},
		{"other user denied", models.RoleUser, "u2", "u1", false},
		{"moderator edits anyone", models.RoleModerator, "u2", "u1", true},
		{"admin edits anyone", models.RoleAdmin, "u2", "u1", true},
		{"empty requester never owns", models.RoleUser, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanModifyContent(tt.role, tt.requesterID, tt.authorID))
		})
	}
}
