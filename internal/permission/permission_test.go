package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BaGreal2/yamdb-server/internal/apperror"
	"github.com/BaGreal2/yamdb-server/internal/model"
)

var (
	anon      *Actor
	user      = &Actor{ID: 1, Username: "alice", Role: model.RoleUser}
	other     = &Actor{ID: 2, Username: "bob", Role: model.RoleUser}
	moderator = &Actor{ID: 3, Username: "mod", Role: model.RoleModerator}
	admin     = &Actor{ID: 4, Username: "root", Role: model.RoleAdmin}
	superuser = &Actor{ID: 5, Username: "su", Role: model.RoleUser, IsSuperuser: true}

	writes = []Action{Create, Update, PartialUpdate, Destroy}
	reads  = []Action{List, Retrieve}
)

func kind(err error) apperror.Kind {
	if err == nil {
		return -1
	}
	return apperror.As(err).Kind
}

func TestCatalogReadableByAnyone(t *testing.T) {
	for _, r := range []Resource{Categories, Genres, Titles, Reviews, Comments} {
		for _, a := range reads {
			for _, actor := range []*Actor{anon, user, moderator, admin} {
				assert.NoError(t, Check(actor, r, a, 0, false), "%s %s", r, a)
			}
		}
	}
}

func TestCatalogWritesNeedAdmin(t *testing.T) {
	for _, r := range []Resource{Categories, Genres, Titles} {
		for _, a := range writes {
			assert.Equal(t, apperror.KindUnauthorized, kind(Check(anon, r, a, 0, false)))
			assert.Equal(t, apperror.KindPermission, kind(Check(user, r, a, 0, false)))
			assert.Equal(t, apperror.KindPermission, kind(Check(moderator, r, a, 0, false)))
			assert.NoError(t, Check(admin, r, a, 0, false))
			assert.NoError(t, Check(superuser, r, a, 0, false))
		}
	}
}

func TestContentWrites(t *testing.T) {
	for _, r := range []Resource{Reviews, Comments} {
		assert.Equal(t, apperror.KindUnauthorized, kind(Check(anon, r, Create, 0, false)))
		assert.NoError(t, Check(user, r, Create, 0, false))

		for _, a := range []Action{Update, PartialUpdate, Destroy} {
			assert.NoError(t, Check(user, r, a, user.ID, true), "author")
			assert.NoError(t, Check(moderator, r, a, user.ID, true), "moderator")
			assert.NoError(t, Check(admin, r, a, user.ID, true), "admin")
			assert.NoError(t, Check(superuser, r, a, user.ID, true), "superuser")

			err := Check(other, r, a, user.ID, true)
			assert.Equal(t, apperror.KindPermission, kind(err))
			assert.Equal(t, apperror.LevelObject, apperror.As(err).Level)
		}
	}
}

func TestUserManagement(t *testing.T) {
	for _, a := range append(reads, writes...) {
		assert.Equal(t, apperror.KindUnauthorized, kind(Check(anon, Users, a, 0, false)))
		err := Check(moderator, Users, a, 0, false)
		assert.Equal(t, apperror.KindPermission, kind(err))
		assert.Equal(t, apperror.LevelRequest, apperror.As(err).Level)
		assert.NoError(t, Check(admin, Users, a, 0, false))
		assert.NoError(t, Check(superuser, Users, a, 0, false))
	}
}

func TestSelfProfile(t *testing.T) {
	assert.Equal(t, apperror.KindUnauthorized, kind(Check(anon, Self, Retrieve, 0, false)))
	for _, actor := range []*Actor{user, moderator, admin} {
		assert.NoError(t, Check(actor, Self, PartialUpdate, actor.ID, true))
	}
	assert.Equal(t, apperror.KindPermission, kind(Check(other, Self, PartialUpdate, user.ID, true)))
}

func TestActorHelpers(t *testing.T) {
	assert.Nil(t, NewActor(nil))
	a := NewActor(&model.User{ID: 9, Username: "x", Role: model.RoleAdmin})
	assert.True(t, a.IsAdmin())
	assert.False(t, anon.IsAdmin())
	assert.False(t, anon.Owns(0))
	assert.True(t, List.Safe())
	assert.False(t, Destroy.Safe())
	assert.IsType(t, AdminOnly{}, For("unknown"))
}
