package service

import (
	"context"
	"testing"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelations_Follow(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", models.RoleUser)
	bob := env.user(t, "bob", models.RoleUser)

	assertKind(t, env.svc.Relations.Follow(ctx, alice.ID, alice.ID), apperr.KindValidation)
	assertKind(t, env.svc.Relations.Follow(ctx, alice.ID, 9999), apperr.KindNotFound)

	require.NoError(t, env.svc.Relations.Follow(ctx, alice.ID, bob.ID))
	assertKind(t, env.svc.Relations.Follow(ctx, alice.ID, bob.ID), apperr.KindConflict)

	unread, err := env.svc.Notifications.UnreadCount(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
	assert.Equal(t, 1, env.publisher.count(bob.ID))

	followers, err := env.svc.Relations.Followers(ctx, bob.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, followers.Items, 1)
	assert.Equal(t, "alice", followers.Items[0].Username)

	require.NoError(t, env.svc.Relations.Unfollow(ctx, alice.ID, bob.ID))
	assertKind(t, env.svc.Relations.Unfollow(ctx, alice.ID, bob.ID), apperr.KindNotFound)
}

func TestRelations_Block(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", models.RoleUser)
	bob := env.user(t, "bob", models.RoleUser)

	require.NoError(t, env.svc.Relations.Follow(ctx, alice.ID, bob.ID))
	require.NoError(t, env.svc.Relations.Follow(ctx, bob.ID, alice.ID))

	require.NoError(t, env.svc.Relations.Block(ctx, bob.ID, alice.ID))
	assertKind(t, env.svc.Relations.Block(ctx, bob.ID, alice.ID), apperr.KindConflict)

	following, err := env.svc.Relations.Following(ctx, alice.ID, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, following.Items, "block removes follows in both directions")

	assertKind(t, env.svc.Relations.Follow(ctx, alice.ID, bob.ID), apperr.KindForbidden)
	assertKind(t, env.svc.Relations.Follow(ctx, bob.ID, alice.ID), apperr.KindForbidden)

	_, err = env.svc.Users.GetPublic(ctx, alice.ID, bob.ID)
	assertKind(t, err, apperr.KindNotFound)

	profile, err := env.svc.Users.GetPublic(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, profile.IsBlocked)

	found, err := env.svc.Users.Search(ctx, alice.ID, "", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, found.Items)

	require.NoError(t, env.svc.Relations.Unblock(ctx, bob.ID, alice.ID))
	assertKind(t, env.svc.Relations.Unblock(ctx, bob.ID, alice.ID), apperr.KindNotFound)
}

func TestUsers_ProfileAndRole(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	admin := env.user(t, "root", models.RoleAdmin)
	alice := env.user(t, "alice", models.RoleUser)

	bio := "<b>Speedrunner</b> &amp; streamer"
	locale := "fr"
	profile, err := env.svc.Users.UpdateProfile(ctx, alice.ID, UpdateProfileInput{Bio: &bio, Locale: &locale})
	require.NoError(t, err)
	assert.Equal(t, "Speedrunner & streamer", profile.User.Bio)
	assert.Equal(t, "fr", profile.User.Locale)

	bad := "xx"
	_, err = env.svc.Users.UpdateProfile(ctx, alice.ID, UpdateProfileInput{Locale: &bad})
	assertKind(t, err, apperr.KindValidation)

	_, err = env.svc.Users.SetRole(ctx, admin, admin.ID, models.RoleUser)
	assertKind(t, err, apperr.KindValidation)
	_, err = env.svc.Users.SetRole(ctx, alice, admin.ID, models.RoleUser)
	assertKind(t, err, apperr.KindForbidden)

	updated, err := env.svc.Users.SetRole(ctx, admin, alice.ID, models.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, updated.Role)

	role, err := env.svc.Users.Role(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, role)
}

func TestNotifications(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", models.RoleUser)
	bob := env.user(t, "bob", models.RoleUser)

	env.svc.Notifications.Notify(ctx, NotifyInput{RecipientID: alice.ID, ActorID: alice.ID, Type: models.NotificationFollow})
	env.svc.Notifications.Notify(ctx, NotifyInput{RecipientID: alice.ID, ActorID: bob.ID, Type: models.NotificationFollow})
	env.svc.Notifications.Notify(ctx, NotifyInput{RecipientID: alice.ID, ActorID: bob.ID, Type: models.NotificationPostLike})

	page, err := env.svc.Notifications.List(ctx, alice.ID, false, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 2, "self notifications are skipped")

	n, err := env.svc.Notifications.MarkRead(ctx, alice.ID, []string{page.Items[0].ID.Hex(), "not-an-id"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = env.svc.Notifications.MarkRead(ctx, bob.ID, []string{page.Items[1].ID.Hex()})
	require.NoError(t, err)
	assert.Zero(t, n, "foreign ids are ignored")

	unread, err := env.svc.Notifications.List(ctx, alice.ID, true, 1, 10)
	require.NoError(t, err)
	assert.Len(t, unread.Items, 1)

	assertKind(t, env.svc.Notifications.Delete(ctx, bob.ID, page.Items[0].ID.Hex()), apperr.KindNotFound)
	require.NoError(t, env.svc.Notifications.Delete(ctx, alice.ID, page.Items[0].ID.Hex()))

	t.Run("blocked pairs are skipped", func(t *testing.T) {
		require.NoError(t, env.svc.Relations.Block(ctx, alice.ID, bob.ID))
		before := env.publisher.count(alice.ID)
		env.svc.Notifications.Notify(ctx, NotifyInput{RecipientID: alice.ID, ActorID: bob.ID, Type: models.NotificationComment})
		assert.Equal(t, before, env.publisher.count(alice.ID))
	})
}
