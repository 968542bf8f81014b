package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/cache"
	"gamehub/backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 transparent PNG.
var pngPixel, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII=")

func TestPosts_Visibility(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", models.RoleUser)
	bob := env.user(t, "bob", models.RoleUser)
	mod := env.user(t, "mod", models.RoleModerator)

	draft := env.post(t, alice, models.PostDraft)
	published := env.post(t, alice, models.PostPublished)
	assert.Nil(t, draft.PublishedAt)
	require.NotNil(t, published.PublishedAt)

	_, _, err := env.svc.Posts.View(ctx, bob, draft.ID)
	assertKind(t, err, apperr.KindNotFound)
	_, _, err = env.svc.Posts.View(ctx, Actor{}, draft.ID)
	assertKind(t, err, apperr.KindNotFound)
	_, _, err = env.svc.Posts.View(ctx, alice, draft.ID)
	assert.NoError(t, err)
	_, _, err = env.svc.Posts.View(ctx, mod, draft.ID)
	assert.NoError(t, err)

	list, err := env.svc.Posts.Search(ctx, bob, PostFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)

	mine, err := env.svc.Posts.Search(ctx, alice, PostFilter{Mine: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), mine.Total)

	t.Run("blocked authors are hidden", func(t *testing.T) {
		require.NoError(t, env.svc.Relations.Block(ctx, alice.ID, bob.ID))
		list, err := env.svc.Posts.Search(ctx, bob, PostFilter{})
		require.NoError(t, err)
		assert.Zero(t, list.Total)

		_, _, err = env.svc.Posts.View(ctx, bob, published.ID)
		assertKind(t, err, apperr.KindNotFound)
		require.NoError(t, env.svc.Relations.Unblock(ctx, alice.ID, bob.ID))
	})

	t.Run("publishing a draft sets published_at once", func(t *testing.T) {
		updated, err := env.svc.Posts.Update(ctx, alice, draft.ID, PostInput{
			Title: "Now live", Content: "<p>ok</p><script>alert(1)</script>", Status: models.PostPublished,
		})
		require.NoError(t, err)
		require.NotNil(t, updated.PublishedAt)
		assert.NotContains(t, updated.Content, "script")
		first := *updated.PublishedAt

		again, err := env.svc.Posts.Update(ctx, alice, draft.ID, PostInput{Title: "Edited", Content: "<p>ok</p>", Status: models.PostPublished})
		require.NoError(t, err)
		assert.True(t, first.Equal(*again.PublishedAt))
	})

	t.Run("only the owner or staff may edit", func(t *testing.T) {
		_, err := env.svc.Posts.Update(ctx, bob, published.ID, PostInput{Title: "x", Content: "y"})
		assertKind(t, err, apperr.KindForbidden)
	})
}

func TestPosts_SearchMatchesTitleOrContent(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", models.RoleUser)

	_, err := env.svc.Posts.Create(ctx, alice, PostInput{
		Title: "Weekly digest", Content: "<p>New Speedrun record</p>", Status: models.PostPublished,
	})
	require.NoError(t, err)
	_, err = env.svc.Posts.Create(ctx, alice, PostInput{
		Title: "Speedrun routes", Content: "<p>Any%</p>", Status: models.PostPublished,
	})
	require.NoError(t, err)
	env.post(t, alice, models.PostPublished)

	list, err := env.svc.Posts.Search(ctx, alice, PostFilter{Query: "speedrun"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.Total)

	list, err = env.svc.Posts.Search(ctx, alice, PostFilter{Query: "record"})
	require.NoError(t, err)
	require.Equal(t, int64(1), list.Total)
	assert.Equal(t, "Weekly digest", list.Items[0].Title)
}

func TestPosts_LikesAndFeed(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", models.RoleUser)
	bob := env.user(t, "bob", models.RoleUser)
	post := env.post(t, alice, models.PostPublished)

	state, err := env.svc.Posts.Like(ctx, bob, post.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeState{Liked: true, LikesCount: 1}, *state)

	state, err = env.svc.Posts.Like(ctx, bob, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, state.LikesCount, "likes are idempotent")
	assert.Equal(t, 1, env.publisher.count(alice.ID))
	event := env.publisher.last(t, alice.ID)
	assert.Equal(t, models.NotificationPostLike, event.Type)
	assert.Equal(t, bob.ID, event.ActorID)
	assert.Equal(t, post.ID, event.TargetID)

	_, liked, err := env.svc.Posts.View(ctx, bob, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	state, err = env.svc.Posts.Unlike(ctx, bob, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, state.LikesCount)
	state, err = env.svc.Posts.Unlike(ctx, bob, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, state.LikesCount)

	feed, err := env.svc.Posts.Feed(ctx, bob.ID, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, feed.Items)

	require.NoError(t, env.svc.Relations.Follow(ctx, bob.ID, alice.ID))
	feed, err = env.svc.Posts.Feed(ctx, bob.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, post.ID, feed.Items[0].ID)
}

func TestPosts_UpdateKeepsCounters(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", models.RoleUser)
	bob := env.user(t, "bob", models.RoleUser)
	post := env.post(t, alice, models.PostPublished)

	// The edit read the row before bob's like landed.
	stale, err := env.svc.Posts.GetForUpdate(ctx, alice, post.ID)
	require.NoError(t, err)
	_, err = env.svc.Posts.Like(ctx, bob, post.ID)
	require.NoError(t, err)
	_, err = env.svc.Comments.Create(ctx, bob, post.ID, CommentInput{Content: "first"})
	require.NoError(t, err)

	require.NoError(t, env.svc.Posts.save(ctx, stale, PostInput{
		Title: "Edited", Content: "<p>new</p>", Status: models.PostPublished,
	}))

	var stored models.Post
	require.NoError(t, env.db.First(&stored, post.ID).Error)
	assert.Equal(t, "Edited", stored.Title)
	assert.Equal(t, 1, stored.LikesCount)
	assert.Equal(t, 1, stored.CommentsCount)

	updated, err := env.svc.Posts.Update(ctx, alice, post.ID, PostInput{Title: "Again", Content: "<p>x</p>", Status: models.PostPublished})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.LikesCount)
}

func TestComments(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", models.RoleUser)
	bob := env.user(t, "bob", models.RoleUser)
	carol := env.user(t, "carol", models.RoleUser)
	post := env.post(t, alice, models.PostPublished)
	draft := env.post(t, alice, models.PostDraft)

	commentsCount := func() int {
		var p models.Post
		require.NoError(t, env.db.First(&p, post.ID).Error)
		return p.CommentsCount
	}

	_, err := env.svc.Comments.Create(ctx, bob, draft.ID, CommentInput{Content: "first"})
	assertKind(t, err, apperr.KindValidation)

	top, err := env.svc.Comments.Create(ctx, bob, post.ID, CommentInput{Content: "Nice post"})
	require.NoError(t, err)
	reply, err := env.svc.Comments.Create(ctx, carol, post.ID, CommentInput{Content: "Agreed", ParentID: &top.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, commentsCount())
	assert.Equal(t, 1, env.publisher.count(bob.ID), "parent author is notified of replies")

	_, err = env.svc.Comments.Create(ctx, bob, post.ID, CommentInput{Content: "deep", ParentID: &reply.ID})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "error.invalid_parent", appErr.Key)

	list, err := env.svc.Comments.ListForPost(ctx, Actor{}, post.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Len(t, list.Items[0].Replies, 1)
	assert.Equal(t, "carol", list.Items[0].Replies[0].Author.Username)

	_, err = env.svc.Comments.Update(ctx, alice, top.ID, "edited")
	assertKind(t, err, apperr.KindForbidden)
	edited, err := env.svc.Comments.Update(ctx, bob, top.ID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", edited.Content)

	require.NoError(t, env.svc.Comments.Delete(ctx, bob, top.ID))
	assert.Equal(t, 0, commentsCount(), "replies are removed with their parent")

	t.Run("blocked users cannot comment", func(t *testing.T) {
		require.NoError(t, env.svc.Relations.Block(ctx, alice.ID, carol.ID))
		_, err := env.svc.Comments.Create(ctx, carol, post.ID, CommentInput{Content: "hi"})
		assertKind(t, err, apperr.KindForbidden)
	})
}

func TestReports(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", models.RoleUser)
	bob := env.user(t, "bob", models.RoleUser)
	mod := env.user(t, "mod", models.RoleModerator)
	post := env.post(t, alice, models.PostPublished)
	comment, err := env.svc.Comments.Create(ctx, alice, post.ID, CommentInput{Content: "spam"})
	require.NoError(t, err)

	_, err = env.svc.Reports.Create(ctx, bob, ReportInput{TargetType: models.ReportTargetPost, TargetID: 999, Reason: "spam"})
	assertKind(t, err, apperr.KindNotFound)

	postReport, err := env.svc.Reports.Create(ctx, bob, ReportInput{TargetType: models.ReportTargetPost, TargetID: post.ID, Reason: "spam"})
	require.NoError(t, err)
	_, err = env.svc.Reports.Create(ctx, bob, ReportInput{TargetType: models.ReportTargetPost, TargetID: post.ID, Reason: "spam"})
	assertKind(t, err, apperr.KindConflict)

	commentReport, err := env.svc.Reports.Create(ctx, bob, ReportInput{TargetType: models.ReportTargetComment, TargetID: comment.ID, Reason: "abuse"})
	require.NoError(t, err)

	_, err = env.svc.Reports.ResolveBatch(ctx, bob, []uint{postReport.ID}, Resolution{Status: models.ReportResolved})
	assertKind(t, err, apperr.KindForbidden)

	dismissed, err := env.svc.Reports.Resolve(ctx, mod, commentReport.ID, Resolution{Status: models.ReportDismissed})
	require.NoError(t, err)
	assert.Equal(t, models.ReportDismissed, dismissed.Status)

	t.Run("closed report rolls back the batch", func(t *testing.T) {
		_, err := env.svc.Reports.ResolveBatch(ctx, mod, []uint{postReport.ID, commentReport.ID}, Resolution{
			Status: models.ReportResolved, RemoveContent: true,
		})
		assertKind(t, err, apperr.KindValidation)

		_, err = env.svc.Posts.Get(ctx, post.ID)
		assert.NoError(t, err, "content survives a failed batch")
	})

	t.Run("resolve removes content and notifies", func(t *testing.T) {
		before := env.publisher.count(bob.ID)
		reports, err := env.svc.Reports.ResolveBatch(ctx, mod, []uint{postReport.ID}, Resolution{
			Status: models.ReportResolved, Resolution: "removed", RemoveContent: true,
		})
		require.NoError(t, err)
		require.Len(t, reports, 1)
		assert.Equal(t, models.ReportResolved, reports[0].Status)
		require.NotNil(t, reports[0].ResolvedByID)
		assert.Equal(t, mod.ID, *reports[0].ResolvedByID)

		_, err = env.svc.Posts.Get(ctx, post.ID)
		assertKind(t, err, apperr.KindNotFound)
		assert.Equal(t, before+1, env.publisher.count(bob.ID))
	})

	open, err := env.svc.Reports.Search(ctx, ReportFilter{Status: models.ReportOpen})
	require.NoError(t, err)
	assert.Zero(t, open.Total)
}

func TestReports_RemoveReview(t *testing.T) {
	env := newCachedEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", models.RoleUser)
	bob := env.user(t, "bob", models.RoleUser)
	mod := env.user(t, "mod", models.RoleModerator)
	game := env.game(t, "Hollow Knight")
	key := cache.GameKey(game.ID)

	_, err := env.svc.Reviews.Create(ctx, bob, game.ID, ReviewInput{Rating: 5})
	require.NoError(t, err)
	spam, err := env.svc.Reviews.Create(ctx, alice, game.ID, ReviewInput{Rating: 1, Body: "buy gold"})
	require.NoError(t, err)

	report, err := env.svc.Reports.Create(ctx, bob, ReportInput{TargetType: models.ReportTargetReview, TargetID: spam.ID, Reason: "spam"})
	require.NoError(t, err)

	g, _, err := env.svc.Games.Get(ctx, 0, game.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, g.ReviewCount)
	require.True(t, env.redis.Exists(key))

	resolved, err := env.svc.Reports.Resolve(ctx, mod, report.ID, Resolution{Status: models.ReportResolved, RemoveContent: true})
	require.NoError(t, err)
	assert.Equal(t, models.ReportResolved, resolved.Status)
	assert.False(t, env.redis.Exists(key), "resolving drops the cached game")

	g, _, err = env.svc.Games.Get(ctx, 0, game.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, g.ReviewCount)
	assert.True(t, decimal.NewFromInt(5).Equal(g.AverageRating), "got %s", g.AverageRating)

	var left int64
	require.NoError(t, env.db.Model(&models.Review{}).Where("id = ?", spam.ID).Count(&left).Error)
	assert.Zero(t, left)
}

func TestUploads(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", models.RoleUser)
	bob := env.user(t, "bob", models.RoleUser)

	upload, err := env.svc.Uploads.Store(ctx, alice, "avatar.png", bytes.NewReader(pngPixel))
	require.NoError(t, err)
	assert.Equal(t, "image/png", upload.ContentType)
	assert.True(t, strings.HasSuffix(upload.StoredName, ".png"))
	assert.Len(t, upload.Checksum, 64)
	assert.Equal(t, "/media/"+upload.StoredName, env.svc.Uploads.URL(upload))

	_, err = env.svc.Uploads.Store(ctx, alice, "notes.txt", strings.NewReader("plain text"))
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "error.unsupported_file_type", appErr.Key)

	big := append(append([]byte{}, pngPixel...), make([]byte, 1<<20)...)
	_, err = env.svc.Uploads.Store(ctx, alice, "big.png", bytes.NewReader(big))
	appErr, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "error.file_too_large", appErr.Key)
	assert.Equal(t, "1", appErr.Params["max"])

	assertKind(t, env.svc.Uploads.Delete(ctx, bob, upload.ID), apperr.KindForbidden)
	require.NoError(t, env.svc.Uploads.Delete(ctx, alice, upload.ID))
	_, err = env.svc.Uploads.Get(ctx, upload.ID)
	assertKind(t, err, apperr.KindNotFound)
}
