package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/models"
	"gamehub/backend/internal/repository"
	"gamehub/backend/internal/sanitize"
)

const maxBioLength = 500

// Profile is a user with the counters shown on profile pages.
type Profile struct {
	User           *models.User
	FollowersCount int64
	FollowingCount int64
	PostsCount     int64
}

// PublicProfile adds the viewer's relation to the user.
type PublicProfile struct {
	Profile
	IsFollowing  bool
	IsFollowedBy bool
	IsBlocked    bool
}

type UpdateProfileInput struct {
	Bio       *string
	AvatarURL *string
	Locale    *string
}

// UserService serves profiles, user search and role management.
type UserService struct {
	*CRUDService[models.User]
	users     *repository.UserRepository
	relations *repository.RelationRepository
	posts     *repository.PostRepository
	supported func(locale string) bool
}

func NewUserService(users *repository.UserRepository, relations *repository.RelationRepository,
	posts *repository.PostRepository, supported func(string) bool) *UserService {
	return &UserService{
		CRUDService: NewCRUDService(users.Repository, func(u *models.User) uint { return u.ID }),
		users:       users,
		relations:   relations,
		posts:       posts,
		supported:   supported,
	}
}

// GetPrivate returns the caller's own profile.
func (s *UserService) GetPrivate(ctx context.Context, userID uint) (*Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.profile(ctx, user)
}

// GetPublic returns a profile as seen by viewerID. Users who blocked the viewer are hidden.
func (s *UserService) GetPublic(ctx context.Context, viewerID, userID uint) (*PublicProfile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &PublicProfile{}
	if viewerID != 0 && viewerID != userID {
		blockedViewer, err := s.relations.HasBlocked(ctx, userID, viewerID)
		if err != nil {
			return nil, err
		}
		if blockedViewer {
			return nil, apperr.NotFound("user")
		}
		if out.IsBlocked, err = s.relations.HasBlocked(ctx, viewerID, userID); err != nil {
			return nil, err
		}
		if out.IsFollowing, err = s.relations.IsFollowing(ctx, viewerID, userID); err != nil {
			return nil, err
		}
		if out.IsFollowedBy, err = s.relations.IsFollowing(ctx, userID, viewerID); err != nil {
			return nil, err
		}
	}

	profile, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}
	out.Profile = *profile
	return out, nil
}

func (s *UserService) profile(ctx context.Context, user *models.User) (*Profile, error) {
	followers, following, err := s.relations.FollowCounts(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.CountByAuthor(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: user, FollowersCount: followers, FollowingCount: following, PostsCount: posts}, nil
}

// UpdateProfile changes the caller's editable fields. The bio is stored as plain text.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if in.Bio != nil {
		bio := sanitize.Text(*in.Bio)
		if utf8.RuneCountInString(bio) > maxBioLength {
			return nil, apperr.Validation("error.validation_failed", nil)
		}
		fields["bio"] = bio
	}
	if in.AvatarURL != nil {
		fields["avatar_url"] = strings.TrimSpace(*in.AvatarURL)
	}
	if in.Locale != nil {
		if s.supported != nil && !s.supported(*in.Locale) {
			return nil, apperr.Validation("error.unsupported_locale", map[string]string{"locale": *in.Locale})
		}
		fields["locale"] = *in.Locale
	}
	if len(fields) > 0 {
		if err := s.users.Updates(ctx, user, fields); err != nil {
			return nil, err
		}
	}
	return s.profile(ctx, user)
}

// Search finds users by username, hiding the viewer and users in a block relation with them.
func (s *UserService) Search(ctx context.Context, viewerID uint, q string, page, limit int) (*repository.Page[models.User], error) {
	opts := repository.ListOptions{
		Page:   page,
		Limit:  limit,
		Search: strings.TrimSpace(q),
		Scopes: []repository.Scope{repository.ExcludeBlockedScope("users.id", viewerID)},
	}
	if viewerID != 0 {
		opts.Scopes = append(opts.Scopes, excludeUserScope(viewerID))
	}
	return s.List(ctx, opts)
}

// SetRole changes a user's role. Admins cannot change their own role.
func (s *UserService) SetRole(ctx context.Context, actor Actor, userID uint, role models.Role) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("error.forbidden")
	}
	if actor.ID == userID {
		return nil, apperr.Validation("error.own_role", nil)
	}
	if !role.Valid() {
		return nil, apperr.Validation("error.validation_failed", nil)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.users.Updates(ctx, user, map[string]any{"role": role}); err != nil {
		return nil, err
	}
	return user, nil
}

// Role returns the current role of userID. Used to authorize requests against fresh data.
func (s *UserService) Role(ctx context.Context, userID uint) (models.Role, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}
