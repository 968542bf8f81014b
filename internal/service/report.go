package service

import (
	"context"
	"time"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/cache"
	"gamehub/backend/internal/models"
	"gamehub/backend/internal/repository"
	"gamehub/backend/internal/sanitize"

	"gorm.io/gorm"
)

type ReportInput struct {
	TargetType models.ReportTarget
	TargetID   uint
	Reason     string
	Details    string
}

// Resolution closes reports. RemoveContent deletes the reported post, comment or review.
type Resolution struct {
	Status        models.ReportStatus
	Resolution    string
	RemoveContent bool
}

type ReportFilter struct {
	Status     models.ReportStatus
	TargetType models.ReportTarget
	Page       int
	Limit      int
}

// ReportService takes user reports and lets staff resolve them.
type ReportService struct {
	*CRUDService[models.Report]
	db       *gorm.DB
	reports  *repository.Repository[models.Report]
	users    *repository.UserRepository
	games    *repository.GameRepository
	posts    *PostService
	comments *CommentService
	reviews  *ReviewService
	cache    *cache.Cache
	notifier Notifier
	now      func() time.Time
}

func NewReportService(db *gorm.DB, reports *repository.Repository[models.Report], users *repository.UserRepository,
	games *repository.GameRepository, posts *PostService, comments *CommentService, reviews *ReviewService,
	c *cache.Cache, notifier Notifier) *ReportService {
	return &ReportService{
		CRUDService: NewCRUDService[models.Report](reports, nil, "Reporter"),
		db:          db,
		reports:     reports,
		users:       users,
		games:       games,
		posts:       posts,
		comments:    comments,
		reviews:     reviews,
		cache:       c,
		notifier:    notifier,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create files a report. A reporter can have one open report per target.
func (s *ReportService) Create(ctx context.Context, actor Actor, in ReportInput) (*models.Report, error) {
	if !actor.Authenticated() {
		return nil, apperr.Unauthorized("error.unauthorized")
	}
	if err := s.targetExists(ctx, in.TargetType, in.TargetID); err != nil {
		return nil, err
	}
	duplicate, err := s.reports.Exists(ctx, whereScope(
		"reporter_id = ? AND target_type = ? AND target_id = ? AND status = ?",
		actor.ID, in.TargetType, in.TargetID, models.ReportOpen,
	))
	if err != nil {
		return nil, err
	}
	if duplicate {
		return nil, apperr.Conflict("error.report_exists", nil)
	}

	report := &models.Report{
		ReporterID: actor.ID,
		TargetType: in.TargetType,
		TargetID:   in.TargetID,
		Reason:     in.Reason,
		Details:    sanitize.Text(in.Details),
		Status:     models.ReportOpen,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *ReportService) targetExists(ctx context.Context, target models.ReportTarget, id uint) error {
	var err error
	switch target {
	case models.ReportTargetPost:
		_, err = s.posts.posts.FindByID(ctx, id)
	case models.ReportTargetComment:
		_, err = s.comments.comments.FindByID(ctx, id)
	case models.ReportTargetReview:
		_, err = s.reviews.reviews.FindByID(ctx, id)
	case models.ReportTargetUser:
		_, err = s.users.FindByID(ctx, id)
	case models.ReportTargetGame:
		_, err = s.games.FindByID(ctx, id)
	default:
		err = apperr.Validation("error.invalid_target", nil)
	}
	return err
}

func (s *ReportService) Search(ctx context.Context, filter ReportFilter) (*repository.Page[models.Report], error) {
	filters := map[string]any{}
	if filter.Status != "" {
		filters["status"] = filter.Status
	}
	if filter.TargetType != "" {
		filters["target_type"] = filter.TargetType
	}
	return s.List(ctx, repository.ListOptions{Page: filter.Page, Limit: filter.Limit, Filters: filters})
}

func (s *ReportService) Resolve(ctx context.Context, actor Actor, id uint, res Resolution) (*models.Report, error) {
	reports, err := s.ResolveBatch(ctx, actor, []uint{id}, res)
	if err != nil {
		return nil, err
	}
	return &reports[0], nil
}

// ResolveBatch closes every report in ids in one transaction. Every report must
// be open; otherwise nothing changes.
func (s *ReportService) ResolveBatch(ctx context.Context, actor Actor, ids []uint, res Resolution) ([]models.Report, error) {
	if !actor.IsStaff() {
		return nil, apperr.Forbidden("error.forbidden")
	}
	if res.Status != models.ReportResolved && res.Status != models.ReportDismissed {
		return nil, apperr.Validation("error.validation_failed", nil)
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, apperr.Validation("error.validation_failed", nil)
	}

	now := s.now()
	resolution := sanitize.Text(res.Resolution)
	var (
		reports      []models.Report
		touchedGames []uint
	)
	err := repository.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		repo := s.reports.WithTx(tx)
		var err error
		if reports, err = repo.FindByIDs(ctx, ids); err != nil {
			return err
		}
		if len(reports) != len(ids) {
			return apperr.NotFound("report")
		}
		for _, r := range reports {
			if r.Status != models.ReportOpen {
				return apperr.Validation("error.report_closed", map[string]string{"id": uintString(r.ID)})
			}
		}

		removed := map[models.ReportTarget]map[uint]bool{}
		for i := range reports {
			r := &reports[i]
			if res.RemoveContent && !removed[r.TargetType][r.TargetID] {
				gameID, err := s.removeTarget(ctx, tx, r.TargetType, r.TargetID)
				if err != nil {
					return err
				}
				if gameID != 0 {
					touchedGames = append(touchedGames, gameID)
				}
				if removed[r.TargetType] == nil {
					removed[r.TargetType] = map[uint]bool{}
				}
				removed[r.TargetType][r.TargetID] = true
			}
			r.Status = res.Status
			r.Resolution = resolution
			r.ResolvedByID = &actor.ID
			r.ResolvedAt = &now
			if err := repo.Updates(ctx, r, map[string]any{
				"status":         r.Status,
				"resolution":     r.Resolution,
				"resolved_by_id": actor.ID,
				"resolved_at":    now,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, gameID := range touchedGames {
		s.cache.Invalidate(ctx, cache.GameKey(gameID))
	}
	for _, r := range reports {
		s.notifier.Notify(ctx, NotifyInput{
			RecipientID: r.ReporterID,
			ActorID:     actor.ID,
			Type:        models.NotificationReportResolved,
			TargetType:  string(r.TargetType),
			TargetID:    r.TargetID,
			Data:        map[string]string{"status": string(r.Status)},
		})
	}
	return reports, nil
}

// removeTarget deletes reported content inside tx. Content that is already gone
// is skipped. It returns the game whose rating changed, if any.
func (s *ReportService) removeTarget(ctx context.Context, tx *gorm.DB, target models.ReportTarget, id uint) (uint, error) {
	switch target {
	case models.ReportTargetPost:
		if _, err := s.posts.posts.WithTx(tx).FindByID(ctx, id); err != nil {
			return 0, ignoreNotFound(err)
		}
		return 0, s.posts.deleteInTx(ctx, tx, id)
	case models.ReportTargetComment:
		comment, err := s.comments.comments.WithTx(tx).FindByID(ctx, id)
		if err != nil {
			return 0, ignoreNotFound(err)
		}
		return 0, s.comments.deleteInTx(ctx, tx, comment)
	case models.ReportTargetReview:
		review, err := s.reviews.reviews.WithTx(tx).FindByID(ctx, id)
		if err != nil {
			return 0, ignoreNotFound(err)
		}
		return review.GameID, s.reviews.deleteInTx(ctx, tx, review)
	}
	return 0, nil
}

func ignoreNotFound(err error) error {
	if apperr.Is(err, apperr.KindNotFound) {
		return nil
	}
	return err
}
