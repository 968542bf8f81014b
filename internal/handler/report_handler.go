package handler

import (
	"net/http"
	"time"

	"gamehub/backend/internal/models"
	"gamehub/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

type ReportRequest struct {
	TargetType string `json:"target_type" binding:"required,oneof=post comment review user game"`
	TargetID   uint   `json:"target_id" binding:"required"`
	Reason     string `json:"reason" binding:"required,oneof=spam abuse harassment spoiler inappropriate other"`
	Details    string `json:"details" binding:"max=1000"`
}

type ResolveRequest struct {
	Status        string `json:"status" binding:"required,oneof=resolved dismissed"`
	Resolution    string `json:"resolution" binding:"max=1000"`
	RemoveContent bool   `json:"remove_content"`
}

func (r ResolveRequest) resolution() service.Resolution {
	return service.Resolution{
		Status:        models.ReportStatus(r.Status),
		Resolution:    r.Resolution,
		RemoveContent: r.RemoveContent,
	}
}

type BatchResolveRequest struct {
	IDsInput
	ResolveRequest
}

type ReportResponse struct {
	ID           uint         `json:"id"`
	Reporter     *UserSummary `json:"reporter,omitempty"`
	TargetType   string       `json:"target_type"`
	TargetID     uint         `json:"target_id"`
	Reason       string       `json:"reason"`
	Details      string       `json:"details"`
	Status       string       `json:"status"`
	Resolution   string       `json:"resolution,omitempty"`
	ResolvedByID *uint        `json:"resolved_by_id,omitempty"`
	ResolvedAt   *time.Time   `json:"resolved_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

func newReportResponse(r models.Report) ReportResponse {
	resp := ReportResponse{
		ID:           r.ID,
		TargetType:   string(r.TargetType),
		TargetID:     r.TargetID,
		Reason:       r.Reason,
		Details:      r.Details,
		Status:       string(r.Status),
		Resolution:   r.Resolution,
		ResolvedByID: r.ResolvedByID,
		ResolvedAt:   r.ResolvedAt,
		CreatedAt:    r.CreatedAt,
	}
	if r.Reporter.ID != 0 {
		reporter := newUserSummary(r.Reporter)
		resp.Reporter = &reporter
	}
	return resp
}

// PaginatedReportResponse defines the structure for a paginated list of reports.
type PaginatedReportResponse struct {
	Data []ReportResponse `json:"data"`
	Meta PaginationMeta   `json:"meta"`
}

type ReportQuery struct {
	ListQuery
	Status     string `form:"status" binding:"omitempty,oneof=open resolved dismissed"`
	TargetType string `form:"target_type" binding:"omitempty,oneof=post comment review user game"`
}

// endregion

// ReportHandler serves user reports and the moderation queue.
type ReportHandler struct {
	reports *service.ReportService
}

func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// CreateReport godoc
// @Summary      Report content or a user
// @Tags         reports
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body      ReportRequest true "Report"
// @Success      201   {object}  ReportResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse "Target not found"
// @Failure      409   {object}  ErrorResponse "Already reported"
// @Failure      429   {object}  ErrorResponse
// @Router       /reports [post]
func (h *ReportHandler) CreateReport(c *gin.Context) {
	var req ReportRequest
	if !bindJSON(c, &req) {
		return
	}
	report, err := h.reports.Create(c.Request.Context(), actor(c), service.ReportInput{
		TargetType: models.ReportTarget(req.TargetType),
		TargetID:   req.TargetID,
		Reason:     req.Reason,
		Details:    req.Details,
	})
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, newReportResponse(*report))
}

// ListReports godoc
// @Summary      List reports
// @Tags         moderation
// @Produce      json
// @Security     BearerAuth
// @Param        status      query     string  false  "open, resolved or dismissed"
// @Param        target_type query     string  false  "post, comment, review, user or game"
// @Param        page        query     int     false  "Page number" default(1)
// @Param        limit       query     int     false  "Items per page" default(20)
// @Success      200         {object}  PaginatedReportResponse
// @Failure      403         {object}  ErrorResponse "Staff access required"
// @Router       /moderation/reports [get]
func (h *ReportHandler) ListReports(c *gin.Context) {
	var q ReportQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.reports.Search(c.Request.Context(), service.ReportFilter{
		Status:     models.ReportStatus(q.Status),
		TargetType: models.ReportTarget(q.TargetType),
		Page:       q.Page,
		Limit:      q.Limit,
	})
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, Paginate(page, newReportResponse))
}

// ResolveReport godoc
// @Summary      Resolve a report
// @Tags         moderation
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int            true  "Report ID"
// @Param        input body      ResolveRequest true  "Resolution"
// @Success      200   {object}  ReportResponse
// @Failure      400   {object}  ErrorResponse "Report already closed"
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /moderation/reports/{id}/resolve [post]
func (h *ReportHandler) ResolveReport(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req ResolveRequest
	if !bindJSON(c, &req) {
		return
	}
	report, err := h.reports.Resolve(c.Request.Context(), actor(c), id, req.resolution())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newReportResponse(*report))
}

// ResolveReports godoc
// @Summary      Resolve reports in batch
// @Description  All reports must be open, otherwise nothing changes. remove_content deletes the reported content in the same transaction.
// @Tags         moderation
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body      BatchResolveRequest true "Reports and resolution"
// @Success      200   {array}   ReportResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /moderation/reports/batch [post]
func (h *ReportHandler) ResolveReports(c *gin.Context) {
	var req BatchResolveRequest
	if !bindJSON(c, &req) {
		return
	}
	reports, err := h.reports.ResolveBatch(c.Request.Context(), actor(c), req.IDs, req.resolution())
	if err != nil {
		abort(c, err)
		return
	}
	out := make([]ReportResponse, 0, len(reports))
	for _, r := range reports {
		out = append(out, newReportResponse(r))
	}
	c.JSON(http.StatusOK, out)
}
