package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/deeplancer/contracts-service/internal/http/middleware"
	"github.com/deeplancer/contracts-service/internal/model"
	"github.com/deeplancer/contracts-service/internal/service"
)

type Handler struct {
	approvals *service.ApprovalService
	escrow    *service.EscrowService
	sprints   *service.SprintService
	views     *service.ViewService
	log       zerolog.Logger
}

func NewHandler(
	approvals *service.ApprovalService,
	escrow *service.EscrowService,
	sprints *service.SprintService,
	views *service.ViewService,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		approvals: approvals,
		escrow:    escrow,
		sprints:   sprints,
		views:     views,
		log:       log,
	}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.POST("/work-logs", h.createWorkLog)
	protected.PATCH("/work-logs/:id", h.reviewWorkLog)
	protected.PATCH("/work-logs/:id/edit", h.editWorkLog)

	protected.GET("/contracts/:id/work-logs", h.listWorkLogs)
	protected.GET("/contracts/:id/work-logs/export", h.exportWorkLogs)
	protected.GET("/contracts/:id/invoices", h.listInvoices)
	protected.POST("/contracts/:id/finish-sprint", h.finishSprint)
	protected.POST("/contracts/:id/fund", h.fundEscrow)

	protected.PATCH("/invoices/:id/pay", h.payInvoice)
	protected.GET("/invoices/:id/document", h.invoiceDocument)
}

// workLogRequest is the wire shape of a submission or edit. Type picks
// the tagged payload variant; the remaining fields are read per type.
type workLogRequest struct {
	ContractID    string          `json:"contract_id"`
	Type          string          `json:"type" binding:"required"`
	WorkDate      string          `json:"work_date"`
	LogDate       string          `json:"log_date"`
	Description   string          `json:"description"`
	ProblemsFaced string          `json:"problems_faced"`
	TotalHours    float64         `json:"total_hours"`
	Amount        float64         `json:"amount"`
	Checklist     model.Checklist `json:"checklist"`
	Evidence      model.Evidence  `json:"evidence"`
}

func (h *Handler) createWorkLog(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	req, err := h.bindWorkLogRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contractID, err := uuid.Parse(strings.TrimSpace(req.ContractID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract_id"})
		return
	}

	payload, err := buildPayload(*req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	unit, err := h.approvals.Submit(c.Request.Context(), service.SubmitInput{
		ContractID: contractID,
		Principal:  principal,
		Payload:    payload,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, workLogResponse(*unit))
}

type reviewRequest struct {
	Status       string `json:"status" binding:"required"`
	BuyerComment string `json:"buyer_comment"`
}

func (h *Handler) reviewWorkLog(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	unitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid work log id"})
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := service.ReviewInput{
		UnitID:    unitID,
		Principal: principal,
		Reason:    req.BuyerComment,
	}

	switch strings.ToLower(strings.TrimSpace(req.Status)) {
	case "approved":
		err = h.approvals.Approve(c.Request.Context(), input)
	case "rejected":
		err = h.approvals.Reject(c.Request.Context(), input)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be approved or rejected"})
		return
	}
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) editWorkLog(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	unitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid work log id"})
		return
	}

	req, err := h.bindWorkLogRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload, err := buildPayload(*req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	unit, err := h.approvals.Edit(c.Request.Context(), service.EditInput{
		UnitID:    unitID,
		Principal: principal,
		Payload:   payload,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, workLogResponse(*unit))
}

func (h *Handler) listWorkLogs(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	contractID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	listing, err := h.views.ListWorkLogs(c.Request.Context(), contractID, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	groups := make([]gin.H, 0, len(listing.Groups.Items))
	for _, group := range listing.Groups.Items {
		units := make([]gin.H, 0, len(group.Units))
		for _, unit := range group.Units {
			units = append(units, workLogResponse(unit))
		}
		groups = append(groups, gin.H{
			"key":       group.Key,
			"label":     group.Label,
			"status":    group.Status,
			"log_count": group.LogCount,
			"units":     units,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"tab_label": listing.TabLabel,
		"groups":    groups,
	})
}

func (h *Handler) exportWorkLogs(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	contractID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	result, err := h.views.ExportWorkLogs(c.Request.Context(), contractID, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", result.Content)
}

func (h *Handler) listInvoices(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	contractID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	views, err := h.views.ListInvoices(c.Request.Context(), contractID, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	invoices := make([]gin.H, 0, len(views))
	for _, view := range views {
		invoices = append(invoices, gin.H{
			"id":         view.Invoice.ID,
			"title":      view.Title,
			"subtext":    view.Subtext,
			"sequence":   view.Sequence,
			"amount":     view.Invoice.Amount,
			"status":     view.Invoice.Status,
			"created_at": view.Invoice.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

func (h *Handler) payInvoice(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}

	err = h.escrow.PayInvoice(c.Request.Context(), service.PayInvoiceInput{
		InvoiceID: invoiceID,
		Principal: principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "paid"})
}

func (h *Handler) invoiceDocument(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}

	result, err := h.views.InvoiceDocument(c.Request.Context(), invoiceID, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/pdf", result.Content)
}

func (h *Handler) finishSprint(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	contractID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	result, err := h.sprints.FinishSprint(c.Request.Context(), service.FinishSprintInput{
		ContractID: contractID,
		Principal:  principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"finished_sprint": result.FinishedSprint,
		"current_sprint":  result.CurrentSprint,
	})
}

type fundRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

func (h *Handler) fundEscrow(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	contractID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	var req fundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = h.escrow.FundEscrow(c.Request.Context(), service.FundEscrowInput{
		ContractID: contractID,
		Principal:  principal,
		Amount:     req.Amount,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "funded"})
}

// bindWorkLogRequest accepts JSON or, when attachments ride along,
// multipart form data with the JSON fields in a "payload" part and the
// files under attachments[].
func (h *Handler) bindWorkLogRequest(c *gin.Context) (*workLogRequest, error) {
	contentType := c.ContentType()
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		var req workLogRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, err
		}
		return &req, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}

	var req workLogRequest
	if raw := c.PostForm("payload"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			return nil, err
		}
	}

	files := form.File["attachments[]"]
	if len(files) > maxAttachmentsPerRequest {
		return nil, errors.New("too many attachments")
	}
	for _, file := range files {
		req.Evidence.Attachments = append(req.Evidence.Attachments, model.EvidenceAttachment{
			Name: file.Filename,
		})
	}
	return &req, nil
}

// maxAttachmentsPerRequest caps the multipart file count before the
// service-level check runs; the configured limit never exceeds this.
const maxAttachmentsPerRequest = 10

func buildPayload(req workLogRequest) (model.SubmissionPayload, error) {
	switch strings.ToLower(strings.TrimSpace(req.Type)) {
	case string(model.PayloadDailyLog):
		workDate, err := parseDate(req.WorkDate)
		if err != nil {
			return nil, errors.New("invalid work_date")
		}
		return model.DailyLogPayload{
			WorkDate:      workDate,
			Description:   req.Description,
			ProblemsFaced: req.ProblemsFaced,
			TotalHours:    req.TotalHours,
			Evidence:      req.Evidence,
		}, nil
	case string(model.PayloadTimesheetEntry):
		workDate, err := parseDate(req.WorkDate)
		if err != nil {
			return nil, errors.New("invalid work_date")
		}
		return model.TimesheetEntryPayload{
			WorkDate:    workDate,
			Description: req.Description,
			TotalHours:  req.TotalHours,
		}, nil
	case string(model.PayloadSprintSubmission):
		logDate, err := parseDate(req.LogDate)
		if err != nil {
			return nil, errors.New("invalid log_date")
		}
		return model.SprintSubmissionPayload{
			LogDate:       logDate,
			Description:   req.Description,
			ProblemsFaced: req.ProblemsFaced,
			Checklist:     req.Checklist,
			Evidence:      req.Evidence,
		}, nil
	case string(model.PayloadMilestoneRequest):
		logDate, err := parseDate(req.LogDate)
		if err != nil {
			return nil, errors.New("invalid log_date")
		}
		return model.MilestoneRequestPayload{
			LogDate:     logDate,
			Description: req.Description,
			Amount:      req.Amount,
			Evidence:    req.Evidence,
		}, nil
	default:
		return nil, errors.New("unknown payload type")
	}
}

func workLogResponse(unit model.WorkUnit) gin.H {
	return gin.H{
		"id":             unit.ID,
		"contract_id":    unit.ContractID,
		"work_date":      unit.WorkDate,
		"log_date":       unit.LogDate,
		"status":         unit.Status,
		"description":    unit.Description,
		"problems_faced": unit.ProblemsFaced,
		"checklist":      unit.Checklist,
		"evidence":       unit.Evidence,
		"sprint_number":  unit.SprintNumber,
		"buyer_comment":  unit.BuyerComment,
		"total_hours":    unit.TotalHours,
		"created_at":     unit.CreatedAt,
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAlreadyProcessed):
		// Replays of approve/reject/pay are successes, not errors.
		c.JSON(http.StatusOK, gin.H{"status": "ok", "note": "already processed"})
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInsufficientFunds):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error(), "code": "insufficient_escrow"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("empty date")
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, errors.New("unrecognized date format")
}
