package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gestore-cpu/gestione-doc-security/audit"
	doc_errors "github.com/gestore-cpu/gestione-doc-security/errors"
	"github.com/gestore-cpu/gestione-doc-security/service"
	"github.com/gestore-cpu/gestione-doc-security/util"
	helper_util "github.com/gestore-cpu/gestione-doc-security/util/helper"
)

type AccessController struct {
	accessService service.IAccessService
}

func NewAccessController(accessService service.IAccessService) *AccessController {
	return &AccessController{
		accessService: accessService,
	}
}

// RegisterRoutes registers the user-facing API routes
func (ac *AccessController) RegisterRoutes(r *gin.RouterGroup) {
	documents := r.Group("/documents")
	{
		documents.GET("", ac.ListVisibleDocuments)
		documents.POST("/:id/view", ac.RecordView)
		documents.POST("/:id/download", ac.RecordDownload)
	}
	requests := r.Group("/requests")
	{
		requests.POST("", ac.SubmitRequest)
		requests.GET("/:id", ac.GetRequest)
	}
}

// RegisterAdminRoutes registers the review surface
func (ac *AccessController) RegisterAdminRoutes(r *gin.RouterGroup) {
	requests := r.Group("/requests")
	{
		requests.POST("/:id/decide", ac.DecideRequest)
		requests.GET("/high-risk", ac.HighRiskRequests)
		requests.GET("/risk-stats", ac.RiskStats)
	}
}

// ListVisibleDocuments endpoint
func (ac *AccessController) ListVisibleDocuments(c *gin.Context) {
	userID, err := util.GetUserIDFromContext(c)
	if err != nil || userID == "" {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", doc_errors.ErrUnauthorized)
		return
	}
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	documents, err := ac.accessService.VisibleDocuments(c, userID, limit, offset)
	if err != nil {
		if errors.Is(err, doc_errors.ErrUserNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "User not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to list documents", err)
		}
		return
	}

	c.JSON(http.StatusOK, documents)
}

// RecordView endpoint
func (ac *AccessController) RecordView(c *gin.Context) {
	ac.recordAccess(c, audit.ActionViewSuccess)
}

// RecordDownload endpoint
func (ac *AccessController) RecordDownload(c *gin.Context) {
	ac.recordAccess(c, audit.ActionDownloadSuccess)
}

func (ac *AccessController) recordAccess(c *gin.Context, action string) {
	userID, err := util.GetUserIDFromContext(c)
	if err != nil || userID == "" {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", doc_errors.ErrUnauthorized)
		return
	}
	documentID := c.Param("id")

	if err := ac.accessService.RecordAccess(c, userID, documentID, c.ClientIP(), action); err != nil {
		switch {
		case errors.Is(err, doc_errors.ErrAccessDenied):
			util.RespondWithError(c, http.StatusForbidden, "Access denied", err)
		case errors.Is(err, doc_errors.ErrDocumentNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Document not found", err)
		case errors.Is(err, doc_errors.ErrUserNotFound):
			util.RespondWithError(c, http.StatusNotFound, "User not found", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to record access", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

type submitRequestBody struct {
	DocumentID string `json:"document_id" binding:"required"`
	Note       string `json:"note"`
}

// SubmitRequest endpoint
func (ac *AccessController) SubmitRequest(c *gin.Context) {
	userID, err := util.GetUserIDFromContext(c)
	if err != nil || userID == "" {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", doc_errors.ErrUnauthorized)
		return
	}

	var body submitRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}

	request, err := ac.accessService.SubmitRequest(c, userID, body.DocumentID, body.Note, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, doc_errors.ErrRequestPending):
			util.RespondWithError(c, http.StatusConflict, "A pending request already exists for this document", err)
		case errors.Is(err, doc_errors.ErrDocumentNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Document not found", err)
		case errors.Is(err, doc_errors.ErrUserNotFound):
			util.RespondWithError(c, http.StatusNotFound, "User not found", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to submit request", err)
		}
		return
	}

	c.JSON(http.StatusCreated, request)
}

// GetRequest endpoint
func (ac *AccessController) GetRequest(c *gin.Context) {
	requestID := c.Param("id")

	request, err := ac.accessService.GetRequest(c, requestID)
	if err != nil {
		if errors.Is(err, doc_errors.ErrRequestNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Request not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve request", err)
		}
		return
	}

	c.JSON(http.StatusOK, request)
}

type decideRequestBody struct {
	Approve  bool   `json:"approve"`
	Response string `json:"response"`
}

// DecideRequest endpoint
func (ac *AccessController) DecideRequest(c *gin.Context) {
	userID, err := util.GetUserIDFromContext(c)
	if err != nil || userID == "" {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", doc_errors.ErrUnauthorized)
		return
	}

	var body decideRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid decision data", err)
		return
	}

	request, err := ac.accessService.DecideRequest(c, c.Param("id"), body.Approve, body.Response, userID)
	if err != nil {
		switch {
		case errors.Is(err, doc_errors.ErrRequestNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Request not found", err)
		case errors.Is(err, doc_errors.ErrRequestDecided):
			util.RespondWithError(c, http.StatusConflict, "Request already decided", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to decide request", err)
		}
		return
	}

	c.JSON(http.StatusOK, request)
}

// HighRiskRequests endpoint
func (ac *AccessController) HighRiskRequests(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid limit parameter", err)
		return
	}

	requests, err := ac.accessService.HighRiskRequests(c, limit)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list high-risk requests", err)
		return
	}

	c.JSON(http.StatusOK, requests)
}

// RiskStats endpoint
func (ac *AccessController) RiskStats(c *gin.Context) {
	stats, err := ac.accessService.RiskStats(c)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to compute risk stats", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
