package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	doc_errors "github.com/gestore-cpu/gestione-doc-security/errors"
	"github.com/gestore-cpu/gestione-doc-security/model"
	"github.com/gestore-cpu/gestione-doc-security/service"
	"github.com/gestore-cpu/gestione-doc-security/util"
)

type AlertController struct {
	alertService service.IAlertService
}

func NewAlertController(alertService service.IAlertService) *AlertController {
	return &AlertController{
		alertService: alertService,
	}
}

// RegisterRoutes registers the API routes
func (ac *AlertController) RegisterRoutes(r *gin.RouterGroup) {
	alerts := r.Group("/alerts")
	{
		alerts.GET("", ac.OpenAlerts)
		alerts.GET("/stats", ac.Stats)
		alerts.GET("/:id", ac.GetAlert)
		alerts.POST("/:id/close", ac.CloseAlert)
	}
}

// OpenAlerts endpoint
func (ac *AlertController) OpenAlerts(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid limit parameter", err)
		return
	}
	severity := model.Severity(c.Query("severity"))
	userID := c.Query("user_id")

	alerts, err := ac.alertService.OpenAlerts(c, severity, userID, limit)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list alerts", err)
		return
	}

	c.JSON(http.StatusOK, alerts)
}

// GetAlert endpoint
func (ac *AlertController) GetAlert(c *gin.Context) {
	alert, err := ac.alertService.GetAlert(c, c.Param("id"))
	if err != nil {
		if errors.Is(err, doc_errors.ErrAlertNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Alert not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve alert", err)
		}
		return
	}

	c.JSON(http.StatusOK, alert)
}

type closeAlertBody struct {
	Note string `json:"note"`
}

// CloseAlert endpoint
func (ac *AlertController) CloseAlert(c *gin.Context) {
	userID, err := util.GetUserIDFromContext(c)
	if err != nil || userID == "" {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", doc_errors.ErrUnauthorized)
		return
	}

	var body closeAlertBody
	if err := c.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid close data", err)
		return
	}

	alert, err := ac.alertService.CloseAlert(c, c.Param("id"), userID, body.Note)
	if err != nil {
		switch {
		case errors.Is(err, doc_errors.ErrAlertNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Alert not found", err)
		case errors.Is(err, doc_errors.ErrAlertAlreadyClosed):
			util.RespondWithError(c, http.StatusConflict, "Alert already closed", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to close alert", err)
		}
		return
	}

	c.JSON(http.StatusOK, alert)
}

// Stats endpoint
func (ac *AlertController) Stats(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid days parameter", err)
		return
	}

	stats, err := ac.alertService.Stats(c, days)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to compute alert stats", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
