package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	doc_errors "github.com/gestore-cpu/gestione-doc-security/errors"
	"github.com/gestore-cpu/gestione-doc-security/model"
	"github.com/gestore-cpu/gestione-doc-security/service"
	"github.com/gestore-cpu/gestione-doc-security/util"
	helper_util "github.com/gestore-cpu/gestione-doc-security/util/helper"
)

type PolicyController struct {
	policyService service.IPolicyService
}

func NewPolicyController(policyService service.IPolicyService) *PolicyController {
	return &PolicyController{
		policyService: policyService,
	}
}

// RegisterRoutes registers the API routes
func (pc *PolicyController) RegisterRoutes(r *gin.RouterGroup) {
	policies := r.Group("/policies")
	{
		policies.POST("", pc.CreatePolicy)
		policies.GET("", pc.ListPolicies)
		policies.GET("/:id", pc.GetPolicy)
		policies.POST("/:id/activate", pc.ActivatePolicy)
		policies.POST("/:id/deactivate", pc.DeactivatePolicy)
		policies.POST("/:id/toggle", pc.TogglePolicy)
	}
}

// CreatePolicy endpoint
func (pc *PolicyController) CreatePolicy(c *gin.Context) {
	var policy model.AutoPolicy
	if err := c.ShouldBindJSON(&policy); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", doc_errors.ErrInvalidPolicyData)
		return
	}
	userID, err := util.GetUserIDFromContext(c)
	if err != nil || userID == "" {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", doc_errors.ErrUnauthorized)
		return
	}

	createdPolicy, err := pc.policyService.CreatePolicy(c, policy, userID)
	if err != nil {
		switch {
		case errors.Is(err, doc_errors.ErrInvalidPolicyData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", err)
		case errors.Is(err, doc_errors.ErrMalformedCondition):
			util.RespondWithError(c, http.StatusBadRequest, "Malformed policy condition", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to create policy", err)
		}
		return
	}

	c.JSON(http.StatusCreated, createdPolicy)
}

// GetPolicy endpoint
func (pc *PolicyController) GetPolicy(c *gin.Context) {
	policyID := c.Param("id")

	policy, err := pc.policyService.GetPolicy(c, policyID)
	if err != nil {
		if errors.Is(err, doc_errors.ErrPolicyNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Policy not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve policy", err)
		}
		return
	}

	c.JSON(http.StatusOK, policy)
}

// ListPolicies endpoint
func (pc *PolicyController) ListPolicies(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	policies, err := pc.policyService.ListPolicies(c, limit, offset)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list policies", err)
		return
	}

	c.JSON(http.StatusOK, policies)
}

// ActivatePolicy endpoint
func (pc *PolicyController) ActivatePolicy(c *gin.Context) {
	pc.setActivation(c, func(policyID, userID string) (*model.AutoPolicy, error) {
		return pc.policyService.ActivatePolicy(c, policyID, userID)
	})
}

// DeactivatePolicy endpoint
func (pc *PolicyController) DeactivatePolicy(c *gin.Context) {
	pc.setActivation(c, func(policyID, userID string) (*model.AutoPolicy, error) {
		return pc.policyService.DeactivatePolicy(c, policyID, userID)
	})
}

// TogglePolicy endpoint
func (pc *PolicyController) TogglePolicy(c *gin.Context) {
	pc.setActivation(c, func(policyID, userID string) (*model.AutoPolicy, error) {
		return pc.policyService.TogglePolicy(c, policyID, userID)
	})
}

func (pc *PolicyController) setActivation(c *gin.Context, apply func(policyID, userID string) (*model.AutoPolicy, error)) {
	policyID := c.Param("id")
	userID, err := util.GetUserIDFromContext(c)
	if err != nil || userID == "" {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", doc_errors.ErrUnauthorized)
		return
	}

	policy, err := apply(policyID, userID)
	if err != nil {
		if errors.Is(err, doc_errors.ErrPolicyNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Policy not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to update policy activation", err)
		}
		return
	}

	c.JSON(http.StatusOK, policy)
}
