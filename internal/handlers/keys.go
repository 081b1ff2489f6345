package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Daquiver1/veefyed/internal/middleware"
	"github.com/Daquiver1/veefyed/internal/models"
	"github.com/Daquiver1/veefyed/internal/repository"
	"github.com/Daquiver1/veefyed/internal/service"
)

type issueKeyRequest struct {
	Name   string   `json:"name" binding:"required"`
	Scopes []string `json:"scopes" binding:"required"`
}

type keyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Scopes    []string  `json:"scopes"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toKeyResponse(credential models.Credential) keyResponse {
	scopes := make([]string, 0, len(credential.Scopes))
	for _, scope := range credential.Scopes {
		scopes = append(scopes, string(scope))
	}
	return keyResponse{
		ID:        credential.ID,
		Name:      credential.Name,
		Scopes:    scopes,
		IsActive:  credential.IsActive,
		CreatedAt: credential.CreatedAt,
		UpdatedAt: credential.UpdatedAt,
	}
}

// IssueKey mints a credential. The response carries the plaintext secret;
// this is the only time it is ever returned.
func (h HandlerSet) IssueKey(c *gin.Context) {
	var req issueKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	scopes := make([]models.Scope, 0, len(req.Scopes))
	for _, scope := range req.Scopes {
		scopes = append(scopes, models.Scope(scope))
	}

	result, err := h.credentials.Issue(c.Request.Context(), service.IssueInput{
		Name:   req.Name,
		Scopes: scopes,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidScope) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_scopes"})
			return
		}
		h.log.Error().Err(err).Msg("issue key failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"key":    toKeyResponse(result.Credential),
		"secret": result.Secret,
	})
}

// CurrentKey returns metadata for the credential presented in the header.
// The secret itself never appears in a URL or a response.
func (h HandlerSet) CurrentKey(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	credential, err := h.credentials.Get(c.Request.Context(), principal.CredentialID)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		h.log.Error().Err(err).Msg("get key failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"key": toKeyResponse(credential)})
}

// RevokeCurrentKey soft-deletes the presenting credential. Every later
// verification with it fails.
func (h HandlerSet) RevokeCurrentKey(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.credentials.Revoke(c.Request.Context(), principal.CredentialID); err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		h.log.Error().Err(err).Msg("revoke key failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
		return
	}

	c.Status(http.StatusNoContent)
}
