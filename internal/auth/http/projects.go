package http

import (
	"net/http"

	"github.com/aussiebroadwan/techauth/internal/auth/service"
	"github.com/aussiebroadwan/techauth/pkg/authsdk"
	"github.com/aussiebroadwan/techauth/pkg/httpx"
)

type ProjectsHandler struct {
	InvitationService   *service.InvitationService
	ProvisioningService *service.ProvisioningService
}

// HandleCreateInvitation godoc
//
//	@Summary		Create Project Invitation
//	@Description	Issue a single-use invitation key bound to an email address and email it. Global admins only.
//	@Tags			Projects
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		authsdk.CreateInvitationRequest	true	"Invitee"
//	@Success		201		{object}	authsdk.InvitationResponse
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Failure		401		{object}	authsdk.ErrorResponse
//	@Failure		403		{object}	authsdk.ErrorResponse	"access_denied"
//	@Router			/v1/projects/invitations [post].
func (h *ProjectsHandler) HandleCreateInvitation(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	var req authsdk.CreateInvitationRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	issued, err := h.InvitationService.Create(r.Context(), service.CreateInvitationInput{
		CreatedByID: userID,
		Email:       req.Email,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.InvitationResponse{
		Key:         issued.Key,
		Email:       issued.Invitation.Email,
		ExpiresAt:   issued.Invitation.ExpiresAt,
		Description: issued.Invitation.Description,
		Link:        issued.Link,
	})
}

// HandleCreateProject godoc
//
//	@Summary		Create Project
//	@Description	Redeem an invitation key: create the project, its admin user (unless the email already has an account)
//	@Description	and the admin membership in one transaction. The API secret is returned only in this response.
//	@Tags			Projects
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.CreateProjectRequest	true	"Invitation key, project and admin details"
//	@Success		201		{object}	authsdk.CreateProjectResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invitation_invalid, invitation_used, invitation_expired, invitation_email_mismatch"
//	@Failure		409		{object}	authsdk.ErrorResponse	"slug_taken"
//	@Router			/v1/projects [post].
func (h *ProjectsHandler) HandleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CreateProjectRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	res, err := h.ProvisioningService.CreateTenant(r.Context(), service.CreateTenantInput{
		InvitationKey:  req.InvitationKey,
		TenantName:     req.ProjectName,
		TenantSlug:     req.ProjectSlug,
		Email:          req.Email,
		Password:       req.Password,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		AllowedOrigins: req.AllowedOrigins,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.CreateProjectResponse{
		Project: authsdk.ProjectCredentials{
			ID:        res.Project.ID,
			Name:      res.Project.Name,
			Slug:      res.Project.Slug,
			APIKey:    res.APIKey,
			APISecret: res.APISecret,
		},
		User: authsdk.ProjectAdmin{
			ID:      res.User.ID,
			Email:   res.User.Email,
			Created: res.UserCreated,
		},
	})
}
