// Package handler contains the HTTP handlers for the gateway.
package handler

import (
	"log/slog"

	deliverycontext "authgate/internal/delivery/context"
	"authgate/internal/delivery/http/response"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/domain/entity"
	"authgate/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AuthenHandlerParams holds dependencies for AuthenHandler, injected by Fx.
type AuthenHandlerParams struct {
	fx.In

	AuthenUC usecase.AuthenUsecase
	Logger   *slog.Logger
}

// AuthenHandler serves the /auth routes. Every route runs behind the envelope middleware,
// so the verified identity and the decoded envelope are always present.
type AuthenHandler struct {
	authenUC usecase.AuthenUsecase
	logger   *slog.Logger
}

// NewAuthenHandler is the constructor for AuthenHandler
func NewAuthenHandler(params AuthenHandlerParams) *AuthenHandler {
	return &AuthenHandler{
		authenUC: params.AuthenUC,
		logger:   params.Logger,
	}
}

// LoginRequest is the body of /auth/login. Either account or idToken is required.
type LoginRequest struct {
	Account   string `json:"account" validate:"required_without=IDToken"`
	Password  string `json:"password"`
	Mac       string `json:"mac"`
	ValidID   string `json:"valid"`
	ValidCode string `json:"validCode" validate:"required_with=ValidID"`
	IDToken   string `json:"idToken"`
}

// RefreshRequest is the body of /auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// RefreshResponse is the body answered by /auth/refresh
type RefreshResponse struct {
	Token        string           `json:"token"`
	RefreshToken string           `json:"refreshToken"`
	User         *entity.UserInfo `json:"user"`
}

// RegisterRequest is the body of /auth/register
type RegisterRequest struct {
	Account  string `json:"account" validate:"required"`
	Password string `json:"password"`
	Mobile   string `json:"mobile"`
}

// ModifyPasswordRequest is the body of /auth/password/modify
type ModifyPasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,nefield=OldPassword"`
}

// ForceModifyPasswordRequest is the body of /auth/password/force.
// UserID may only name the caller.
type ForceModifyPasswordRequest struct {
	UserID      string `json:"userId" validate:"omitempty,uuid"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// ResetPasswordRequest is the body of /auth/password/reset.
// UserID may only name the caller.
type ResetPasswordRequest struct {
	UserID string `json:"userId" validate:"omitempty,uuid"`
}

// Login authenticates the caller on the envelope's channel.
func (h *AuthenHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := h.bind(c, &req); err != nil {
		return response.HandleAppError(c, err)
	}

	identity := deliverycontext.GetIdentity(c)
	cert, err := h.authenUC.Authenticate(c.Request().Context(), &usecase.LoginInput{
		Channel:   identity.Channel,
		RequestID: deliverycontext.GetRequestID(c),
		Account:   req.Account,
		Password:  req.Password,
		Mac:       req.Mac,
		IPAddr:    c.RealIP(),
		ValidID:   req.ValidID,
		ValidCode: req.ValidCode,
		IDToken:   req.IDToken,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, cert)
}

// Refresh rotates the access token of a session and returns it with the user's info.
func (h *AuthenHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := h.bind(c, &req); err != nil {
		return response.HandleAppError(c, err)
	}

	ctx := c.Request().Context()
	channel := deliverycontext.GetIdentity(c).Channel

	data, err := h.authenUC.LoadUserByRefreshToken(ctx, channel, req.RefreshToken)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	user, err := h.authenUC.LoadUserByID(ctx, channel, data.UserID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, &RefreshResponse{
		Token:        data.Token,
		RefreshToken: data.RefreshToken,
		User:         user,
	})
}

// Register creates an account, or returns the existing one with the same name.
func (h *AuthenHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := h.bind(c, &req); err != nil {
		return response.HandleAppError(c, err)
	}

	account, err := h.authenUC.Register(c.Request().Context(), &usecase.RegisterInput{
		Channel:  deliverycontext.GetIdentity(c).Channel,
		Account:  req.Account,
		Password: req.Password,
		Mobile:   req.Mobile,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, account)
}

// Logout invalidates every session of the caller.
func (h *AuthenHandler) Logout(c echo.Context) error {
	identity := deliverycontext.GetIdentity(c)

	ok, err := h.authenUC.Logout(c.Request().Context(), identity.Channel, identity.UserID)
	if err != nil {
		return response.HandleAppError(c, err)
	}
	if !ok {
		return response.Error(c, domainerrors.ErrUnknown)
	}

	return response.Success(c, nil)
}

// ModifyPassword changes the caller's password after checking the old one.
func (h *AuthenHandler) ModifyPassword(c echo.Context) error {
	var req ModifyPasswordRequest
	if err := h.bind(c, &req); err != nil {
		return response.HandleAppError(c, err)
	}

	identity := deliverycontext.GetIdentity(c)
	ok, err := h.authenUC.ModifyPassword(c.Request().Context(), &usecase.ModifyPasswordInput{
		Channel:     identity.Channel,
		UserID:      identity.UserID,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})

	return h.renderResult(c, ok, err)
}

// ForceModifyPassword sets a password without checking the old one.
func (h *AuthenHandler) ForceModifyPassword(c echo.Context) error {
	var req ForceModifyPasswordRequest
	if err := h.bind(c, &req); err != nil {
		return response.HandleAppError(c, err)
	}

	identity := deliverycontext.GetIdentity(c)
	if err := checkSelf(req.UserID, identity.UserID); err != nil {
		return response.HandleAppError(c, err)
	}

	ok, err := h.authenUC.ForceModifyPassword(c.Request().Context(), identity.Channel, identity.UserID, req.NewPassword)

	return h.renderResult(c, ok, err)
}

// ResetPassword restores the configured default password.
func (h *AuthenHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := h.bind(c, &req); err != nil {
		return response.HandleAppError(c, err)
	}

	identity := deliverycontext.GetIdentity(c)
	if err := checkSelf(req.UserID, identity.UserID); err != nil {
		return response.HandleAppError(c, err)
	}

	ok, err := h.authenUC.ResetPassword(c.Request().Context(), identity.Channel, identity.UserID)

	return h.renderResult(c, ok, err)
}

// CurrentUser returns the caller's public info.
func (h *AuthenHandler) CurrentUser(c echo.Context) error {
	identity := deliverycontext.GetIdentity(c)

	user, err := h.authenUC.LoadUserByID(c.Request().Context(), identity.Channel, identity.UserID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, user)
}

// bind decodes the envelope body into v and validates it.
func (h *AuthenHandler) bind(c echo.Context, v any) error {
	envelope := deliverycontext.GetEnvelope(c)
	if envelope == nil {
		return domainerrors.ErrProtocolVerify
	}

	if err := envelope.BindBody(v); err != nil {
		return domainerrors.ErrFailure.WithDetails("invalid body")
	}

	if err := c.Validate(v); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails(err.Error())
	}

	return nil
}

func (h *AuthenHandler) renderResult(c echo.Context, ok bool, err error) error {
	if err != nil {
		return response.HandleAppError(c, err)
	}
	if !ok {
		return response.Error(c, domainerrors.ErrFailure)
	}

	return response.Success(c, nil)
}

// targetUser parses an explicit user id, falling back to the caller. The id was validated by bind.
// checkSelf rejects a userId naming anyone but the verified caller.
func checkSelf(raw string, caller uuid.UUID) error {
	if raw == "" || uuid.MustParse(raw) == caller {
		return nil
	}

	return domainerrors.ErrPermissionDenied
}
