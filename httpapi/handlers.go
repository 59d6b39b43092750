package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	greenauth "github.com/mimigigabyte/greenauth"
	"github.com/mimigigabyte/greenauth/token"
)

type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respond(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Code: 0, Message: "ok", Data: data})
}

func failWith(c *gin.Context, err error) {
	status, message := statusFor(err)
	c.JSON(status, envelope{Code: status, Message: message})
}

// statusFor keeps client-visible messages generic; internal errors never leak
// their text.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, greenauth.ErrValidation):
		return http.StatusBadRequest, greenauth.ErrValidation.Error()
	case errors.Is(err, greenauth.ErrInvalidCredentials):
		return http.StatusUnauthorized, greenauth.ErrInvalidCredentials.Error()
	case errors.Is(err, greenauth.ErrAccountLocked):
		return http.StatusLocked, greenauth.ErrAccountLocked.Error()
	case errors.Is(err, greenauth.ErrAccountDisabled):
		return http.StatusForbidden, greenauth.ErrAccountDisabled.Error()
	case errors.Is(err, greenauth.ErrDuplicateAccount):
		return http.StatusConflict, greenauth.ErrDuplicateAccount.Error()
	case errors.Is(err, greenauth.ErrCodeRateLimited):
		return http.StatusTooManyRequests, greenauth.ErrCodeRateLimited.Error()
	case errors.Is(err, greenauth.ErrCodeNotFound),
		errors.Is(err, greenauth.ErrCodeMismatch),
		errors.Is(err, greenauth.ErrCodeExhausted):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, greenauth.ErrTokenExpired),
		errors.Is(err, greenauth.ErrTokenMalformed),
		errors.Is(err, greenauth.ErrTokenWrongType):
		return http.StatusUnauthorized, "invalid token"
	case errors.Is(err, greenauth.ErrOAuthStateInvalid),
		errors.Is(err, greenauth.ErrOAuthCodeInvalid):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, greenauth.ErrUserNotFound):
		return http.StatusNotFound, greenauth.ErrUserNotFound.Error()
	case errors.Is(err, greenauth.ErrDeliveryFailed),
		errors.Is(err, greenauth.ErrUpstreamUnavailable):
		return http.StatusBadGateway, "upstream unavailable, please retry"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

type registerBody struct {
	CountryCode string `json:"countryCode" binding:"omitempty,max=8"`
	Phone       string `json:"phone" binding:"omitempty,phonedigits"`
	Email       string `json:"email" binding:"omitempty,email"`
	Password    string `json:"password" binding:"required,min=6"`
	Name        string `json:"name" binding:"omitempty,max=128"`
	Code        string `json:"code" binding:"required"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var body registerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		failWith(c, greenauth.ErrValidation)
		return
	}

	result, err := s.engine.Register(c.Request.Context(), greenauth.RegisterRequest{
		CountryCode: body.CountryCode,
		Phone:       body.Phone,
		Email:       body.Email,
		Password:    body.Password,
		Name:        body.Name,
		Code:        body.Code,
	})
	if err != nil {
		failWith(c, err)
		return
	}
	respond(c, result)
}

type passwordLoginBody struct {
	CountryCode string `json:"countryCode" binding:"omitempty,max=8"`
	Phone       string `json:"phone" binding:"omitempty,phonedigits"`
	Email       string `json:"email" binding:"omitempty,email"`
	Password    string `json:"password" binding:"required"`
}

func (s *Server) handlePasswordLogin(c *gin.Context) {
	var body passwordLoginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		failWith(c, greenauth.ErrValidation)
		return
	}

	result, err := s.engine.LoginWithPassword(c.Request.Context(), greenauth.PasswordLoginRequest{
		CountryCode: body.CountryCode,
		Phone:       body.Phone,
		Email:       body.Email,
		Password:    body.Password,
	})
	if err != nil {
		failWith(c, err)
		return
	}
	respond(c, result)
}

type codeLoginBody struct {
	CountryCode string `json:"countryCode" binding:"omitempty,max=8"`
	Phone       string `json:"phone" binding:"omitempty,phonedigits"`
	Email       string `json:"email" binding:"omitempty,email"`
	Code        string `json:"code" binding:"required"`
}

func (s *Server) handleCodeLogin(c *gin.Context) {
	var body codeLoginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		failWith(c, greenauth.ErrValidation)
		return
	}

	result, err := s.engine.LoginWithCode(c.Request.Context(), greenauth.CodeLoginRequest{
		CountryCode: body.CountryCode,
		Phone:       body.Phone,
		Email:       body.Email,
		Code:        body.Code,
	})
	if err != nil {
		failWith(c, err)
		return
	}
	respond(c, result)
}

type sendCodeBody struct {
	CountryCode string `json:"countryCode" binding:"omitempty,max=8"`
	Phone       string `json:"phone" binding:"omitempty,phonedigits"`
	Email       string `json:"email" binding:"omitempty,email"`
	Purpose     string `json:"purpose" binding:"required,oneof=register login reset_password"`
}

func (s *Server) handleSendCode(c *gin.Context) {
	var body sendCodeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		failWith(c, greenauth.ErrValidation)
		return
	}

	err := s.engine.SendCode(c.Request.Context(), greenauth.SendCodeRequest{
		CountryCode: body.CountryCode,
		Phone:       body.Phone,
		Email:       body.Email,
		Purpose:     greenauth.Purpose(body.Purpose),
	})
	if err != nil {
		failWith(c, err)
		return
	}
	respond(c, nil)
}

type refreshBody struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (s *Server) handleRefresh(c *gin.Context) {
	var body refreshBody
	if err := c.ShouldBindJSON(&body); err != nil {
		failWith(c, greenauth.ErrValidation)
		return
	}

	result, err := s.engine.Refresh(c.Request.Context(), body.RefreshToken)
	if err != nil {
		failWith(c, err)
		return
	}
	respond(c, result)
}

type resetPasswordBody struct {
	CountryCode string `json:"countryCode" binding:"omitempty,max=8"`
	Phone       string `json:"phone" binding:"omitempty,phonedigits"`
	Email       string `json:"email" binding:"omitempty,email"`
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

func (s *Server) handleResetPassword(c *gin.Context) {
	var body resetPasswordBody
	if err := c.ShouldBindJSON(&body); err != nil {
		failWith(c, greenauth.ErrValidation)
		return
	}

	err := s.engine.ResetPassword(c.Request.Context(), greenauth.ResetPasswordRequest{
		CountryCode: body.CountryCode,
		Phone:       body.Phone,
		Email:       body.Email,
		Code:        body.Code,
		NewPassword: body.NewPassword,
	})
	if err != nil {
		failWith(c, err)
		return
	}
	respond(c, nil)
}

func (s *Server) handleOAuthURL(c *gin.Context) {
	redirectURI := c.Query("redirect_uri")
	if redirectURI == "" {
		failWith(c, greenauth.ErrValidation)
		return
	}

	url, err := s.engine.AuthorizationURL(c.Request.Context(), redirectURI)
	if err != nil {
		failWith(c, err)
		return
	}
	respond(c, gin.H{"url": url})
}

type oauthCallbackBody struct {
	State string `json:"state" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

func (s *Server) handleOAuthCallback(c *gin.Context) {
	var body oauthCallbackBody
	if err := c.ShouldBindJSON(&body); err != nil {
		failWith(c, greenauth.ErrValidation)
		return
	}

	result, err := s.engine.LoginWithOAuth(c.Request.Context(), greenauth.OAuthCallbackRequest{
		State: body.State,
		Code:  body.Code,
	})
	if err != nil {
		failWith(c, err)
		return
	}
	respond(c, result)
}

func (s *Server) handleMe(c *gin.Context) {
	value, ok := c.Get("claims")
	if !ok {
		failWith(c, greenauth.ErrTokenMalformed)
		return
	}
	claims, ok := value.(*token.Claims)
	if !ok {
		failWith(c, greenauth.ErrTokenMalformed)
		return
	}

	respond(c, gin.H{
		"id":   claims.UID,
		"role": claims.Role,
		"name": claims.Name,
	})
}
