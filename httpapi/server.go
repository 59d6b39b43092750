package httpapi

import (
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	greenauth "github.com/mimigigabyte/greenauth"
)

var phonePattern = regexp.MustCompile(`^[0-9]{5,15}$`)

// Server defines a public type used by greenauth APIs.
//
// Server instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Server struct {
	engine *greenauth.Engine
	logger *zap.Logger
}

// NewServer describes the newserver operation and its observable behavior.
//
// NewServer does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewServer(engine *greenauth.Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		// Digits only; the country code carries the prefix separately.
		_ = v.RegisterValidation("phonedigits", func(fl validator.FieldLevel) bool {
			value := fl.Field().String()
			return value == "" || phonePattern.MatchString(value)
		})
	}

	return &Server{engine: engine, logger: logger}
}

// Router describes the router operation and its observable behavior.
//
// Router does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger(), s.callerContext())

	auth := router.Group("/auth")
	{
		auth.POST("/register", s.handleRegister)
		auth.POST("/login", s.handlePasswordLogin)
		auth.POST("/login/code", s.handleCodeLogin)
		auth.POST("/code", s.handleSendCode)
		auth.POST("/refresh", s.handleRefresh)
		auth.POST("/password/reset", s.handleResetPassword)
		auth.GET("/oauth/url", s.handleOAuthURL)
		auth.POST("/oauth/callback", s.handleOAuthCallback)
		auth.GET("/me", s.requireAccess(), s.handleMe)
	}

	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

// callerContext forwards caller identity into the engine's context so audit
// events carry it.
func (s *Server) callerContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := greenauth.WithClientIP(c.Request.Context(), c.ClientIP())
		ctx = greenauth.WithUserAgent(ctx, c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) requireAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		const bearer = "Bearer "
		header := c.GetHeader("Authorization")
		if len(header) <= len(bearer) || header[:len(bearer)] != bearer {
			failWith(c, greenauth.ErrTokenMalformed)
			c.Abort()
			return
		}

		claims, err := s.engine.VerifyAccess(c.Request.Context(), header[len(bearer):])
		if err != nil {
			failWith(c, err)
			c.Abort()
			return
		}

		c.Set("claims", claims)
		c.Next()
	}
}
