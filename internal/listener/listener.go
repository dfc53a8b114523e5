// Package listener runs the loopback endpoint other applications use to
// hand a session token to attendsum.
package listener

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/yildizm/AttendSum/internal/logger"
	"github.com/yildizm/AttendSum/internal/session"
)

const shutdownTimeout = 5 * time.Second

// Acceptor adopts credential messages
type Acceptor interface {
	AcceptMessage(msg session.Message, origin string) error
	Authenticated() bool
}

// Server serves POST /messages and GET /healthz
type Server struct {
	addr     string
	router   *echo.Echo
	sessions Acceptor
	log      *logger.Logger
}

type appValidator struct {
	validate *validator.Validate
}

func (v appValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

var (
	errOriginRejected = echo.NewHTTPError(http.StatusForbidden, "origin not allowed")
	errBadMessage     = echo.NewHTTPError(http.StatusBadRequest, "malformed message")
)

// New builds a server listening on addr
func New(addr string, sessions Acceptor, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}

	s := &Server{
		addr:     addr,
		router:   echo.New(),
		sessions: sessions,
		log:      log,
	}

	e := s.router
	e.HideBanner = true
	e.HidePort = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderContentType},
	}))
	e.Validator = &appValidator{validate: validator.New()}
	e.HTTPErrorHandler = s.errorHandler

	e.GET("/healthz", s.health)
	e.POST("/messages", s.message)

	return s
}

// Handler exposes the router for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening for credential messages on %s", s.addr)
		errCh <- s.router.Start(s.addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.router.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":        "ok",
		"authenticated": s.sessions.Authenticated(),
	})
}

func (s *Server) message(c echo.Context) error {
	var msg session.Message
	if err := c.Bind(&msg); err != nil {
		return errBadMessage
	}
	if err := c.Validate(&msg); err != nil {
		return err
	}

	origin := c.Request().Header.Get(echo.HeaderOrigin)
	if err := s.sessions.AcceptMessage(msg, origin); err != nil {
		return err
	}

	s.log.InfoWithFields("credential message accepted", []logger.Field{logger.F("origin", origin)})
	return c.JSON(http.StatusAccepted, echo.Map{"status": "accepted"})
}

func (s *Server) errorHandler(err error, c echo.Context) {
	var (
		code    int
		message interface{}
		verrs   validator.ValidationErrors
		herr    *echo.HTTPError
	)

	switch {
	case errors.Is(err, session.ErrOriginRejected):
		code, message = errOriginRejected.Code, errOriginRejected.Message
	case errors.Is(err, session.ErrUnsupportedMessage):
		code, message = http.StatusBadRequest, "unsupported message type"
	case errors.As(err, &verrs):
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		code, message = http.StatusBadRequest, fields
	case errors.As(err, &herr):
		code, message = herr.Code, herr.Message
	default:
		code, message = http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}

	if m, ok := message.(string); ok {
		message = echo.Map{"error": m}
	}

	if c.Response().Committed {
		return
	}
	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, message)
	}
	if writeErr != nil || code >= http.StatusInternalServerError {
		s.log.WarnWithFields("listener request failed", []logger.Field{
			logger.Path(c.Request().URL.Path), logger.Status(code), logger.Error(err),
		})
	}
}
