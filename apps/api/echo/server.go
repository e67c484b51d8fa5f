package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/innocell/innocell/core"
	"github.com/innocell/innocell/core/dashboard"
	"github.com/innocell/innocell/core/event"
	"github.com/innocell/innocell/core/feedback"
	"github.com/innocell/innocell/core/idea"
	"github.com/innocell/innocell/core/page"
	"github.com/innocell/innocell/core/payment"
	"github.com/innocell/innocell/core/setting"
	"github.com/innocell/innocell/core/team"
	"github.com/innocell/innocell/core/user"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool

		UserSvc      user.Service
		IdeaSvc      idea.Service
		EventSvc     event.Service
		TeamSvc      team.Service
		PaymentSvc   payment.Service
		FeedbackSvc  feedback.Service
		PageSvc      page.Service
		SettingSvc   setting.Service
		DashboardSvc dashboard.Service
	}

	Server struct {
		ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		ServerDeps: deps,
		app:        echo.New(),
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	debug := s.Conf.Debug

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || s.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.Logger, s.Translator, s.SignalShutdown)
	s.app.Debug = debug
	s.app.Renderer = newTemplateRenderer()
	s.app.Use(maintenanceMiddleware(s.SettingSvc))

	s.app.GET("/", s.home)
	registerPageViews(s.app, s.PageSvc, s.SettingSvc)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)
	optJWT := middleware.JWTWithConfig(optionalJWTConfig)

	registerUserAPI(v1, jwt, s.UserSvc, s.SettingSvc, s.EventSvc, s.TeamSvc, s.Validate)
	registerIdeaAPI(v1, jwt, s.IdeaSvc, s.UserSvc, s.Validate)
	registerEventAPI(v1, jwt, optJWT, s.EventSvc, s.UserSvc, s.Validate)
	registerTeamAPI(v1, jwt, s.TeamSvc, s.UserSvc, s.Validate)
	registerPaymentAPI(v1, jwt, s.PaymentSvc, s.UserSvc, s.Validate)
	registerFeedbackAPI(v1, jwt, s.FeedbackSvc, s.UserSvc, s.Validate)
	registerPageAPI(v1, jwt, s.PageSvc, s.Validate)
	registerSettingAPI(v1, jwt, optJWT, s.SettingSvc)
	registerDashboardAPI(v1, jwt, s.DashboardSvc, s.UserSvc)
}

// Start listens on the configured address; listener errors are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks the main goroutine to stop the server gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	settings, err := s.SettingSvc.All(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.String(http.StatusOK, "Welcome to "+settings.SiteName()+" API!")
}
