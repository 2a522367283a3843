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

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/card"
	"github.com/trezcool/mpiangona/core/contribution"
	"github.com/trezcool/mpiangona/core/dues"
	"github.com/trezcool/mpiangona/core/event"
	"github.com/trezcool/mpiangona/core/group"
	"github.com/trezcool/mpiangona/core/member"
	"github.com/trezcool/mpiangona/core/notification"
	"github.com/trezcool/mpiangona/core/qrcode"
	"github.com/trezcool/mpiangona/core/report"
	"github.com/trezcool/mpiangona/core/role"
	"github.com/trezcool/mpiangona/core/setting"
	"github.com/trezcool/mpiangona/core/user"
)

type (
	// Metrics instruments the server. Optional.
	Metrics interface {
		Middleware() echo.MiddlewareFunc
		Handler() http.Handler
		CardsRendered(rendered, skipped int)
	}

	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		Metrics        Metrics
		DisableReqLogs bool

		UserSvc         *user.Service
		RoleSvc         *role.Service
		MemberSvc       *member.Service
		GroupSvc        *group.Service
		DuesSvc         *dues.Service
		ContributionSvc *contribution.Service
		SettingSvc      *setting.Service
		ReportSvc       *report.Service
		Notifications   *notification.Center
		Bus             *event.Bus

		Cards        *card.Generator
		CardRenderer card.Renderer
		QR           qrcode.Rasterizer
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *Authenticator
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		auth:     NewAuthenticator(deps.Conf, deps.UserSvc, deps.RoleSvc),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if s.deps.Metrics != nil {
		s.app.Use(s.deps.Metrics.Middleware())
		s.app.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	authed := []echo.MiddlewareFunc{s.auth.JWT(), s.auth.Session()}

	registerAuthAPI(v1, authed, s.auth, s.deps)
	registerMemberAPI(v1, authed, s.deps)
	registerCardAPI(v1, authed, s.deps)
	registerGroupAPI(v1, authed, s.deps)
	registerDuesAPI(v1, authed, s.deps)
	registerContributionAPI(v1, authed, s.deps)
	registerReportAPI(v1, authed, s.deps)
	registerRoleAPI(v1, authed, s.deps)
	registerSettingAPI(v1, authed, s.deps)
	registerNotificationAPI(v1, authed, s.auth, s.deps)
}

// Start blocks until the server stops. Listening errors are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

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

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Tongasoa eto amin'ny "+s.deps.Conf.AppName+" API!")
}
