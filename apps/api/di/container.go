// Package di builds the dependency graph of the API.
package di

import (
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/mpiangona/apps/api/echo"
	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/card"
	"github.com/trezcool/mpiangona/core/contribution"
	"github.com/trezcool/mpiangona/core/dues"
	"github.com/trezcool/mpiangona/core/event"
	"github.com/trezcool/mpiangona/core/group"
	"github.com/trezcool/mpiangona/core/member"
	"github.com/trezcool/mpiangona/core/notification"
	"github.com/trezcool/mpiangona/core/report"
	"github.com/trezcool/mpiangona/core/role"
	"github.com/trezcool/mpiangona/core/setting"
	"github.com/trezcool/mpiangona/core/user"
	emailsvc "github.com/trezcool/mpiangona/services/email"
	logsvc "github.com/trezcool/mpiangona/services/logger"
	metricsvc "github.com/trezcool/mpiangona/services/metrics"
	pdfsvc "github.com/trezcool/mpiangona/services/pdf"
	qrsvc "github.com/trezcool/mpiangona/services/qr"
	inmemdb "github.com/trezcool/mpiangona/storage/database/inmem"
	sqlxrepos "github.com/trezcool/mpiangona/storage/database/sqlx"
)

// Repositories is the storage the services run on.
type Repositories struct {
	Users         user.Repository
	Roles         role.Repository
	Members       member.Repository
	Groups        group.Repository
	Dues          dues.Repository
	Contributions contribution.Repository
	Settings      setting.Repository
}

func InMemory(db *inmemdb.DB) Repositories {
	return Repositories{
		Users:         inmemdb.NewUserRepository(db),
		Roles:         inmemdb.NewRoleRepository(db),
		Members:       inmemdb.NewMemberRepository(db),
		Groups:        inmemdb.NewGroupRepository(db),
		Dues:          inmemdb.NewDuesRepository(db),
		Contributions: inmemdb.NewContributionRepository(db),
		Settings:      inmemdb.NewSettingRepository(db),
	}
}

func SQL(exec core.DBExecutor) Repositories {
	return Repositories{
		Users:         sqlxrepos.NewUserRepository(exec),
		Roles:         sqlxrepos.NewRoleRepository(exec),
		Members:       sqlxrepos.NewMemberRepository(exec),
		Groups:        sqlxrepos.NewGroupRepository(exec),
		Dues:          sqlxrepos.NewDuesRepository(exec),
		Contributions: sqlxrepos.NewContributionRepository(exec),
		Settings:      sqlxrepos.NewSettingRepository(exec),
	}
}

// Container owns the services and the lifecycle-scoped pieces: the change bus and its subscribers.
type Container struct {
	Conf          *core.Config
	Logger        core.Logger
	Bus           *event.Bus
	Sessions      *user.SessionStore
	Notifications *notification.Center
	FanOut        *notification.FanOut
	Metrics       *metricsvc.Metrics
	Deps          echoapi.ServerDeps

	metricsSub *event.Subscription
}

func NewLogger(conf *core.Config, prefix string) core.Logger {
	stdLogger := log.New(os.Stdout, prefix, log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func NewEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, logger, os.Stdout)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// NewValidator registers every custom validation of the domain.
func NewValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	role.InitValidators(validate, translator)
	member.InitValidators(validate, translator)
	contribution.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

func New(conf *core.Config, logger core.Logger, repos Repositories, mailSvc core.EmailService) *Container {
	translator := NewTranslator()
	validate := NewValidator(translator)
	bus := event.NewBus()

	settingSvc := setting.NewService(repos.Settings, bus, validate)
	roleSvc := role.NewService(repos.Roles, bus)
	sessions := user.NewSessionStore()
	userSvc := user.NewService(repos.Users, roleSvc, sessions, mailSvc, bus, validate, conf)
	userSvc.SessionTTL = settingSvc.SessionTimeout

	groupSvc := group.NewService(repos.Groups, nil, bus, validate)
	groupSvc.MaxMembers = settingSvc.MaxUsersPerGroup
	memberSvc := member.NewService(repos.Members, groupSvc, bus, validate)
	groupSvc.SetMemberFinder(memberSvc)

	duesSvc := dues.NewService(repos.Dues, memberSvc, bus, validate)
	contributionSvc := contribution.NewService(repos.Contributions, memberSvc, bus, validate)

	renderer := pdfsvc.NewRenderer(conf.AppName)
	reportSvc := report.NewService(contributionSvc, duesSvc, renderer, mailSvc)

	center := notification.NewCenter(conf.Notifications.Capacity)
	toaster := notification.ToasterFunc(func(n notification.Notification) {
		logger.Info(n.Title + ": " + n.Message)
	})
	metrics := metricsvc.New()
	raster := qrsvc.NewRasterizer()

	return &Container{
		Conf:          conf,
		Logger:        logger,
		Bus:           bus,
		Sessions:      sessions,
		Notifications: center,
		FanOut:        notification.NewFanOut(center, toaster),
		Metrics:       metrics,
		Deps: echoapi.ServerDeps{
			Conf:            conf,
			Logger:          logger,
			Validate:        validate,
			Translator:      translator,
			Metrics:         metrics,
			UserSvc:         userSvc,
			RoleSvc:         roleSvc,
			MemberSvc:       memberSvc,
			GroupSvc:        groupSvc,
			DuesSvc:         duesSvc,
			ContributionSvc: contributionSvc,
			SettingSvc:      settingSvc,
			Bus:             bus,
			ReportSvc:       reportSvc,
			Notifications:   center,
			Cards:           card.NewGenerator(raster, conf.Cards.Workers, conf.Cards.QRSize),
			CardRenderer:    renderer,
			QR:              raster,
		},
	}
}

// Start subscribes the notification fan-out and the metrics to the bus.
func (c *Container) Start() {
	c.FanOut.Start(c.Bus)
	if c.metricsSub == nil {
		c.metricsSub = c.Metrics.Observe(c.Bus)
	}
}

// Stop tears down every subscription and closes the bus.
func (c *Container) Stop() {
	c.FanOut.Stop()
	c.metricsSub.Unsubscribe()
	c.metricsSub = nil
	c.Bus.Close()
}
