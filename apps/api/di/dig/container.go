package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/innocell/innocell/apps/api/echo"
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
	emailsvc "github.com/innocell/innocell/services/email"
	logsvc "github.com/innocell/innocell/services/logger"
	paymentsvc "github.com/innocell/innocell/services/payment"
	"github.com/innocell/innocell/storage/cache"
	"github.com/innocell/innocell/storage/database"
	inmemdb "github.com/innocell/innocell/storage/database/inmem"
	sqlxrepos "github.com/innocell/innocell/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Closer releases a resource at shutdown.
	Closer func() error

	repositories struct {
		dig.Out
		Users     user.Repository
		Ideas     idea.Repository
		Events    event.Repository
		Teams     team.Repository
		Payments  payment.Repository
		Feedback  feedback.Repository
		Pages     page.Repository
		Settings  setting.Repository
		CloseRepo Closer `name:"db"`
	}

	serverParams struct {
		dig.In
		Conf         *core.Config
		Logger       core.Logger
		Validate     *validator.Validate
		Translator   ut.Translator
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
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newSQLRepositories(conf *core.Config, loggerParam DBLoggerParam) repositories {
	setUp := func() (core.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return repositories{
		Users:     sqlxrepos.NewUserRepository(db),
		Ideas:     sqlxrepos.NewIdeaRepository(db),
		Events:    sqlxrepos.NewEventRepository(db),
		Teams:     sqlxrepos.NewTeamRepository(db),
		Payments:  sqlxrepos.NewPaymentRepository(db),
		Feedback:  sqlxrepos.NewFeedbackRepository(db),
		Pages:     sqlxrepos.NewPageRepository(db),
		Settings:  sqlxrepos.NewSettingRepository(db),
		CloseRepo: db.Close,
	}
}

func newInmemRepositories() repositories {
	db := inmemdb.Open()
	return repositories{
		Users:     inmemdb.NewUserRepository(db),
		Ideas:     inmemdb.NewIdeaRepository(db),
		Events:    inmemdb.NewEventRepository(db),
		Teams:     inmemdb.NewTeamRepository(db),
		Payments:  inmemdb.NewPaymentRepository(db),
		Feedback:  inmemdb.NewFeedbackRepository(db),
		Pages:     inmemdb.NewPageRepository(db),
		Settings:  inmemdb.NewSettingRepository(db),
		CloseRepo: func() error { return nil },
	}
}

// newSettingsCache returns a nil cache when redis is not configured.
func newSettingsCache(conf *core.Config, logger core.Logger) setting.Cache {
	rdb, err := cache.Connect(context.Background(), conf)
	if err != nil {
		logger.Error(fmt.Sprintf("connecting to redis, settings will not be cached: %v", err), err)
		return nil
	}
	if rdb == nil {
		return nil
	}
	return cache.NewSettingsCache(rdb, conf.Redis.SettingsTTL)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(log.New(os.Stdout, "MAIL : ", log.LstdFlags), logger, conf)
	}
	return emailsvc.NewSendgridService(logger, conf)
}

func newPaymentGateway(conf *core.Config, logger core.Logger) payment.Gateway {
	if conf.Payment.Provider == "razorpay" {
		return paymentsvc.NewRazorpayGateway(conf, logger)
	}
	return paymentsvc.NewDummyGateway()
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	idea.InitValidators(validate, translator)
	return validate
}

func newPaymentService(
	repo payment.Repository,
	gateway payment.Gateway,
	evtSvc event.Service,
	usrSvc user.Service,
	mailSvc core.EmailService,
	conf *core.Config,
) payment.Service {
	return payment.NewService(repo, gateway, evtSvc, usrSvc, mailSvc, conf.Payment)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:         p.Conf,
		Logger:       p.Logger,
		Validate:     p.Validate,
		Translator:   p.Translator,
		UserSvc:      p.UserSvc,
		IdeaSvc:      p.IdeaSvc,
		EventSvc:     p.EventSvc,
		TeamSvc:      p.TeamSvc,
		PaymentSvc:   p.PaymentSvc,
		FeedbackSvc:  p.FeedbackSvc,
		PageSvc:      p.PageSvc,
		SettingSvc:   p.SettingSvc,
		DashboardSvc: p.DashboardSvc,
	})
}

// New returns a new dependency injection dig.Container.
// inmem swaps postgres for the in-memory repositories.
func New(inmem bool) *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	if inmem {
		must(c.Provide(newInmemRepositories))
	} else {
		must(c.Provide(newSQLRepositories))
	}
	must(c.Provide(newSettingsCache))
	must(c.Provide(newEmailService))
	must(c.Provide(newPaymentGateway))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))

	// teams back the membership checks of events and ideas
	must(c.Provide(func(r team.Repository) event.TeamInfo { return r }))
	must(c.Provide(func(r team.Repository) idea.TeamChecker { return r }))
	must(c.Provide(func(r payment.Repository) event.PaymentLedger { return r }))

	must(c.Provide(user.NewService))
	must(c.Provide(setting.NewService))
	must(c.Provide(event.NewService))
	must(c.Provide(team.NewService))
	must(c.Provide(idea.NewService))
	must(c.Provide(newPaymentService))
	must(c.Provide(feedback.NewService))
	must(c.Provide(page.NewService))
	must(c.Provide(dashboard.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
