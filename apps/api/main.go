package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/iamthanushgowdap/apsconnect/apps/api/echo"
	"github.com/iamthanushgowdap/apsconnect/core"
	"github.com/iamthanushgowdap/apsconnect/core/academic"
	"github.com/iamthanushgowdap/apsconnect/core/account"
	"github.com/iamthanushgowdap/apsconnect/core/chat"
	assistantsvc "github.com/iamthanushgowdap/apsconnect/services/assistant"
	blobsvc "github.com/iamthanushgowdap/apsconnect/services/blob"
	denysvc "github.com/iamthanushgowdap/apsconnect/services/denylist"
	emailsvc "github.com/iamthanushgowdap/apsconnect/services/email"
	logsvc "github.com/iamthanushgowdap/apsconnect/services/logger"
	"github.com/iamthanushgowdap/apsconnect/storage/database"
	"github.com/iamthanushgowdap/apsconnect/storage/database/sqlxrepos"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	workDir, err := os.Getwd()
	if err != nil {
		log.Fatalf("getting working directory: %v", err)
	}
	conf, err := core.NewConfig(workDir)
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	// set up logger
	var logger core.Logger
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	if conf.Debug {
		logger = logsvc.NewStdLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, conf)
	}
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	// set up redis-backed session denylist
	rdb := denysvc.NewRedisClient(conf)
	defer func() { _ = rdb.Close() }()
	denylist := denysvc.NewRedisDenylist(rdb)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	var blobs core.BlobStore = blobsvc.NewCloudinaryStore(conf)
	acctSvc := account.NewService(sqlxrepos.NewAccountRepository(db), mailSvc, denylist, logger, conf)
	acadSvc := academic.NewService(sqlxrepos.NewAcademicRepository(db), blobs, logger)
	chatSvc := chat.NewService(assistantsvc.NewGeminiCompleter(conf), logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	account.RegisterValidators(validate, translator)

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:        conf,
			Logger:      logger,
			AccountSvc:  acctSvc,
			AcademicSvc: acadSvc,
			ChatSvc:     chatSvc,
			Denylist:    denylist,
			Validate:    validate,
			Translator:  translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB, conf); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
