package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/TheHenryLLC/site_backend/internal/httpapi"
	"github.com/TheHenryLLC/site_backend/internal/mailer"
	"github.com/TheHenryLLC/site_backend/internal/service"
	"github.com/TheHenryLLC/site_backend/internal/storage"
	"github.com/TheHenryLLC/site_backend/internal/task"
)

const (
	commandUseName              = "server"
	commandShortDescription     = "Run the site backend"
	commandLongDescription      = "Launch the HTTP backend serving the contact form and newsletter endpoints"
	missingConfigurationMessage = "missing required configuration"
	loggerCreationErrorMessage  = "logger"

	logEventListening     = "listening"
	logEventEmailDisabled = "email_disabled"
	logEventAdminDisabled = "admin_disabled"
	logFieldAddress       = "addr"

	flagNameApplicationAddress     = "app-addr"
	flagNameDatabaseDriver         = "db-driver"
	flagNameDatabaseDataSourceName = "db-dsn"
	flagNameAdminBearerToken       = "admin-bearer-token"
	flagNameSMTPHost               = "smtp-host"
	flagNameSMTPPort               = "smtp-port"
	flagNameSMTPUsername           = "smtp-username"
	flagNameSMTPPassword           = "smtp-password"
	flagNameEmailFrom              = "email-from"
	flagNameAdminEmail             = "admin-email"
	flagNameStaticDirectory        = "static-dir"

	environmentKeyApplicationAddress = "APP_ADDR"
	environmentKeyDatabaseDriver     = "DB_DRIVER"
	environmentKeyDatabaseDataSource = "DB_DSN"
	environmentKeyAdminBearerToken   = "ADMIN_BEARER_TOKEN"
	environmentKeySMTPHost           = "SMTP_HOST"
	environmentKeySMTPPort           = "SMTP_PORT"
	environmentKeySMTPUsername       = "SMTP_USERNAME"
	environmentKeySMTPPassword       = "SMTP_PASSWORD"
	environmentKeyEmailFrom          = "EMAIL_FROM"
	environmentKeyAdminEmail         = "ADMIN_EMAIL"
	environmentKeyStaticDirectory    = "STATIC_DIR"

	defaultApplicationAddress = ":3000"
	defaultDatabaseDriver     = storage.DriverNameSQLite
	defaultDatabaseDSN        = "data/contacts.db"
	defaultSMTPPort           = 587

	loggerContextOpenDatabase = "open_db"
	loggerContextAutoMigrate  = "migrate"
	loggerContextMailer       = "mailer"
	loggerContextServices     = "services"
	loggerContextServer       = "server"

	readHeaderTimeoutSeconds = 5
	rateCounterPruneInterval = time.Minute

	unexpectedArgumentsMessage    = "unexpected command arguments"
	commandInitializationFailure  = "failed to configure command"
	flagNotDefinedMessage         = "flag %s not defined"
	environmentConfigurationError = "failed to apply environment configuration"
)

type stringSetting struct {
	environmentKey string
	flagName       string
	defaultValue   string
	usage          string
}

var stringSettings = []stringSetting{
	{environmentKeyApplicationAddress, flagNameApplicationAddress, defaultApplicationAddress, "address for the HTTP server to listen on"},
	{environmentKeyDatabaseDriver, flagNameDatabaseDriver, defaultDatabaseDriver, "database driver, sqlite or postgres"},
	{environmentKeyDatabaseDataSource, flagNameDatabaseDataSourceName, defaultDatabaseDSN, "database connection string or SQLite file path"},
	{environmentKeyAdminBearerToken, flagNameAdminBearerToken, "", "bearer token required for admin API access"},
	{environmentKeySMTPHost, flagNameSMTPHost, "", "SMTP relay host, leave empty to disable email"},
	{environmentKeySMTPUsername, flagNameSMTPUsername, "", "SMTP username"},
	{environmentKeySMTPPassword, flagNameSMTPPassword, "", "SMTP password"},
	{environmentKeyEmailFrom, flagNameEmailFrom, "", "sender address for transactional email"},
	{environmentKeyAdminEmail, flagNameAdminEmail, "", "address that receives contact form alerts"},
	{environmentKeyStaticDirectory, flagNameStaticDirectory, "", "directory of static frontend assets to serve"},
}

// ServerConfig captures configuration needed to run the server.
type ServerConfig struct {
	ApplicationAddress     string
	DatabaseDriver         string
	DatabaseDataSourceName string
	AdminBearerToken       string
	SMTPHost               string
	SMTPPort               int
	SMTPUsername           string
	SMTPPassword           string
	EmailFromAddress       string
	AdminEmailAddress      string
	StaticDirectory        string
}

// DatabaseOpener opens a database connection from the provided configuration.
type DatabaseOpener func(storage.Config) (*gorm.DB, error)

// ServerApplication constructs and executes the server command.
type ServerApplication struct {
	configurationLoader *viper.Viper
	databaseOpener      DatabaseOpener
}

// NewServerApplication creates a ServerApplication with default dependencies.
func NewServerApplication() *ServerApplication {
	return &ServerApplication{
		configurationLoader: viper.New(),
		databaseOpener:      storage.OpenDatabase,
	}
}

// WithDatabaseOpener overrides the database opener dependency.
func (application *ServerApplication) WithDatabaseOpener(databaseOpener DatabaseOpener) *ServerApplication {
	application.databaseOpener = databaseOpener
	return application
}

// Command builds the Cobra command for the server.
func (application *ServerApplication) Command() (*cobra.Command, error) {
	rootCommand := &cobra.Command{
		Use:   commandUseName,
		Short: commandShortDescription,
		Long:  commandLongDescription,
		RunE:  application.runCommand,
	}

	if configurationErr := application.configureCommand(rootCommand); configurationErr != nil {
		return nil, configurationErr
	}

	return rootCommand, nil
}

func (application *ServerApplication) configureCommand(command *cobra.Command) error {
	application.configurationLoader.AutomaticEnv()

	commandFlags := command.Flags()
	for _, setting := range stringSettings {
		application.configurationLoader.SetDefault(setting.environmentKey, setting.defaultValue)
		commandFlags.String(setting.flagName, setting.defaultValue, setting.usage)

		if bindErr := application.bindFlag(commandFlags, setting.environmentKey, setting.flagName); bindErr != nil {
			return bindErr
		}

		if environmentErr := application.applyEnvironmentConfiguration(commandFlags, setting.environmentKey, setting.flagName); environmentErr != nil {
			return environmentErr
		}
	}

	application.configurationLoader.SetDefault(environmentKeySMTPPort, defaultSMTPPort)
	commandFlags.Int(flagNameSMTPPort, defaultSMTPPort, "SMTP relay port")
	if bindErr := application.bindFlag(commandFlags, environmentKeySMTPPort, flagNameSMTPPort); bindErr != nil {
		return bindErr
	}
	if environmentErr := application.applyEnvironmentConfiguration(commandFlags, environmentKeySMTPPort, flagNameSMTPPort); environmentErr != nil {
		return environmentErr
	}

	return nil
}

func (application *ServerApplication) bindFlag(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	flag := flagSet.Lookup(flagName)
	if flag == nil {
		return fmt.Errorf(flagNotDefinedMessage, flagName)
	}

	if bindErr := application.configurationLoader.BindPFlag(environmentKey, flag); bindErr != nil {
		return bindErr
	}

	return nil
}

func (application *ServerApplication) applyEnvironmentConfiguration(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	environmentValue, environmentFound := os.LookupEnv(environmentKey)
	if !environmentFound {
		return nil
	}

	if setErr := flagSet.Set(flagName, environmentValue); setErr != nil {
		return fmt.Errorf("%s: %w", environmentConfigurationError, setErr)
	}

	return nil
}

func (application *ServerApplication) loadConfiguration() ServerConfig {
	return ServerConfig{
		ApplicationAddress:     application.configurationLoader.GetString(environmentKeyApplicationAddress),
		DatabaseDriver:         strings.TrimSpace(application.configurationLoader.GetString(environmentKeyDatabaseDriver)),
		DatabaseDataSourceName: strings.TrimSpace(application.configurationLoader.GetString(environmentKeyDatabaseDataSource)),
		AdminBearerToken:       strings.TrimSpace(application.configurationLoader.GetString(environmentKeyAdminBearerToken)),
		SMTPHost:               strings.TrimSpace(application.configurationLoader.GetString(environmentKeySMTPHost)),
		SMTPPort:               application.configurationLoader.GetInt(environmentKeySMTPPort),
		SMTPUsername:           application.configurationLoader.GetString(environmentKeySMTPUsername),
		SMTPPassword:           application.configurationLoader.GetString(environmentKeySMTPPassword),
		EmailFromAddress:       strings.TrimSpace(application.configurationLoader.GetString(environmentKeyEmailFrom)),
		AdminEmailAddress:      strings.TrimSpace(application.configurationLoader.GetString(environmentKeyAdminEmail)),
		StaticDirectory:        strings.TrimSpace(application.configurationLoader.GetString(environmentKeyStaticDirectory)),
	}
}

func (application *ServerApplication) runCommand(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return fmt.Errorf("%s: %s", unexpectedArgumentsMessage, strings.Join(arguments, " "))
	}

	serverConfig := application.loadConfiguration()
	if validationErr := ensureRequiredConfiguration(serverConfig); validationErr != nil {
		return validationErr
	}

	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return fmt.Errorf("%s: %w", loggerCreationErrorMessage, loggerErr)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if prepareErr := prepareSQLiteDirectory(serverConfig); prepareErr != nil {
		logger.Fatal(loggerContextOpenDatabase, zap.Error(prepareErr))
	}

	database, databaseErr := application.databaseOpener(storage.Config{
		DriverName:     serverConfig.DatabaseDriver,
		DataSourceName: serverConfig.DatabaseDataSourceName,
	})
	if databaseErr != nil {
		logger.Fatal(loggerContextOpenDatabase, zap.Error(databaseErr))
	}

	if migrateErr := storage.AutoMigrate(database); migrateErr != nil {
		logger.Fatal(loggerContextAutoMigrate, zap.Error(migrateErr))
	}

	store := storage.NewStore(database)

	dispatcher, dispatcherErr := buildDispatcher(serverConfig, logger)
	if dispatcherErr != nil {
		logger.Fatal(loggerContextMailer, zap.Error(dispatcherErr))
	}

	submissionService, serviceErr := service.NewSubmissionService(store, dispatcher, logger)
	if serviceErr != nil {
		logger.Fatal(loggerContextServices, zap.Error(serviceErr))
	}

	if serverConfig.AdminBearerToken == "" {
		logger.Info(logEventAdminDisabled)
	}

	publicHandlers := httpapi.NewPublicHandlers(submissionService, logger)
	adminHandlers := httpapi.NewAdminHandlers(store, logger)

	rateCounterJanitor := task.NewScheduler(rateCounterPruneInterval, func(context.Context) {
		publicHandlers.PruneRateCounters()
	})
	rateCounterJanitor.Start(command.Context())
	defer rateCounterJanitor.Stop()

	router := buildRouter(logger, publicHandlers, adminHandlers, serverConfig.AdminBearerToken, serverConfig.StaticDirectory)

	httpServer := &http.Server{
		Addr:              serverConfig.ApplicationAddress,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeoutSeconds * time.Second,
	}

	logger.Info(logEventListening, zap.String(logFieldAddress, serverConfig.ApplicationAddress))
	if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		logger.Fatal(loggerContextServer, zap.Error(serveErr))
	}

	return nil
}

// buildDispatcher wires the SMTP transport when email is configured and
// returns nil otherwise, leaving the submission pipeline to skip
// notifications.
func buildDispatcher(configuration ServerConfig, logger *zap.Logger) (service.NotificationDispatcher, error) {
	if configuration.SMTPHost == "" || configuration.EmailFromAddress == "" || configuration.AdminEmailAddress == "" {
		logger.Info(logEventEmailDisabled)
		return nil, nil
	}

	smtpSender, senderErr := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     configuration.SMTPHost,
		Port:     configuration.SMTPPort,
		Username: configuration.SMTPUsername,
		Password: configuration.SMTPPassword,
		From:     configuration.EmailFromAddress,
	})
	if senderErr != nil {
		return nil, senderErr
	}

	return mailer.NewDispatcher(smtpSender, logger, configuration.AdminEmailAddress)
}

// prepareSQLiteDirectory creates the parent directory of a file-backed SQLite
// database so a fresh deployment can open it.
func prepareSQLiteDirectory(configuration ServerConfig) error {
	if configuration.DatabaseDriver != storage.DriverNameSQLite {
		return nil
	}
	dataSourceName := configuration.DatabaseDataSourceName
	if strings.HasPrefix(dataSourceName, "file:") || strings.HasPrefix(dataSourceName, ":memory:") {
		return nil
	}
	parentDirectory := filepath.Dir(dataSourceName)
	if parentDirectory == "." {
		return nil
	}
	return os.MkdirAll(parentDirectory, 0o755)
}

func ensureRequiredConfiguration(configuration ServerConfig) error {
	var missingParameters []string

	if configuration.DatabaseDriver == "" {
		missingParameters = append(missingParameters, flagNameDatabaseDriver)
	}

	if configuration.DatabaseDataSourceName == "" {
		missingParameters = append(missingParameters, flagNameDatabaseDataSourceName)
	}

	if len(missingParameters) == 0 {
		return nil
	}

	return fmt.Errorf("%s: %s", missingConfigurationMessage, strings.Join(missingParameters, ", "))
}

func main() {
	_ = godotenv.Load()

	application := NewServerApplication()
	rootCommand, commandErr := application.Command()
	if commandErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", commandInitializationFailure, commandErr)
		os.Exit(1)
	}

	if executeErr := rootCommand.Execute(); executeErr != nil {
		os.Exit(1)
	}
}
