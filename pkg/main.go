package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	pkg "git.solsynth.dev/hypernet/mailroute/pkg/internal"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/database"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/grpc"
	server "git.solsynth.dev/hypernet/mailroute/pkg/internal/http"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/http/api"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/ledger"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/mailbox"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/models"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/services"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	// Load .env if there is one
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("An error occurred when loading .env file...")
	}

	// Configure settings
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")
	viper.SetEnvPrefix("MAILROUTE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}

	if viper.GetBool("debug.enabled") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Connect to database
	if usesDatabase() {
		if err := database.NewSource(); err != nil {
			log.Fatal().Err(err).Msg("An error occurred when connect to database.")
		} else if err := database.RunMigration(database.C); err != nil {
			log.Fatal().Err(err).Msg("An error occurred when running database auto migration.")
		}
	}

	// Assemble the core
	backend, err := openMailboxBackend()
	if err != nil {
		log.Fatal().Err(err).Msg("An error occurred when opening mailbox storage.")
	}
	store := mailbox.NewStore(backend)

	notifier := services.NewLocalNotifier()
	store.OnChange(services.StoreHook(notifier, "server"))

	routes := openLedger()
	directory, err := openDirectory()
	if err != nil {
		log.Fatal().Err(err).Msg("An error occurred when loading directory.")
	}

	router := services.NewRouter(store, routes, services.NewMembershipResolver(directory))
	clips := services.NewClipAdapter(router, directory)

	// Server
	app := server.NewServer(api.NewServer(router, clips, directory, notifier))
	go app.Listen()

	grpcServer := grpc.NewGrpc(store)
	go func() {
		if err := grpcServer.Listen(); err != nil {
			log.Fatal().Err(err).Msg("An error occurred when starting grpc server...")
		}
	}()

	// Configure timed tasks
	cleaner := services.NewLedgerCleaner(routes, viper.GetDuration("ledger.retention"))
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	quartz.AddFunc("@every 60m", cleaner.DoAutoLedgerCleanup)
	quartz.Start()

	// Messages
	log.Info().Msgf("Mailroute v%s is started...", pkg.AppVersion)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msgf("Mailroute v%s is quitting...", pkg.AppVersion)

	quartz.Stop()
	grpcServer.Stop()
	if err := app.Shutdown(); err != nil {
		log.Warn().Err(err).Msg("An error occurred when shutting down server...")
	}
	if err := store.Close(); err != nil {
		log.Warn().Err(err).Msg("An error occurred when closing mailbox storage...")
	}
}

func usesDatabase() bool {
	return lo.Contains([]string{
		viper.GetString("mailbox.backend"),
		viper.GetString("ledger.backend"),
		viper.GetString("directory.backend"),
	}, "database")
}

func openMailboxBackend() (mailbox.Backend, error) {
	switch viper.GetString("mailbox.backend") {
	case "", "memory":
		return mailbox.NewMemoryBackend(viper.GetInt("mailbox.quota")), nil
	case "pebble":
		return mailbox.OpenPebbleBackend(viper.GetString("mailbox.path"))
	case "database":
		return mailbox.NewDatabaseBackend(database.C), nil
	default:
		return nil, fmt.Errorf("unknown mailbox backend %q", viper.GetString("mailbox.backend"))
	}
}

func openLedger() ledger.Ledger {
	if viper.GetString("ledger.backend") == "database" {
		return ledger.NewDatabaseLedger(database.C)
	}
	return ledger.NewMemoryLedger()
}

func openDirectory() (services.Directory, error) {
	if viper.GetString("directory.backend") == "database" {
		return services.NewDatabaseDirectory(database.C), nil
	}

	var accounts []accountConfig
	var groups []groupConfig
	if err := viper.UnmarshalKey("directory.accounts", &accounts); err != nil {
		return nil, err
	} else if err := viper.UnmarshalKey("directory.groups", &groups); err != nil {
		return nil, err
	}

	return services.NewStaticDirectory(
		lo.Map(accounts, func(item accountConfig, _ int) models.Account {
			return models.Account{
				BaseModel: models.BaseModel{ID: item.ID},
				Name:      item.Name,
				Nick:      item.Nick,
				Avatar:    item.Avatar,
			}
		}),
		lo.Map(groups, func(item groupConfig, _ int) models.Group {
			return models.Group{
				BaseModel: models.BaseModel{ID: item.ID},
				Name:      item.Name,
				MemberIDs: item.Members,
			}
		}),
	), nil
}

type accountConfig struct {
	ID     uint   `mapstructure:"id"`
	Name   string `mapstructure:"name"`
	Nick   string `mapstructure:"nick"`
	Avatar string `mapstructure:"avatar"`
}

type groupConfig struct {
	ID      uint   `mapstructure:"id"`
	Name    string `mapstructure:"name"`
	Members []uint `mapstructure:"members"`
}
