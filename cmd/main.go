package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	settlement "settlement_back"
	"settlement_back/pkg/chainclient"
	"settlement_back/pkg/handler"
	"settlement_back/pkg/repository"
	"settlement_back/pkg/service"
	"settlement_back/pkg/utils"
	"settlement_back/pkg/worker"
)

func main() {
	logrus.SetFormatter(new(logrus.JSONFormatter))

	if err := godotenv.Load(); err != nil {
		logrus.Infof("no .env file loaded: %s", err)
	}

	if err := initConfig(); err != nil {
		logrus.Fatalf("failed to read config: %s", err.Error())
	}

	minThreshold := viper.GetInt64("wallet.min_threshold")
	maxThreshold := viper.GetInt64("wallet.max_threshold")
	if minThreshold > maxThreshold {
		logrus.Fatalf("wallet.min_threshold (%d) exceeds wallet.max_threshold (%d)", minThreshold, maxThreshold)
	}

	db, err := repository.NewPostgresDB(repository.Config{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   viper.GetString("db.dbname"),
		SSLMode:  viper.GetString("db.sslmode"),
	})
	if err != nil {
		logrus.Fatalf("failed to connect to database: %s", err.Error())
	}
	logrus.Info("database connected")

	chain, err := chainclient.New(
		viper.GetString("chain.base_url"),
		os.Getenv("CHAIN_API_KEY"),
		os.Getenv("HOT_WALLET_KEY"),
	)
	if err != nil {
		logrus.Fatalf("failed to init chain client: %s", err.Error())
	}

	reserveAddress := viper.GetString("chain.reserve_address")
	if !chainclient.ValidAddress(reserveAddress) {
		logrus.Fatalf("chain.reserve_address %q is not a valid network address", reserveAddress)
	}

	mailer := utils.NewMailer(
		viper.GetString("alerts.from"),
		viper.GetString("alerts.to"),
	)

	repos := repository.NewRepository(db)
	services := service.NewService(repos, chain, mailer, service.Config{
		HotAddress:      chain.HotAddress(),
		ReserveAddress:  reserveAddress,
		MinThreshold:    minThreshold,
		MaxThreshold:    maxThreshold,
		Currency:        viper.GetString("rates.currency"),
		RateProviderURL: viper.GetString("rates.provider_url"),
		RateProviderKey: os.Getenv("RATE_PROVIDER_KEY"),
	})

	jobs := worker.New(
		services.Withdrawals,
		services.Rebalance,
		viper.GetDuration("worker.retry_delay"),
		viper.GetDuration("worker.rebalance_interval"),
	)
	jobs.Start(viper.GetInt("worker.concurrency"))

	handlers := handler.NewHandler(services, jobs)

	srv := new(settlement.Server)
	go func() {
		if err := srv.Run(viper.GetString("port"), handlers.InitRoute()); err != nil {
			logrus.Errorf("http server stopped: %s", err)
		}
	}()
	logrus.Info("settlement engine started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Info("shutting down")
	jobs.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("server shutdown failed: %s", err)
	}
}

func initConfig() error {
	viper.AddConfigPath("configs")
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}
