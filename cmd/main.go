package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"tradingjournal/cmd/admin"
	"tradingjournal/cmd/mt5worker"
	"tradingjournal/cmd/seed"
	"tradingjournal/src/database"
	"tradingjournal/src/server"
)

var Version string

func setupLogger() {
	level, err := logrus.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if err != nil {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("could not read .env")
	}
	setupLogger()

	app := cli.NewApp()
	app.Name = "Trading Journal CMD"
	app.Usage = "The trading journal command line interface"
	app.Version = Version

	app.Commands = []cli.Command{
		serveCMD,
		mt5SyncCMD,
		createAdminCMD,
		seedTradesCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	serveCMD = cli.Command{
		Name:        "serve",
		Usage:       "run the API server",
		Action:      serveAction,
		Description: `Run the REST API, optionally with the MT5 sync engine in-process`,
	}
	mt5SyncCMD = cli.Command{
		Name:   "mt5sync",
		Usage:  "run the MT5 sync worker",
		Action: mt5SyncAction,
		Flags: []cli.Flag{
			cli.BoolFlag{Name: "once", Usage: "run a single sync cycle and exit"},
		},
		Description: `Poll due MT5 accounts and import their trades`,
	}
	createAdminCMD = cli.Command{
		Name:   "create-admin",
		Usage:  "create or promote an admin account",
		Action: createAdminAction,
		Flags: []cli.Flag{
			cli.StringFlag{Name: "email", Usage: "admin email (ADMIN_EMAIL)"},
			cli.StringFlag{Name: "password", Usage: "admin password (ADMIN_PASSWORD)"},
			cli.StringFlag{Name: "name", Usage: "full name (ADMIN_FULL_NAME)"},
		},
	}
	seedTradesCMD = cli.Command{
		Name:   "seed-trades",
		Usage:  "insert demo trades for a user",
		Action: seedTradesAction,
		Flags: []cli.Flag{
			cli.StringFlag{Name: "email", Usage: "user email (SEED_USER_EMAIL)"},
			cli.IntFlag{Name: "count", Usage: "number of trades (SEED_TRADES_COUNT)"},
		},
	}
)

func serveAction(_ *cli.Context) error {
	logrus.Info("Starting API server CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to database")
		return err
	}
	server.StartServer(server.GetConfig())
	return nil
}

func mt5SyncAction(c *cli.Context) error {
	logrus.WithField("cmd", "mt5sync").Info("Starting MT5 sync CMD")

	worker := &mt5worker.MT5Worker{Once: c.Bool("once")}
	if err := worker.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}
	return nil
}

func createAdminAction(c *cli.Context) error {
	cmd := &admin.CreateAdmin{
		Email:    c.String("email"),
		Password: c.String("password"),
		FullName: c.String("name"),
	}
	if err := cmd.Start(); err != nil {
		logrus.WithError(err).Error("create-admin failed")
		return err
	}
	return nil
}

func seedTradesAction(c *cli.Context) error {
	cmd := &seed.SeedTrades{Email: c.String("email"), Count: c.Int("count")}
	if err := cmd.Start(); err != nil {
		logrus.WithError(err).Error("seed-trades failed")
		return err
	}
	return nil
}
