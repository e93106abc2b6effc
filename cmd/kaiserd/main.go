package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
	"github.com/vctt94/bisonbotkit/logging"

	"github.com/haldrik/kaiserd/pkg/kaiser"
	"github.com/haldrik/kaiserd/pkg/server"
)

func main() {
	var (
		listenAddr  string
		dbPath      string
		envFile     string
		betTimeout  time.Duration
		playTimeout time.Duration
		summary     time.Duration
		grace       time.Duration
		missedLimit int
		targetScore int
		botTier     int
		debugLevel  string
	)
	flag.StringVar(&listenAddr, "listen", "0.0.0.0:7595", "Address the transport layer should serve on")
	flag.StringVar(&dbPath, "db", "", "Path to SQLite database file (created if missing)")
	flag.StringVar(&envFile, "env", "", "Optional env file with defaults")
	flag.DurationVar(&betTimeout, "bettimeout", 30*time.Second, "Deadline for a bet decision")
	flag.DurationVar(&playTimeout, "playtimeout", 30*time.Second, "Deadline for a card decision")
	flag.DurationVar(&summary, "summarytimeout", 15*time.Second, "Auto-advance delay out of the round summary")
	flag.DurationVar(&grace, "grace", 60*time.Second, "Reconnect grace window before a bot takes a disconnected seat")
	flag.IntVar(&missedLimit, "missedlimit", 3, "Missed deadlines before a connected seat is handed to a bot")
	flag.IntVar(&targetScore, "target", 52, "Score a team must reach to win")
	flag.IntVar(&botTier, "bottier", 1, "Bot difficulty: 0 basic, 1 greedy, 2 inference")
	flag.StringVar(&debugLevel, "debuglevel", "info", "Logging level: trace, debug, info, warn, error")
	flag.Parse()

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load env file: %v\n", err)
			os.Exit(1)
		}
	}
	if dbPath == "" {
		dbPath = os.Getenv("KAISERD_DB")
	}
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "kaiserd.sqlite")
	}
	if env := os.Getenv("KAISERD_TARGET"); env != "" {
		if v, err := strconv.Atoi(env); err == nil {
			targetScore = v
		}
	}

	store, err := server.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	logBackend, err := logging.NewLogBackend(logging.LogConfig{DebugLevel: debugLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
		os.Exit(1)
	}
	log := logBackend.Logger("MAIN")

	srv := server.NewServer(server.Config{
		DB:             store,
		LogBackend:     logBackend,
		GracePeriod:    grace,
		BetTimeout:     betTimeout,
		PlayTimeout:    playTimeout,
		SummaryTimeout: summary,
		MissedLimit:    missedLimit,
		TargetScore:    targetScore,
		BotTier:        kaiser.Difficulty(botTier),
	})

	log.Infof("kaiserd running, transport address %s, db at %s", listenAddr, dbPath)

	// The transport layer attaches through server.SetBroadcaster and the
	// exported registry methods. Block until interrupted.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Infof("shutting down")
	srv.Stop()
}
