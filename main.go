package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/techmengg/wnreader/internal/config"
	"github.com/techmengg/wnreader/internal/log"
	"github.com/techmengg/wnreader/internal/model"
	"github.com/techmengg/wnreader/internal/server"
	"github.com/techmengg/wnreader/internal/storage"
	"github.com/techmengg/wnreader/internal/store"
	"github.com/techmengg/wnreader/internal/store/db"
	"github.com/techmengg/wnreader/internal/version"
	"github.com/techmengg/wnreader/internal/worker"
)

const (
	greetingBanner = `
██     ██ ███    ██ ██████  ███████  █████  ██████  ███████ ██████
██     ██ ████   ██ ██   ██ ██      ██   ██ ██   ██ ██      ██   ██
██  █  ██ ██ ██  ██ ██████  █████   ███████ ██   ██ █████   ██████
██ ███ ██ ██  ██ ██ ██   ██ ██      ██   ██ ██   ██ ██      ██   ██
 ███ ███  ██   ████ ██   ██ ███████ ██   ██ ██████  ███████ ██   ██
`
)

var (
	configFile string

	rootCmd = &cobra.Command{
		Use:   "wnreader",
		Short: "WNReader is a web novel reading server",
		Run: func(_ *cobra.Command, _ []string) {
			run()
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(version.GetCurrentVersion())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to the config file")
	rootCmd.AddCommand(versionCmd)
}

func run() {
	if _, err := config.GetConfig(); err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}
	if configFile != "" {
		if _, err := config.ParseFile(configFile); err != nil {
			fmt.Println("Error parsing config file:", err)
			os.Exit(1)
		}
	}

	log.Logger = log.NewLogger()
	defer log.Logger.Sync()

	fmt.Print(greetingBanner, "\n")
	log.Info("Starting wnreader",
		zap.String("version", version.GetCurrentVersion()),
		zap.String("addr", fmt.Sprintf("%s:%d", config.Opts.Host, config.Opts.Port)),
		zap.String("data", config.Opts.Data))

	d, err := db.NewDB()
	if err != nil {
		log.Fatal("Error connecting to database", zap.Error(err))
	}
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Migrate(ctx); err != nil {
		log.Fatal("Error migrating database", zap.Error(err))
	}

	st := store.NewStore(d)
	if err := st.Ping(); err != nil {
		log.Fatal("Error pinging database", zap.Error(err))
	}

	sg := storage.NewLocalStorage()
	pool := worker.NewImportPool(st, sg, config.Opts.WorkerPoolSize)
	requeueUnfinishedJobs(st, pool)

	srv := server.StartServer(st, sg, pool)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("Shutting down", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	pool.Shutdown()
	log.Info("Server stopped")
}

// requeueUnfinishedJobs pushes imports a previous run accepted but
// never finished back onto the pool. A job that already produced its
// book fails the duplicate check and is marked accordingly.
func requeueUnfinishedJobs(st *store.Store, pool *worker.ImportPool) {
	for _, status := range []string{model.JobStatusPending, model.JobStatusRunning} {
		jobs, err := st.ListJobs(&model.FindImportJob{Status: &status})
		if err != nil {
			log.Warn("Failed to list unfinished jobs", zap.String("status", status), zap.Error(err))
			continue
		}
		for _, job := range jobs {
			log.Info("Requeueing unfinished import",
				zap.Int("job_id", job.ID),
				zap.String("file_name", job.FileName))
			go pool.Push(*job)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
