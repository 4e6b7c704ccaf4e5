package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-liveness/mode"
	"github.com/khaledhikmat/vs-liveness/service/config"
	"github.com/khaledhikmat/vs-liveness/service/data"
	"github.com/khaledhikmat/vs-liveness/service/display"
	"github.com/khaledhikmat/vs-liveness/service/lgr"
	"github.com/khaledhikmat/vs-liveness/service/liveness"
	"github.com/khaledhikmat/vs-liveness/service/storage"
	"github.com/khaledhikmat/vs-liveness/service/stream"
	"github.com/khaledhikmat/vs-liveness/service/tracer"
)

const (
	serviceName = "vs-liveness"

	// WARNING: this has to be bigger that the mode processor shutdown time
	waitOnShutdown = 8 * time.Second
)

var svcs mode.ServicesFactory

var rootCmd = &cobra.Command{
	Use:           "vs-liveness",
	Short:         "Face liveness session client",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		cfgSvc, err := config.NewEnv()
		if err != nil {
			return err
		}

		svcs = mode.ServicesFactory{
			CfgSvc:      cfgSvc,
			DataSvc:     data.NewFilesDB(cfgSvc),
			DisplaySvc:  display.NewTerminal(cfgSvc, os.Stdout),
			LivenessSvc: liveness.NewHTTP(cfgSvc, &http.Client{}),
			StreamSvc:   stream.NewWebsocket(cfgSvc),
			StorageSvc:  storage.NewLocal(cfgSvc),
		}
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if svcs.StreamSvc != nil {
			svcs.StreamSvc.Close()
		}
	},
}

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Watch the camera and run liveness sessions (type start, stop or reset)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runMode(cmd.Context(), func(canxCtx context.Context) error {
			return mode.Live(canxCtx, svcs, os.Stdin)
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <session-id>",
	Short: "Show the server status and local history of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mode.Status(cmd.Context(), svcs, args[0])
	},
}

var releaseSession bool

var resultsCmd = &cobra.Command{
	Use:   "results <session-id>",
	Short: "Download and save the results artifact of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mode.Results(cmd.Context(), svcs, args[0], releaseSession)
	},
}

func init() {
	resultsCmd.Flags().BoolVar(&releaseSession, "release", false, "stop the session on the server after saving, keeping its data")
	rootCmd.AddCommand(liveCmd, statusCmd, resultsCmd)
}

func main() {
	// Load env vars if we are in DEV mode
	if os.Getenv("RUN_TIME_ENV") == "dev" || os.Getenv("RUN_TIME_ENV") == "" {
		if err := godotenv.Load(); err != nil {
			lgr.Logger.Debug("no .env file loaded", slog.Any("error", xerrors.New(err.Error())))
		}
	}

	lgr.Configure(lgr.OptionsFromEnv())

	// Hook up a signal handler to cancel the context
	canxCtx, canxFn := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer canxFn()

	shutdownTracer, err := tracer.Setup(canxCtx, serviceName)
	if err != nil {
		lgr.Logger.Error("tracer setup failed", slog.Any("error", err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			lgr.Logger.Error("tracer shutdown failed", slog.Any("error", err))
		}
	}()

	if err := rootCmd.ExecuteContext(canxCtx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		canxFn()
		os.Exit(1)
	}
}

// runMode runs a long lived mode processor until it returns or the process
// is signalled. After a signal it waits at most waitOnShutdown for the
// processor to drain.
func runMode(canxCtx context.Context, proc func(context.Context) error) error {
	modeCtx, modeCancel := context.WithCancel(canxCtx)
	defer modeCancel()

	modeProcResult := make(chan error, 1)
	go func() {
		modeProcResult <- proc(modeCtx)
	}()

	select {
	case err := <-modeProcResult:
		return err
	case <-canxCtx.Done():
		lgr.Logger.Info(
			"received kill signal",
		)
	}

	modeCancel()

	timer := time.NewTimer(waitOnShutdown)
	defer timer.Stop()

	select {
	case err := <-modeProcResult:
		return err
	case <-timer.C:
		lgr.Logger.Info(
			"shutdown waiting period expired. Exiting now",
			slog.Duration("period", waitOnShutdown),
		)
		return nil
	}
}
