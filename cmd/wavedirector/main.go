package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cluckworks/wavedirector/internal/config"
	"github.com/cluckworks/wavedirector/internal/logging"
	intOtel "github.com/cluckworks/wavedirector/internal/otel"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "wavedirector"
)

var (
	// ConfigDir holds wavedirector.cfg.json.
	ConfigDir string

	LogFilePath string
	LogFile     *os.File

	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime time.Time = time.Now()
)

func usage(flags *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Usage: %s [flags] <command> [args]

Commands:
  run                     run the wave director (default)
  cache show [id]         print a campaign wave cache
  cache clear [id]        delete a campaign wave cache
  cache upload [id]       publish a campaign wave cache to the progress server
  progress show           print the stored player progress
  progress reset          restart the campaign from the first wave
  version                 print version information

Flags:
`, AppName)
	flags.PrintDefaults()
}

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	flags.StringVar(&ConfigDir, "config-dir", ".", "directory containing "+config.FileName)
	flags.String("logLevel", "info", "log level (debug, info, warn, error)")
	flags.String("logsDir", "./logs", "directory for log files")
	flags.String("contentPath", "./content/waves.json", "wave content file")
	flags.String("profileId", "local", "player profile id")
	flags.Int64("seed", 0, "random seed, 0 uses the clock")
	flags.String("waves.mode", "campaign", "wave mode (campaign, endless)")
	flags.Int("waves.startIndex", 0, "first endless wave index")
	flags.String("storage.type", "file", "wave cache backend (file, sqlite, postgres, memory)")
	flags.String("economy.balanceSource", "database", "balance source (database, memory, api, none)")
	return flags
}

func main() {
	flags := newFlagSet()
	flags.Usage = func() { usage(flags) }
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	// config.Load registers defaults even when the file is missing
	configErr := config.Load(ConfigDir)
	if err := config.BindFlags(flags); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	args := flags.Args()
	command := "run"
	if len(args) > 0 {
		command = strings.ToLower(args[0])
		args = args[1:]
	}

	if command == "version" {
		fmt.Printf("%s %s (built %s)\n", AppName, CurrentVersion, BuildDate)
		return
	}

	setupLogging(command == "run")
	defer shutdownLogging()

	if configErr != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", configErr)
	} else {
		Logger.Info("Loaded config", "dir", ConfigDir)
	}

	var err error
	switch command {
	case "run":
		err = runDirector()
	case "cache":
		err = cacheCommand(args)
	case "progress":
		err = progressCommand(args)
	default:
		usage(flags)
		err = fmt.Errorf("unknown command %q", command)
	}

	if err != nil {
		Logger.Error("Command failed", "command", command, "error", err)
		fmt.Fprintln(os.Stderr, "error:", err)
		shutdownLogging()
		os.Exit(1)
	}
}

// setupLogging configures slog. The run command logs to a session file;
// the maintenance commands log to stdout.
func setupLogging(toFile bool) {
	SlogManager = logging.NewSlogManager()

	if viper.GetBool("graylog.enabled") {
		if err := SlogManager.UseGraylog(viper.GetString("graylog.address")); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to set up Graylog: %v\n", err)
		}
	}

	if toFile {
		logsDir := viper.GetString("logsDir")
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logs dir: %v\n", err)
		}
		LogFilePath = logging.LogFilePath(logsDir, AppName, viper.GetString("waves.mode"), SessionStartTime)

		if _, err := os.Stat(LogFilePath); err == nil {
			_ = os.Rename(LogFilePath, LogFilePath+".old")
		}

		var err error
		LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create/open log file %s: %v\n", LogFilePath, err)
			LogFile = nil
		}
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled && LogFile != nil {
		var err error
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			Version:      CurrentVersion,
			ProfileID:    viper.GetString("profileId"),
			Mode:         viper.GetString("waves.mode"),
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    LogFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize OTel provider: %v\n", err)
			OTelProvider = nil
		}
	}

	applyLogging()
	if LogFile != nil {
		Logger.Info("Logging to file", "path", LogFilePath)
	}
}

// applyLogging (re)builds the logger, e.g. after a context provider was set.
func applyLogging() {
	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}

	// Setup(nil, ...) writes to stdout
	if LogFile != nil {
		SlogManager.Setup(LogFile, viper.GetString("logLevel"), otelLogProvider)
	} else {
		SlogManager.Setup(nil, viper.GetString("logLevel"), otelLogProvider)
	}
	Logger = SlogManager.Logger()
	slog.SetDefault(Logger)
}

func shutdownLogging() {
	if SlogManager == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = SlogManager.Flush(ctx)
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "OTel shutdown: %v\n", err)
		}
		OTelProvider = nil
	}
	_ = SlogManager.Close()
	if LogFile != nil {
		_ = LogFile.Close()
		LogFile = nil
	}
	SlogManager = nil
}

// dataPath resolves name inside the logs directory.
func dataPath(name string) string {
	return filepath.Join(viper.GetString("logsDir"), name)
}
