// Package cli wires the service-record tools into a cobra command tree.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tartampluch/go-svcrecords/internal/config"
	"github.com/tartampluch/go-svcrecords/internal/engine"
	"github.com/tartampluch/go-svcrecords/internal/locale"
	"github.com/tartampluch/go-svcrecords/internal/store"
)

// App holds the state shared by every command of one invocation.
type App struct {
	out    io.Writer
	errOut io.Writer

	configPath string
	debug      bool
	lang       string

	settings config.Settings
	tr       *locale.Translator

	logFile io.Closer
	now     func() time.Time
}

// NewApp creates an App printing results to out and diagnostics to errOut.
func NewApp(out, errOut io.Writer) *App {
	return &App{out: out, errOut: errOut, now: time.Now}
}

// Close releases the log file opened during the run.
func (a *App) Close() error {
	if a.logFile == nil {
		return nil
	}
	err := a.logFile.Close()
	a.logFile = nil
	return err
}

// Command builds the command tree.
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:   config.BinaryName,
		Short: "Customer service records with ROC dates and water-filter follow-ups",
		Long: `Query, add and follow up customer service records kept in a remote sheet.

Dates are shown in the ROC calendar (民國), newest first. The current water
purifier of each customer is marked as not replaced; older ones as replaced.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, config.FlagConfig, "", config.FlagDescConfig)
	pf.BoolVar(&a.debug, config.FlagDebug, false, config.FlagDescDebug)
	pf.StringVar(&a.lang, config.FlagLang, "", config.FlagDescLang)

	root.AddCommand(
		a.queryCommand(),
		a.addCommand(),
		a.replaceCommand(),
		a.rocCommand(),
		a.followupsCommand(),
		a.vcardCommand(),
		a.serveCommand(),
		a.endpointCommand(),
		a.versionCommand(),
	)
	return root
}

// setup runs before every command: logging, settings, then translations.
func (a *App) setup(cmd *cobra.Command, _ []string) error {
	_ = a.Close()
	a.logFile = a.setupLogging()
	logStartupInfo(cmd.CommandPath())

	s, err := config.LoadSettings(a.configPath)
	if err != nil {
		return err
	}
	a.settings = s

	lang := s.Language
	if a.lang != "" {
		lang = a.lang
	}
	a.tr = locale.New(lang)
	return nil
}

// setupLogging configures the default slog logger. Standard output carries
// command results, so log lines go to the log file and, with --debug, stderr.
func (a *App) setupLogging() io.Closer {
	var writers []io.Writer
	var logFile *os.File

	if a.debug {
		writers = append(writers, a.errOut)
	}

	if logPath, err := logFilePath(); err == nil {
		// O_TRUNC resets logs on every run to prevent indefinite growth.
		f, err := os.OpenFile(logPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
		if err == nil {
			writers = append(writers, f)
			logFile = f
		} else {
			_, _ = fmt.Fprintf(a.errOut, config.MsgLogWarning, config.ErrLogFile, logPath, err)
		}
	}

	level := slog.LevelInfo
	if a.debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: a.debug,
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), opts)))

	if logFile == nil {
		return nil
	}
	return logFile
}

// logFilePath returns the log location in the user's cache directory.
func logFilePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCacheDir, err)
	}
	appDir := filepath.Join(cacheDir, config.AppID)
	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}
	return filepath.Join(appDir, config.LogFileName), nil
}

func logStartupInfo(command string) {
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompCLI,
		config.LogKeyOp, command,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// source opens the configured record source.
func (a *App) source() (engine.RecordSource, error) {
	return engine.NewSource(a.settings.SourceMode, a.settings.EndpointURL, a.settings.LocalPath)
}

// openStore opens the snapshot cache at the configured or default location.
func (a *App) openStore() (*store.Store, error) {
	path := a.settings.DBPath
	if path == "" {
		p, err := config.DefaultDBPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return store.Open(path)
}

func (a *App) clock() engine.Clock {
	return clockFunc(a.now)
}

type clockFunc func() time.Time

func (f clockFunc) Now() time.Time { return f() }

// requirePhone trims phone and rejects an empty value.
func requirePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", fmt.Errorf("%w: %s", engine.ErrValidation, config.ErrPhoneReq)
	}
	return phone, nil
}

func (a *App) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func (a *App) println(args ...any) {
	_, _ = fmt.Fprintln(a.out, args...)
}
