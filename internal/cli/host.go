package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sitebeep/internal/audio"
	"sitebeep/internal/config"
	"sitebeep/internal/control"
	"sitebeep/internal/core/beeper"
	"sitebeep/internal/core/tracker"
	"sitebeep/internal/logging"
	"sitebeep/internal/messaging"
	"sitebeep/internal/platform"
	"sitebeep/internal/storage"
)

// Options are the flags shared by every command.
type Options struct {
	ConfigPath string
	LogDir     string
	LogLevel   string
	Tray       bool
}

// HostCmd runs the native messaging host. The browser starts it with the
// caller's origin as an argument, so extra arguments are accepted.
func HostCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "host",
		Short: "Run the native messaging host (default)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunHost(cmd.Context(), opts, os.Stdin, os.Stdout)
		},
	}
}

// host is the assembled runtime.
type host struct {
	cfg        config.Config
	log        zerolog.Logger
	store      storage.Store
	conn       *messaging.Conn
	beeper     *beeper.Beeper
	tracker    *tracker.Tracker
	controller *control.Controller
	router     *messaging.Router
}

// RunHost serves the browser over in/out until the browser closes the port.
func RunHost(ctx context.Context, opts *Options, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, closeLog, err := openLog(opts, cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	guard, err := platform.AcquireSingleInstance(config.AppName)
	if err != nil {
		logger.Warn().Err(err).Msg("single instance")
		return err
	}
	defer func() {
		_ = guard.Release()
	}()

	h, err := assemble(cfg, logger, in, out)
	if err != nil {
		logger.Error().Err(err).Msg("host startup failed")
		return err
	}
	defer h.close()

	logger.Info().
		Str("sink", string(cfg.Audio.Sink)).
		Str("store", string(cfg.Store.Backend)).
		Str("state_dir", cfg.StateDir()).
		Msg("host started")

	events := h.beeper.Subscribe(32)
	go h.controller.Publish(ctx, events, h.conn)

	if opts.Tray {
		return runTray(ctx, h)
	}
	return h.serve(ctx)
}

func assemble(cfg config.Config, logger zerolog.Logger, in io.Reader, out io.Writer) (*host, error) {
	store, err := storage.Open(cfg.Store.Backend, cfg.StateDir())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	conn := messaging.NewConn(in, out)
	sink, err := audio.New(cfg.Audio.Sink, conn, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	b, err := beeper.Init(store, sink, beeper.Config{
		Interval:    cfg.Interval(),
		Cue:         cfg.Cue(),
		LockChecker: platform.NewLockProvider(),
		Logger:      logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	t := tracker.New(b, store, tracker.Config{
		SettleDelay: cfg.Beeper.SettleDelay.Duration,
		Logger:      logger,
	})
	controller := control.New(b, t, store, nil, logger)
	router := messaging.NewRouter(logger)
	controller.Register(router)

	return &host{
		cfg:        cfg,
		log:        logger,
		store:      store,
		conn:       conn,
		beeper:     b,
		tracker:    t,
		controller: controller,
		router:     router,
	}, nil
}

func (h *host) serve(ctx context.Context) error {
	err := h.router.Serve(ctx, h.conn)
	if errors.Is(err, context.Canceled) {
		h.log.Info().Msg("host interrupted")
		return nil
	}
	return err
}

func (h *host) close() {
	h.beeper.Shutdown()
	if err := h.store.Close(); err != nil {
		h.log.Warn().Err(err).Msg("close store")
	}
	h.log.Info().Msg("host stopped")
}

func loadConfig(opts *Options) (config.Config, error) {
	if opts.ConfigPath != "" {
		return config.LoadFrom(opts.ConfigPath)
	}
	return config.Load()
}

func openLog(opts *Options, cfg config.Config) (zerolog.Logger, func(), error) {
	levelName := cfg.Log.Level
	if opts.LogLevel != "" {
		levelName = opts.LogLevel
	}
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("log level: %w", err)
	}

	flagDir := opts.LogDir
	if flagDir == "" {
		flagDir = cfg.Log.Dir
	}
	dir, err := logging.ResolveDir(flagDir)
	if err != nil {
		return logging.Stderr(level), func() {}, nil
	}
	logger, closer, err := logging.Open(dir, level)
	if err != nil {
		fallback := logging.Stderr(level)
		fallback.Warn().Err(err).Msg("logging to stderr")
		return fallback, func() {}, nil
	}
	return logger, func() { _ = closer.Close() }, nil
}
