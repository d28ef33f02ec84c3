package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"zoomfilter"
)

const version = "0.3.0"

func printVersion() {
	fmt.Printf("zoomd v%s\n", version)
	fmt.Println("Headless zoom filter daemon with smooth scale animation and pointer tracking")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  zoomd [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Runs one zoom filter over a still image or test pattern. Zoom hotkeys")
	fmt.Println("  come from Linux input devices or the IPC socket (see zoom-ctl); state")
	fmt.Println("  changes are pushed to websocket observers (see zoom-watch).")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to YAML config file (optional; defaults apply when omitted)")
	fmt.Println()
	fmt.Println("  -input-device string")
	fmt.Println("        Linux input event device for hotkeys/pointer (overrides input.devices)")
	fmt.Println()
	fmt.Println("  -source-image string")
	fmt.Println("        Image to zoom (PNG/JPEG/BMP/WebP); default is a checkerboard")
	fmt.Println()
	fmt.Println("  -fps int")
	fmt.Printf("        Render rate in frames per second (default %d)\n", defaultRenderFPS)
	fmt.Println()
	fmt.Println("  -scale float")
	fmt.Println("        Initial zoom scale, 1.0 to 5.0 (overrides filter.scale_factor)")
	fmt.Println()
	fmt.Println("  -tracking string")
	fmt.Println("        Tracking mode: disabled|realtime|on_zoom_change")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket path for IPC (default %q)\n", defaultIPCSocket)
	fmt.Println()
	fmt.Println("  -http-addr string")
	fmt.Printf("        HTTP listen address for /ws/state and /frame.png (default %q; empty disables)\n", defaultHTTPAddr)
	fmt.Println()
	fmt.Println("  -settings-file string")
	fmt.Printf("        Persisted settings file (default %q; empty keeps settings in memory)\n", defaultSettingsFile)
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Zoom a screenshot, hotkeys from a keyboard, pointer from a mouse")
	fmt.Println("  zoomd -source-image shot.png -config ~/.config/zoomd/config.yaml")
	fmt.Println()
	fmt.Println("  # Drive it from a shell")
	fmt.Println("  zoom-ctl in --hold 500ms")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Reading input devices requires root or membership in the 'input' group")
	fmt.Println("  - The zoom scale is saved to the settings file and restored on start")
	fmt.Println()
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	var (
		configPath   = flag.String("config", "", "Path to YAML config file")
		inputDevice  = flag.String("input-device", "", "Linux input event device (overrides input.devices)")
		sourceImage  = flag.String("source-image", "", "Image to zoom (PNG/JPEG/BMP/WebP)")
		fps          = flag.Int("fps", defaultRenderFPS, "Render rate in frames per second")
		scale        = flag.Float64("scale", 1.0, "Initial zoom scale")
		tracking     = flag.String("tracking", "disabled", "Tracking mode: disabled|realtime|on_zoom_change")
		ipcSocket    = flag.String("ipc-socket", defaultIPCSocket, "Unix domain socket path for IPC")
		httpAddr     = flag.String("http-addr", defaultHTTPAddr, "HTTP listen address")
		settingsFile = flag.String("settings-file", defaultSettingsFile, "Persisted settings file")
		logLevelStr  = flag.String("log-level", "info", "Log level: error, warn, info, debug")
		_            = flag.Bool("version", false, "Print version and exit")
		_            = flag.Bool("help", false, "Print help message")
	)
	flag.Usage = printUsage
	flag.Parse()

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Only flags given on the command line override the file.
	var o FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input-device":
			o.InputDevice = inputDevice
		case "source-image":
			o.SourceImage = sourceImage
		case "fps":
			o.RenderFPS = fps
		case "scale":
			o.ScaleFactor = scale
		case "tracking":
			o.TrackingMode = tracking
		case "ipc-socket":
			o.IPCSocketPath = ipcSocket
		case "http-addr":
			o.HTTPAddr = httpAddr
		case "settings-file":
			o.SettingsFile = settingsFile
		case "log-level":
			o.LogLevel = logLevelStr
		}
	})
	o.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, err := zoomfilter.ParseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := zoomfilter.NewLogger(logLevel, os.Stderr)

	if err := run(cfg, logger); err != nil {
		logger.Error("zoomd stopped", "error", err)
		os.Exit(1)
	}
}

// run wires the daemon components and blocks until shutdown.
func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Frame source
	var src *imageSource
	if cfg.Source.Image != "" {
		var err error
		src, err = loadImageSource(ExpandPath(cfg.Source.Image))
		if err != nil {
			return err
		}
	} else {
		src = checkerboardSource(cfg.Source.Width, cfg.Source.Height, 64)
	}

	// Settings: config file defaults, then the persisted file on top.
	store := newSettingsStore(ExpandPath(cfg.Settings.File), cfg.ToSettings(), logger)
	settings, err := store.Load()
	if err != nil {
		return err
	}

	clock := newMonotonicClock()
	frames := &frameStore{}
	state := NewDaemonState(
		settings,
		src,
		uint32(cfg.Input.ScreenWidth),
		uint32(cfg.Input.ScreenHeight),
		frames,
		clock,
		logger,
	)

	w, h := src.Dimensions()
	logger.Info("starting zoomd",
		"version", version,
		"source", cfg.Source.Image,
		"width", w,
		"height", h,
		"fps", cfg.Render.FPS,
		"scale", state.Filter.Snapshot(clock.Now()).Target,
		"settings_file", store.Path())

	// Central event bus and broadcast fan-out.
	events := make(chan Event, 256)
	broadcasts := make(chan StateBroadcast, 256)

	wsServer := NewServer(logger, events, ServerConfig{})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		runDaemon(gctx, events, state, clock, store, broadcasts, cfg.Render.FPS, logger)
		return nil
	})

	g.Go(func() error {
		wsServer.Hub().Run(gctx)
		return nil
	})

	g.Go(func() error {
		RunBroadcaster(gctx, wsServer.Hub(), broadcasts, logger)
		return nil
	})

	g.Go(func() error {
		return runIPCServer(gctx, cfg.IPC.SocketPath, events, logger)
	})

	if cfg.HTTP.Addr != "" {
		mux := newHTTPMux(wsServer, src, frames, logger)
		g.Go(func() error {
			return runHTTPServer(gctx, cfg.HTTP.Addr, mux, logger)
		})
	}

	g.Go(func() error {
		return store.run(gctx, cfg.FlushInterval())
	})

	if len(cfg.Input.Devices) > 0 {
		keys := cfg.ToKeyMap()
		g.Go(func() error {
			return runInputReader(gctx, cfg.Input.Devices, keys, events, logger)
		})
	}

	err = g.Wait()
	logger.Info("shutting down")
	return err
}
