// Package daemon wires every subsystem together and manages the process
// lifecycle: start order, signal handling, config reload, graceful stop.
//
// Grounded on the teacher's internal/daemon/daemon.go Start/Stop/Run/Reload
// shape, generalized from the task-manager/UDS-server pair to nakd's full
// module graph, workqueue, timer service, event bus, connectivity monitor,
// stage controller, wireless manager, LED mixer, VPN controller, UCI store
// and JSON-RPC control surface.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/msgctl/netaidkit-nakd/internal/auditlog"
	"github.com/msgctl/netaidkit-nakd/internal/command"
	"github.com/msgctl/netaidkit-nakd/internal/config"
	"github.com/msgctl/netaidkit-nakd/internal/connectivity"
	"github.com/msgctl/netaidkit-nakd/internal/event"
	"github.com/msgctl/netaidkit-nakd/internal/eventbus"
	"github.com/msgctl/netaidkit-nakd/internal/jsonrpc"
	"github.com/msgctl/netaidkit-nakd/internal/led"
	logpkg "github.com/msgctl/netaidkit-nakd/internal/log"
	"github.com/msgctl/netaidkit-nakd/internal/metrics"
	"github.com/msgctl/netaidkit-nakd/internal/module"
	"github.com/msgctl/netaidkit-nakd/internal/netstatus"
	"github.com/msgctl/netaidkit-nakd/internal/rpcconn"
	"github.com/msgctl/netaidkit-nakd/internal/shell"
	"github.com/msgctl/netaidkit-nakd/internal/stage"
	"github.com/msgctl/netaidkit-nakd/internal/timer"
	"github.com/msgctl/netaidkit-nakd/internal/uci"
	"github.com/msgctl/netaidkit-nakd/internal/vpn"
	"github.com/msgctl/netaidkit-nakd/internal/wireless"
	"github.com/msgctl/netaidkit-nakd/internal/workqueue"
)

// Daemon manages nakd's process lifecycle: every subsystem below is owned
// by this struct and threaded through to the pieces that need it, rather
// than reached via package-level state.
type Daemon struct {
	config     *config.GlobalConfig
	configPath string

	wq            *workqueue.Queue
	timers        *timer.Service
	bus           *eventbus.Bus
	netstatusTracker *netstatus.Tracker
	monitor       *connectivity.Monitor
	stageCtl      *stage.Controller
	wireless      *wireless.Manager
	ledMixer      *led.Mixer
	vpnCtl        vpn.Controller
	uciStore      *uci.Store
	router        *jsonrpc.Router
	rpcServer     *rpcconn.Server
	metricsServer *metrics.Server
	executor      shell.Executor
	modules       *module.Graph

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownChan chan struct{}
	sigChan      chan os.Signal
}

// New loads configuration and builds an unstarted Daemon.
func New(configPath string) (*Daemon, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	d := &Daemon{
		config:       cfg,
		configPath:   configPath,
		shutdownChan: make(chan struct{}),
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	return d, nil
}

// Start brings up every subsystem in dependency order and begins accepting
// control-surface connections. It does not block; call Run afterward.
func (d *Daemon) Start() error {
	if err := d.initLogging(); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	if err := auditlog.Init(d.config.Audit); err != nil {
		return fmt.Errorf("init audit log: %w", err)
	}

	slog.Info("starting nakd", "config", d.configPath, "socket", d.config.Control.Socket)

	if err := d.writePIDFile(); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}

	d.metricsServer = metrics.NewServer(d.config.Metrics.Listen, d.config.Metrics.Path)

	d.executor = shell.NewOSExecutor()

	defaultTimeout, err := time.ParseDuration(d.config.Workqueue.DefaultTimeout)
	if err != nil {
		return fmt.Errorf("parse workqueue.default_timeout: %w", err)
	}
	sweepInterval, err := time.ParseDuration(d.config.Workqueue.SweepInterval)
	if err != nil {
		return fmt.Errorf("parse workqueue.sweep_interval: %w", err)
	}
	d.wq = workqueue.New(d.config.Workqueue.Workers, defaultTimeout, sweepInterval)

	d.timers = timer.NewService(d.wq)
	d.bus = eventbus.New(d.wq)

	d.uciStore = uci.Open(d.config.UCI.ConfigDir)

	provider := netstatus.NewUbusProvider(d.executor, d.config.Netintf.WANDevice, d.config.Netintf.LANDevice, d.config.Netintf.WLANDevice)
	d.netstatusTracker = netstatus.NewTracker(provider)

	wlStore, err := wireless.NewStore(d.config.Wireless.CredentialFile)
	if err != nil {
		return fmt.Errorf("open wireless store: %w", err)
	}
	scanner := &wireless.ShellScanner{Executor: d.executor, Interface: d.config.Wireless.Interface}
	associator := &wireless.ShellAssociator{Executor: d.executor, Interface: d.config.Wireless.Interface}
	d.wireless = wireless.NewManager(wlStore, scanner, associator)

	ethProbe := &connectivity.TrackerEthernetProbe{Provider: provider}
	d.monitor = connectivity.NewMonitor(ethProbe, d.wireless, d.executor, d.bus, d.config.Connectivity.ProbeScript, d.config.Connectivity.GatewayProbe)

	d.vpnCtl = vpn.NewProcessController(d.config.VPN.ConfigFile, d.config.VPN.ManagementSocket)

	hooks := stage.NewHookToggler(d.uciStore)
	scripts := stage.NewScriptRunner(d.executor, d.config.Stage.ScriptRoot)
	vpnSteps := stage.NewVPNSteps(d.vpnCtl)
	d.stageCtl = stage.NewController(d.monitor)
	stage.RegisterDefaults(d.stageCtl, hooks, scripts, vpnSteps)
	if err := d.stageCtl.SetDesired(d.config.Stage.InitialStage); err != nil {
		slog.Warn("invalid initial stage, leaving unset", "stage", d.config.Stage.InitialStage, "error", err)
	}

	d.ledMixer = led.NewMixer(led.NewFileSink(d.config.LED.DevicePath))
	if err := led.RegisterIdle(d.ledMixer); err != nil {
		return fmt.Errorf("register idle led condition: %w", err)
	}
	d.wireless.OnAssociating(func(active bool) {
		if err := led.SetAssociating(d.ledMixer, active); err != nil {
			slog.Warn("failed to update associating led condition", "error", err)
		}
	})

	d.router = jsonrpc.NewRouter()
	command.Register(&command.Services{
		Router:       d.router,
		Workqueue:    d.wq,
		Netstatus:    d.netstatusTracker,
		Connectivity: d.monitor,
		Stage:        d.stageCtl,
		Wireless:     d.wireless,
		LED:          d.ledMixer,
		VPN:          d.vpnCtl,
		UCI:          d.uciStore,
		Executor:     d.executor,
		UpdateScript: d.config.Update.Script,
	})

	d.rpcServer = rpcconn.New(d.config.Control.Socket, d.config.Control.MaxConns, d.router)

	if err := d.buildModuleGraph(); err != nil {
		return fmt.Errorf("build module graph: %w", err)
	}
	if err := d.modules.InitAll(d.ctx); err != nil {
		return fmt.Errorf("init modules: %w", err)
	}

	d.subscribeEvents()
	d.startPeriodicTasks()

	slog.Info("nakd started", "modules", d.modules.Names())
	return nil
}

// buildModuleGraph registers the subsystems with a real start/stop
// lifecycle as module.Descriptors and resolves them into dependency order,
// per spec.md §4.4: the workqueue must be running before anything that
// schedules work onto it (the RPC router's handlers do), and metrics has no
// dependents so it can come up independently.
func (d *Daemon) buildModuleGraph() error {
	module.Reset()

	module.Register(&module.Descriptor{
		Name: "workqueue",
		Module: &funcModule{
			name:      "workqueue",
			initFn:    func(ctx context.Context) error { d.wq.Start(); return nil },
			cleanupFn: func(ctx context.Context) error { d.wq.Stop(); return nil },
		},
	})
	module.Register(&module.Descriptor{
		Name: "metrics",
		Module: &funcModule{
			name: "metrics",
			initFn: func(ctx context.Context) error {
				if !d.config.Metrics.Enabled {
					slog.Info("metrics server disabled")
					return nil
				}
				return d.metricsServer.Start(ctx)
			},
			cleanupFn: func(ctx context.Context) error {
				if !d.config.Metrics.Enabled {
					return nil
				}
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return d.metricsServer.Stop(shutdownCtx)
			},
		},
	})
	module.Register(&module.Descriptor{
		Name: "rpcconn",
		Deps: []string{"workqueue"},
		Module: &funcModule{
			name:   "rpcconn",
			initFn: func(ctx context.Context) error { return d.rpcServer.Start(d.ctx) },
			cleanupFn: func(ctx context.Context) error {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return d.rpcServer.Stop(shutdownCtx)
			},
		},
	})

	graph, err := module.Build()
	if err != nil {
		return err
	}
	d.modules = graph
	return nil
}

// funcModule adapts a pair of init/cleanup closures to module.Module, so
// Daemon can register already-constructed subsystems (which need config and
// each other wired in at construction time, not at Init) into the graph
// instead of needing every subsystem to implement the interface itself.
type funcModule struct {
	name      string
	initFn    func(ctx context.Context) error
	cleanupFn func(ctx context.Context) error
}

func (m *funcModule) Name() string                  { return m.name }
func (m *funcModule) Init(ctx context.Context) error { return m.initFn(ctx) }
func (m *funcModule) Cleanup(ctx context.Context) error {
	return m.cleanupFn(ctx)
}

// subscribeEvents wires the event bus handler that retries stage
// reconciliation as soon as connectivity recovers, in addition to the
// periodic reconcile tick.
func (d *Daemon) subscribeEvents() {
	d.bus.Subscribe(event.ConnectivityOk, "stage-reconcile-on-connectivity", func(ctx context.Context, e event.Event) error {
		return d.stageCtl.Reconcile(ctx)
	})
}

func (d *Daemon) startPeriodicTasks() {
	connInterval, err := time.ParseDuration(d.config.Timer.ConnectivityInterval)
	if err != nil {
		connInterval = 10 * time.Second
	}
	d.timers.Add("connectivity:update", connInterval, func(ctx context.Context) error {
		return d.monitor.Update(ctx)
	})

	d.timers.Add("stage:reconcile", 2500*time.Millisecond, func(ctx context.Context) error {
		before := d.stageCtl.Current()
		err := d.stageCtl.Reconcile(ctx)
		after := d.stageCtl.Current()

		if ledErr := led.SetConfigError(d.ledMixer, err != nil); ledErr != nil {
			slog.Warn("failed to update config-error led condition", "error", ledErr)
		}
		if err == nil && before != after {
			if ledErr := led.PulseStageTransition(d.ledMixer); ledErr != nil {
				slog.Warn("failed to pulse stage-transition led condition", "error", ledErr)
			}
		}
		return err
	})

	d.timers.Add("led:tick", 30*time.Millisecond, func(ctx context.Context) error {
		return d.ledMixer.Tick()
	})

	d.timers.Add("netstatus:poll", 500*time.Millisecond, func(ctx context.Context) error {
		events, err := d.netstatusTracker.Poll(ctx)
		if err != nil {
			return err
		}
		for _, e := range events {
			d.bus.Publish(e)
		}
		return nil
	})

	wirelessScanInterval, err := time.ParseDuration(d.config.Timer.WirelessScanInterval)
	if err != nil {
		wirelessScanInterval = time.Minute
	}
	d.timers.Add("wireless:scan", wirelessScanInterval, func(ctx context.Context) error {
		_, err := d.wireless.Scan(ctx)
		return err
	})
}

// Stop performs graceful shutdown of every subsystem, reverse of Start.
func (d *Daemon) Stop() {
	slog.Info("stopping nakd")

	if d.timers != nil {
		d.timers.Stop()
	}

	if d.modules != nil {
		if err := d.modules.CleanupAll(context.Background()); err != nil {
			slog.Error("error during module cleanup", "error", err)
		}
	}

	d.cancel()

	if d.sigChan != nil {
		signal.Stop(d.sigChan)
	}

	if err := d.removePIDFile(); err != nil {
		slog.Error("error removing pid file", "error", err)
	}

	slog.Info("nakd stopped")
}

// Run blocks until a terminating signal, a config reload signal, or an
// in-process shutdown request.
func (d *Daemon) Run() error {
	d.sigChan = make(chan os.Signal, 1)
	signal.Notify(d.sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	slog.Info("nakd running, waiting for signals or commands")

	for {
		select {
		case sig := <-d.sigChan:
			switch sig {
			case syscall.SIGTERM, syscall.SIGINT:
				slog.Info("received shutdown signal", "signal", sig)
				d.Stop()
				return nil
			case syscall.SIGHUP:
				slog.Info("received reload signal")
				if err := d.Reload(); err != nil {
					slog.Error("failed to reload config", "error", err)
				}
			}

		case <-d.shutdownChan:
			slog.Info("shutdown triggered by command")
			d.Stop()
			return nil

		case <-d.ctx.Done():
			slog.Info("context cancelled", "error", d.ctx.Err())
			d.Stop()
			return d.ctx.Err()
		}
	}
}

// Reload re-reads configuration. Log level/format are hot-reloaded; a
// changed control socket path or worker count requires a restart and is
// only logged as such. Other settings take effect at the next start.
func (d *Daemon) Reload() error {
	slog.Info("reloading configuration", "path", d.configPath)

	newConfig, err := config.Load(d.configPath)
	if err != nil {
		return fmt.Errorf("load new config: %w", err)
	}

	hotReloaded := []string{}
	oldConfig := d.config
	oldLevel, oldFormat := oldConfig.Log.Level, oldConfig.Log.Format
	d.config = newConfig
	if err := d.initLogging(); err != nil {
		slog.Error("failed to reinitialize logging", "error", err)
	} else if newConfig.Log.Level != oldLevel || newConfig.Log.Format != oldFormat {
		hotReloaded = append(hotReloaded, "log")
	}

	requiresRestart := []string{}
	if newConfig.Control.Socket != oldConfig.Control.Socket {
		requiresRestart = append(requiresRestart, "control.socket")
	}
	if newConfig.Workqueue.Workers != oldConfig.Workqueue.Workers {
		requiresRestart = append(requiresRestart, "workqueue.workers")
	}

	slog.Info("configuration reloaded", "hot_reloaded", hotReloaded, "requires_restart", requiresRestart)
	return nil
}

// TriggerShutdown requests graceful shutdown from an external caller (a
// future daemon_shutdown RPC method, or the CLI).
func (d *Daemon) TriggerShutdown() {
	select {
	case d.shutdownChan <- struct{}{}:
	default:
	}
}

func (d *Daemon) initLogging() error {
	if err := logpkg.Init(d.config.Log); err != nil {
		return err
	}
	slog.SetDefault(logpkg.Get())
	return nil
}

func (d *Daemon) writePIDFile() error {
	pidFile := d.config.Control.PIDFile
	if pidFile == "" {
		return nil
	}
	data := []byte(strconv.Itoa(os.Getpid()) + "\n")
	if err := os.WriteFile(pidFile, data, 0644); err != nil {
		return fmt.Errorf("write pid file %s: %w", pidFile, err)
	}
	return nil
}

func (d *Daemon) removePIDFile() error {
	pidFile := d.config.Control.PIDFile
	if pidFile == "" {
		return nil
	}
	if err := os.Remove(pidFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove pid file %s: %w", pidFile, err)
	}
	return nil
}
