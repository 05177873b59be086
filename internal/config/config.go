// Package config handles global daemon configuration loading using viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// GlobalConfig is the top-level static configuration for nakd.
// Maps to the `nakd:` root key in YAML.
type GlobalConfig struct {
	Control    ControlConfig    `mapstructure:"control"`
	Workqueue  WorkqueueConfig  `mapstructure:"workqueue"`
	Timer      TimerConfig      `mapstructure:"timer"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Log        LogConfig        `mapstructure:"log"`
	Audit      AuditConfig      `mapstructure:"audit"`
	DataDir    string           `mapstructure:"data_dir"`
	Stage      StageConfig      `mapstructure:"stage"`
	Wireless   WirelessConfig   `mapstructure:"wireless"`
	UCI        UCIConfig        `mapstructure:"uci"`
	VPN        VPNConfig        `mapstructure:"vpn"`
	Connectivity ConnectivityConfig `mapstructure:"connectivity"`
	Update     UpdateConfig     `mapstructure:"update"`
	Netintf    NetintfConfig    `mapstructure:"netintf"`
	LED        LEDConfig        `mapstructure:"led"`
}

// ControlConfig contains the JSON-RPC control surface settings.
type ControlConfig struct {
	Socket     string `mapstructure:"socket"`
	PIDFile    string `mapstructure:"pid_file"`
	MaxConns   int    `mapstructure:"max_conns"`
}

// WorkqueueConfig configures the fixed worker pool.
type WorkqueueConfig struct {
	Workers        int    `mapstructure:"workers"`
	QueueCapacity  int    `mapstructure:"queue_capacity"`
	DefaultTimeout string `mapstructure:"default_timeout"`
	SweepInterval  string `mapstructure:"sweep_interval"`
}

// TimerConfig configures the periodic timer service.
type TimerConfig struct {
	ConnectivityInterval string `mapstructure:"connectivity_interval"`
	WirelessScanInterval string `mapstructure:"wireless_scan_interval"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// LogConfig contains application logging settings.
type LogConfig struct {
	Level   string         `mapstructure:"level"`
	Format  string         `mapstructure:"format"`
	Outputs []OutputConfig `mapstructure:"outputs"`
}

// OutputConfig describes a single log sink.
type OutputConfig struct {
	Type          string            `mapstructure:"type"` // console | stdout | file
	Path          string            `mapstructure:"path"`
	MaxSizeMB     int               `mapstructure:"max_size_mb"`
	MaxBackups    int               `mapstructure:"max_backups"`
	MaxAgeDays    int               `mapstructure:"max_age_days"`
	Compress      bool              `mapstructure:"compress"`
	Endpoint      string            `mapstructure:"endpoint"`
	Labels        map[string]string `mapstructure:"labels"`
	BatchSize     int               `mapstructure:"batch_size"`
	FlushInterval string            `mapstructure:"flush_interval"`
}

// AuditConfig controls the JSON-RPC audit trail logger.
type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Level   string `mapstructure:"level"`
}

// StageConfig configures the stage state machine.
type StageConfig struct {
	ScriptRoot   string `mapstructure:"script_root"`
	InitialStage string `mapstructure:"initial_stage"`
}

// WirelessConfig configures the wireless manager.
type WirelessConfig struct {
	CredentialFile string `mapstructure:"credential_file"`
	Interface      string `mapstructure:"interface"`
}

// UCIConfig configures the hierarchical config store.
type UCIConfig struct {
	ConfigDir string `mapstructure:"config_dir"`
}

// VPNConfig configures the OpenVPN control surface.
type VPNConfig struct {
	ConfigFile  string `mapstructure:"config_file"`
	ManagementSocket string `mapstructure:"management_socket"`
}

// ConnectivityConfig configures the connectivity monitor.
type ConnectivityConfig struct {
	ProbeScript   string `mapstructure:"probe_script"`
	GatewayProbe  bool   `mapstructure:"gateway_probe"`
}

// UpdateConfig configures the firmware/package update recipe invoked by the
// "update" RPC method.
type UpdateConfig struct {
	Script string `mapstructure:"script"`
}

// NetintfConfig maps the ubus device names backing each of the daemon's
// interface roles (LAN/WAN/WLAN), mirroring original_source/netintf.c's
// "network.device status" poll resolved against role names via UCI.
type NetintfConfig struct {
	WANDevice string `mapstructure:"wan_device"`
	LANDevice string `mapstructure:"lan_device"`
	WLANDevice string `mapstructure:"wlan_device"`
}

// LEDConfig points at the sysfs device the LED mixer drives.
type LEDConfig struct {
	DevicePath string `mapstructure:"device_path"`
}

type configRoot struct {
	Nakd GlobalConfig `mapstructure:"nakd"`
}

// Load reads the daemon config file, applies defaults and env overrides.
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg := root.Nakd

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("nakd.control.socket", "/var/run/nakd.sock")
	v.SetDefault("nakd.control.pid_file", "/var/run/nakd.pid")
	v.SetDefault("nakd.control.max_conns", 32)

	v.SetDefault("nakd.workqueue.workers", 4)
	v.SetDefault("nakd.workqueue.queue_capacity", 256)
	v.SetDefault("nakd.workqueue.default_timeout", "30s")
	v.SetDefault("nakd.workqueue.sweep_interval", "2500ms")

	v.SetDefault("nakd.timer.connectivity_interval", "10s")
	v.SetDefault("nakd.timer.wireless_scan_interval", "60s")

	v.SetDefault("nakd.metrics.enabled", true)
	v.SetDefault("nakd.metrics.listen", ":9092")
	v.SetDefault("nakd.metrics.path", "/metrics")

	v.SetDefault("nakd.log.level", "info")
	v.SetDefault("nakd.log.format", "json")

	v.SetDefault("nakd.audit.enabled", true)
	v.SetDefault("nakd.audit.path", "/var/log/nakd/audit.log")
	v.SetDefault("nakd.audit.level", "info")

	v.SetDefault("nakd.data_dir", "/var/lib/nakd")

	v.SetDefault("nakd.stage.script_root", "/usr/share/nakd/stage")
	v.SetDefault("nakd.stage.initial_stage", "default")

	v.SetDefault("nakd.update.script", "/usr/share/nakd/update.sh")

	v.SetDefault("nakd.netintf.wan_device", "eth0")
	v.SetDefault("nakd.netintf.lan_device", "eth1")
	v.SetDefault("nakd.netintf.wlan_device", "wlan0")

	v.SetDefault("nakd.led.device_path", "/sys/class/leds/status/brightness")

	v.SetDefault("nakd.wireless.credential_file", "/etc/nakd/wireless_networks")
	v.SetDefault("nakd.wireless.interface", "wlan0")

	v.SetDefault("nakd.uci.config_dir", "/etc/nakd/uci")

	v.SetDefault("nakd.vpn.config_file", "/etc/openvpn/nakd.conf")
	v.SetDefault("nakd.vpn.management_socket", "/var/run/openvpn-nakd.sock")

	v.SetDefault("nakd.connectivity.probe_script", "/usr/share/nakd/check-online.sh")
	v.SetDefault("nakd.connectivity.gateway_probe", true)
}

// Validate checks invariants that defaults alone can't guarantee.
func (cfg *GlobalConfig) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json/text)", cfg.Log.Format)
	}
	if cfg.Control.Socket == "" {
		return fmt.Errorf("control.socket must not be empty")
	}
	if cfg.Workqueue.Workers <= 0 {
		return fmt.Errorf("workqueue.workers must be positive")
	}
	return nil
}
