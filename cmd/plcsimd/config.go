package main

import (
	"strings"
	"time"

	"github.com/ladderforge/plcsim/devicememory"
	"github.com/ladderforge/plcsim/rtuserver"
	"github.com/ladderforge/plcsim/tcpserver"
	"github.com/spf13/viper"
)

// AppConfig is the root of the YAML/env-driven runtime configuration.
// Viper precedence applies: env (PLCSIM_*) > file > default. The only flag
// is --config, which names the file; no flag overrides individual settings.
type AppConfig struct {
	Memory   MemoryConfig   `mapstructure:"memory"`
	TCP      TCPConfig      `mapstructure:"tcp"`
	RTU      RTUConfig      `mapstructure:"rtu"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Scenario ScenarioConfig `mapstructure:"scenario"`
}

type MemoryConfig struct {
	Coils            int `mapstructure:"coils"`
	DiscreteInputs   int `mapstructure:"discreteInputs"`
	HoldingRegisters int `mapstructure:"holdingRegisters"`
	InputRegisters   int `mapstructure:"inputRegisters"`
}

func (c MemoryConfig) toDeviceMemoryConfig() devicememory.Config {
	return devicememory.Config{
		Coils:            c.Coils,
		DiscreteInputs:   c.DiscreteInputs,
		HoldingRegisters: c.HoldingRegisters,
		InputRegisters:   c.InputRegisters,
	}
}

type TCPConfig struct {
	BindAddress    string `mapstructure:"bindAddress"`
	Port           int    `mapstructure:"port"`
	UnitID         int    `mapstructure:"unitID"`
	MaxConnections int    `mapstructure:"maxConnections"`
	TimeoutMs      int    `mapstructure:"timeoutMs"`
}

func (c TCPConfig) toServerConfig() tcpserver.Config {
	return tcpserver.Config{
		BindAddress:    c.BindAddress,
		Port:           c.Port,
		UnitID:         byte(c.UnitID),
		MaxConnections: int64(c.MaxConnections),
		TimeoutMs:      c.TimeoutMs,
	}
}

type RTUConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	ComPort  string `mapstructure:"comPort"`
	BaudRate int    `mapstructure:"baudRate"`
	DataBits int    `mapstructure:"dataBits"`
	Parity   string `mapstructure:"parity"`
	StopBits int    `mapstructure:"stopBits"`
	UnitID   int    `mapstructure:"unitID"`
}

func (c RTUConfig) toServerConfig() rtuserver.Config {
	parity := rtuserver.ParityNone
	switch strings.ToUpper(c.Parity) {
	case "O":
		parity = rtuserver.ParityOdd
	case "E":
		parity = rtuserver.ParityEven
	}
	stopBits := rtuserver.StopBits1
	if c.StopBits == 2 {
		stopBits = rtuserver.StopBits2
	}
	return rtuserver.Config{
		ComPort:  c.ComPort,
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
		Parity:   parity,
		StopBits: stopBits,
		UnitID:   byte(c.UnitID),
	}
}

type ScanConfig struct {
	IntervalMs int `mapstructure:"intervalMs"`
}

func (c ScanConfig) interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type SnapshotConfig struct {
	Path string `mapstructure:"path"`
}

type ScenarioConfig struct {
	Path        string `mapstructure:"path"`
	LoopEnabled bool   `mapstructure:"loopEnabled"`
	LoopCount   int    `mapstructure:"loopCount"`
	LoopDelayMs int    `mapstructure:"loopDelayMs"`
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("memory.coils", devicememory.DefaultBankSize)
	v.SetDefault("memory.discreteInputs", devicememory.DefaultBankSize)
	v.SetDefault("memory.holdingRegisters", devicememory.DefaultBankSize)
	v.SetDefault("memory.inputRegisters", devicememory.DefaultBankSize)

	v.SetDefault("tcp.bindAddress", "0.0.0.0")
	v.SetDefault("tcp.port", 502)
	v.SetDefault("tcp.unitID", 1)
	v.SetDefault("tcp.maxConnections", 10)
	v.SetDefault("tcp.timeoutMs", 30000)

	v.SetDefault("rtu.enabled", false)
	v.SetDefault("rtu.comPort", "/dev/ttyUSB0")
	v.SetDefault("rtu.baudRate", 9600)
	v.SetDefault("rtu.dataBits", 8)
	v.SetDefault("rtu.parity", "N")
	v.SetDefault("rtu.stopBits", 1)
	v.SetDefault("rtu.unitID", 1)

	v.SetDefault("scan.intervalMs", 100)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")

	v.SetDefault("snapshot.path", "")

	v.SetDefault("scenario.path", "")
	v.SetDefault("scenario.loopEnabled", false)
	v.SetDefault("scenario.loopCount", 1)
	v.SetDefault("scenario.loopDelayMs", 0)
}

func loadConfig(cfgFile string) (*AppConfig, error) {
	v := viper.New()
	setConfigDefaults(v)
	v.SetEnvPrefix("PLCSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
