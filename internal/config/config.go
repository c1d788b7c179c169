package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar")
	}
	if value.Value == "" {
		d.Duration = 0
		return nil
	}
	if value.Tag == "!!int" {
		var v int64
		if err := value.Decode(&v); err != nil {
			return err
		}
		d.Duration = time.Duration(v) * time.Millisecond
		return nil
	}
	dur, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	d.Duration = dur
	return nil
}

type Config struct {
	ChainID uint64 `yaml:"chain_id"`

	RPC struct {
		// IPC is preferred when set; HTTP is the fallback.
		IPC  string `yaml:"ipc"`
		HTTP string `yaml:"http"`
	} `yaml:"rpc"`

	Funder struct {
		// KeyEnv names the environment variable holding the hex-encoded
		// private key of the operator account. The key itself never lives
		// in the config file.
		KeyEnv string `yaml:"key_env"`
	} `yaml:"funder"`

	Token struct {
		Address string `yaml:"address"`
		ABIPath string `yaml:"abi_path"`
	} `yaml:"token"`

	GasStation struct {
		URL              string `yaml:"url"`
		DefaultThreshold string `yaml:"default_threshold"`
		// ScalePow10 converts the station's reporting unit to wei. A pointer
		// so an explicit 0 (station already reports wei) survives defaulting.
		ScalePow10 *int `yaml:"scale_pow10"`
	} `yaml:"gasstation"`

	Confirm struct {
		PollInterval Duration `yaml:"poll_interval"`
		// MaxWait bounds a confirmation wait; zero means wait forever.
		MaxWait Duration `yaml:"max_wait"`
	} `yaml:"confirm"`

	RequestTimeout Duration `yaml:"request_timeout"`

	API struct {
		Listen    string `yaml:"listen"`
		AuthToken string `yaml:"auth_token"`
	} `yaml:"api"`

	Output struct {
		CSVPath string `yaml:"csv_path"`
	} `yaml:"output"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Funder.KeyEnv == "" {
		c.Funder.KeyEnv = "FUNDKIT_FUNDER_KEY"
	}
	if c.GasStation.URL == "" {
		c.GasStation.URL = "https://ethgasstation.info/json/ethgasAPI.json"
	}
	if c.GasStation.DefaultThreshold == "" {
		c.GasStation.DefaultThreshold = "safeLow"
	}
	if c.GasStation.ScalePow10 == nil {
		scale := 8
		c.GasStation.ScalePow10 = &scale
	}
	if c.Confirm.PollInterval.Duration == 0 {
		c.Confirm.PollInterval = Duration{Duration: time.Second}
	}
	if c.RequestTimeout.Duration == 0 {
		c.RequestTimeout = Duration{Duration: 15 * time.Second}
	}
	if c.API.Listen == "" {
		c.API.Listen = ":8080"
	}
	if c.Output.CSVPath == "" {
		c.Output.CSVPath = "data/transfers.csv"
	}
}

func (c *Config) validate() error {
	if c.ChainID == 0 {
		return fmt.Errorf("chain_id is required")
	}
	if c.RPC.IPC == "" && c.RPC.HTTP == "" {
		return fmt.Errorf("one of rpc.ipc or rpc.http is required")
	}
	if c.Token.Address != "" && c.Token.ABIPath == "" {
		return fmt.Errorf("token.abi_path is required when token.address is set")
	}
	if *c.GasStation.ScalePow10 < 0 {
		return fmt.Errorf("gasstation.scale_pow10 must be non-negative")
	}
	return nil
}
