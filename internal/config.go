package fleetauth

import (
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const DefaultScope = "openid offline_access vehicle_device_data"

type ClientConfig struct {
	Id     string `yaml:"id"`
	Secret string `yaml:"secret"`
}

type Config struct {
	Client             ClientConfig `yaml:"client"`
	TokenHost          string       `yaml:"token-host"`
	RedirectUri        string       `yaml:"redirect-uri"`
	Scope              string       `yaml:"scope"`
	TimeoutSeconds     int          `yaml:"timeout-seconds"`
	SkipRegister       bool         `yaml:"skip-register"`
	ForceRegister      bool         `yaml:"force-register"`
	RegisterRegions    string       `yaml:"register-regions"`
	Domain             string       `yaml:"domain"`
	PrivateKeyFile     string       `yaml:"private-key-file"`
	PublicKeyFile      string       `yaml:"public-key-file"`
	GenerateKeys       bool         `yaml:"generate-keys"`
	SkipPublicKeyCheck bool         `yaml:"skip-public-key-check"`
	Audience           string       `yaml:"audience"`
	FetchVehicleId     bool         `yaml:"fetch-vehicle-id"`
	OpenBrowser        bool         `yaml:"open-browser"`
	PrintToken         bool         `yaml:"print-token"`
	DecodeAccessToken  bool         `yaml:"decode-access-token"`
	CachePath          string       `yaml:"cache"`
}

func NewConfig() Config {
	confDir := ".config/fleetauth"
	if home, err := os.UserHomeDir(); err == nil {
		confDir = filepath.Join(home, ".config", "fleetauth")
	}
	return Config{
		Client:          ClientConfig{},
		TokenHost:       "",
		RedirectUri:     "http://localhost:3000/callback",
		Scope:           DefaultScope,
		TimeoutSeconds:  300,
		RegisterRegions: "eu,na",
		PrivateKeyFile:  filepath.Join(confDir, "private-key.pem"),
		PublicKeyFile:   filepath.Join(confDir, "public-key.pem"),
		FetchVehicleId:  true,
		OpenBrowser:     true,
		CachePath:       filepath.Join(confDir, "registrations.db"),
	}
}

func LoadConfig(path string) Config {
	var c Config = NewConfig()
	file, err := os.ReadFile(path)
	if err != nil {
		log.Printf("failed to read config file: %v\n", err)
		return c
	}
	err = yaml.Unmarshal(file, &c)
	if err != nil {
		log.Fatalf("failed to unmarshal config: %v\n", err)
	}
	return c
}

func SaveDefaultConfig(path string) {
	path = filepath.Clean(path)
	if path == "" || path == "." {
		path = "config.yaml"
	}
	var c = NewConfig()
	data, err := yaml.Marshal(c)
	if err != nil {
		log.Printf("failed to marshal config: %v\n", err)
		return
	}
	err = os.WriteFile(path, data, 0o644)
	if err != nil {
		log.Printf("failed to write default config file: %v\n", err)
		return
	}
}
