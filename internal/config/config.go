package config

import (
	"fmt"
	"os"

	"github.com/go-yaml/yaml"
)

type Config struct {
	Ledger Ledger `yaml:"ledger"`
	Store  Store  `yaml:"store"`
	Server Server `yaml:"server"`
}

type Ledger struct {
	RPCEndpoint     string `yaml:"rpcEndpoint"`
	ChainID         int64  `yaml:"chainID"`
	ContractAddress string `yaml:"contractAddress"`
	PrivateKey      string `yaml:"privatekey"`
	DeployHeight    uint64 `yaml:"deployHeight"`
}

type Store struct {
	PinEndpoint string `yaml:"pinEndpoint"`
	PinJWT      string `yaml:"pinJWT"`
	GatewayBase string `yaml:"gatewayBase"`
}

type Server struct {
	ListenAddr    string `yaml:"listenAddr"`
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	if config.Ledger.RPCEndpoint == "" {
		return Config{}, fmt.Errorf("ledger.rpcEndpoint is required")
	}
	if config.Ledger.ContractAddress == "" {
		return Config{}, fmt.Errorf("ledger.contractAddress is required")
	}
	if config.Store.GatewayBase == "" {
		config.Store.GatewayBase = "https://gateway.pinata.cloud/ipfs/"
	}
	if config.Store.PinEndpoint == "" {
		config.Store.PinEndpoint = "https://api.pinata.cloud/pinning/pinJSONToIPFS"
	}
	if config.Server.ListenAddr == "" {
		config.Server.ListenAddr = ":8000"
	}

	return config, nil
}
