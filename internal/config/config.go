package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	TransportMemory = "memory"
	TransportRedis  = "redis"

	JudgeAllLines = "all-lines"
	JudgeLegacy   = "legacy"

	GameTicTacToe = "tictactoe"
	GameLaserDuel = "laserduel"
)

type Config struct {
	LogLevel    string      `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	Game        string      `yaml:"game" env:"GAME" env-default:"tictactoe"`
	Transport   string      `yaml:"transport" env:"TRANSPORT" env-default:"memory"`
	HTTPPort    string      `yaml:"http-port" env:"HTTP_PORT" env-default:"8080"`
	Session     Session     `yaml:"session"`
	Spawner     Spawner     `yaml:"spawner"`
	Redis       Redis       `yaml:"redis"`
	Leaderboard Leaderboard `yaml:"leaderboard"`
}

type Session struct {
	Players     []string      `yaml:"players" env-default:"host,guest"`
	TurnTimeout time.Duration `yaml:"turn-timeout" env-default:"10s"`
	Judge       string        `yaml:"judge" env-default:"all-lines"`
	MaxTurns    int           `yaml:"max-turns" env-default:"50"`
	Rounds      int           `yaml:"rounds" env-default:"1"`
}

type Spawner struct {
	BlockCount int           `yaml:"block-count" env-default:"50"`
	Tick       time.Duration `yaml:"tick" env-default:"16ms"`
}

type Redis struct {
	Host string `yaml:"host" env-default:"localhost"`
	Port string `yaml:"port" env-default:"6379"`
}

type Leaderboard struct {
	Name  string `yaml:"name" env-default:"HighScore"`
	Limit int    `yaml:"limit" env-default:"10"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
