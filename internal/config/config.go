package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	LogJSON  bool `env:"LOG_JSON" envDefault:"true"`
	LogDebug bool `env:"LOG_DEBUG" envDefault:"false"`

	// Pesos por intensidad de preferencia.
	WeightWeak     int `env:"WEIGHT_WEAK" envDefault:"1"`
	WeightModerate int `env:"WEIGHT_MODERATE" envDefault:"2"`
	WeightStrong   int `env:"WEIGHT_STRONG" envDefault:"3"`

	// Boost por fuente de pathway.
	BoostGeneral float64 `env:"BOOST_GENERAL" envDefault:"0.1"`
	BoostGifted  float64 `env:"BOOST_GIFTED" envDefault:"0.15"`

	MatchThreshold float64 `env:"MATCH_THRESHOLD" envDefault:"0.6"`
	MatchLimit     int     `env:"MATCH_LIMIT" envDefault:"10"`

	CacheTTLQuestions time.Duration `env:"CACHE_TTL_QUESTIONS" envDefault:"1h"`
	CacheTTLMatches   time.Duration `env:"CACHE_TTL_MATCHES" envDefault:"30m"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate revisa rangos que env no puede expresar.
func (c *Config) Validate() error {
	if c.WeightWeak <= 0 || c.WeightModerate <= c.WeightWeak || c.WeightStrong <= c.WeightModerate {
		return fmt.Errorf("config: weights must be positive and increasing, got %d/%d/%d",
			c.WeightWeak, c.WeightModerate, c.WeightStrong)
	}
	if c.BoostGeneral < 0 || c.BoostGifted < 0 {
		return fmt.Errorf("config: boosts must not be negative")
	}
	if c.MatchThreshold < 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("config: MATCH_THRESHOLD must be within [0,1], got %v", c.MatchThreshold)
	}
	if c.MatchLimit <= 0 {
		return fmt.Errorf("config: MATCH_LIMIT must be positive, got %d", c.MatchLimit)
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("config: DB_MAX_CONNS must be positive, got %d", c.DBMaxConns)
	}
	return nil
}
