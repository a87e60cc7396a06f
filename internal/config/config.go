package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"3001"`
	DatabaseDSN string `envconfig:"DATABASE_DSN" required:"true"`

	// Chapa payment gateway
	ChapaSecretKey string `envconfig:"CHAPA_SECRET_KEY" default:""`
	ChapaBaseURL   string `envconfig:"CHAPA_BASE_URL" default:"https://api.chapa.co/v1"`

	// Public URLs used to build payment return/callback links
	FrontendURL string `envconfig:"FRONTEND_URL" default:"http://localhost:3000"`
	BackendURL  string `envconfig:"BACKEND_URL" default:"http://localhost:3001"`

	// Optional event publishing; disabled when empty
	RabbitMQURL string `envconfig:"RABBITMQ_URL" default:""`

	UploadDir string `envconfig:"UPLOAD_DIR" default:"uploads"`

	CORSAllowOrigins string `envconfig:"CORS_ALLOW_ORIGINS" default:"*"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
