// Package config loads process configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Env        string `env:"APP_ENV" envDefault:"development"`
	Port       string `env:"PORT" envDefault:"8080"`
	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"http://localhost:5173"`

	// StoreBackend selects the persistence backend:
	// memory | file | mongo | mysql | firestore
	StoreBackend string `env:"STORE_BACKEND" envDefault:"memory"`

	DataDir string `env:"DATA_DIR" envDefault:"./data"`

	MongoURI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"battlescore"`

	// MySQLDSN is a go-sql-driver DSN; parseTime=true is required, e.g.
	// user:pass@tcp(localhost:3306)/battlescore?parseTime=true
	MySQLDSN string `env:"MYSQL_DSN"`

	FirestoreProject  string `env:"GCP_PROJECT_ID"`
	FirestoreDatabase string `env:"FIRESTORE_DATABASE"`
}

// Load reads .env if present, then parses the environment. A missing .env is
// not an error; deployed environments set real variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}
