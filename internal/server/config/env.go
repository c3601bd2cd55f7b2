package config

import (
	"reflect"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/accounthub/internal/timex"
	"github.com/joho/godotenv"
)

// dotEnvFile is loaded, if present, before the environment is read.
// Variables already set in the process environment win over the file.
var dotEnvFile = ".env"

// parseEnv overlays Config fields that have a matching environment variable.
// Unset variables leave the current value untouched. Malformed values panic,
// like the other configuration layers. Durations also accept a day suffix
// ("10d").
func parseEnv(config *Config) {
	_ = godotenv.Load(dotEnvFile)

	opts := env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(time.Duration(0)): func(v string) (any, error) {
				return timex.ParseDuration(v)
			},
		},
	}
	if err := env.ParseWithOptions(config, opts); err != nil {
		panic(err)
	}
}
