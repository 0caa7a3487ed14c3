package api

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-envconfig"
	yaml "gopkg.in/yaml.v2"
)

// ConfigReader reads the api config from file
type ConfigReader interface {
	ReadConfigFromFile(string) (*APIConfig, error)
}

type configReaderImpl struct {
	lookuper envconfig.Lookuper
}

// NewConfigReader returns a new config.ConfigReader
func NewConfigReader() ConfigReader {
	return &configReaderImpl{
		lookuper: envconfig.PrefixLookuper("JOULUPUKKI_", envconfig.OsLookuper()),
	}
}

func newConfigReaderWithLookuper(lookuper envconfig.Lookuper) ConfigReader {
	return &configReaderImpl{
		lookuper: lookuper,
	}
}

// ReadConfigFromFile is used to read configuration from a file set from a configmap
func (h *configReaderImpl) ReadConfigFromFile(configPath string) (config *APIConfig, err error) {

	log.Info().Msgf("Reading %v file...", configPath)

	config = &APIConfig{}

	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return config, errors.Wrapf(err, "reading config file %v", configPath)
	}
	if os.IsNotExist(err) {
		log.Warn().Msgf("Config file %v does not exist, using defaults and environment variables", configPath)
	}

	// unmarshal into structs
	if len(data) > 0 {
		if err = yaml.Unmarshal(data, config); err != nil {
			return config, errors.Wrapf(err, "unmarshalling config file %v", configPath)
		}
	}

	// override values from envvars
	if err = envconfig.ProcessWith(context.Background(), config, h.lookuper); err != nil {
		return config, errors.Wrap(err, "overriding config from environment variables")
	}

	// fill in all the defaults for empty values
	config.SetDefaults()

	// validate the config
	err = config.Validate()
	if err != nil {
		return
	}

	log.Info().Msgf("Finished reading %v file successfully", configPath)

	return
}
