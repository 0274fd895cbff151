package config

import (
	"fmt"

	"github.com/spf13/viper"

	"donorslot/internal/domain"
)

// Seed lists the donors and centers loaded into a store at startup. It is
// meant for development and for the memory driver.
type Seed struct {
	Donors  []domain.Donor  `mapstructure:"donors"`
	Centers []domain.Center `mapstructure:"centers"`
}

// LoadSeed reads a YAML, JSON or TOML seed file.
func LoadSeed(path string) (Seed, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Seed{}, fmt.Errorf("read seed file: %w", err)
	}

	var seed Seed
	if err := v.Unmarshal(&seed); err != nil {
		return Seed{}, fmt.Errorf("decode seed file: %w", err)
	}
	for i, d := range seed.Donors {
		if d.ID == "" {
			return Seed{}, fmt.Errorf("seed donors[%d]: id is required", i)
		}
	}
	for i, c := range seed.Centers {
		if c.ID == "" {
			return Seed{}, fmt.Errorf("seed centers[%d]: id is required", i)
		}
	}
	return seed, nil
}
