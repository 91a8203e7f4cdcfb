// Package catalog builds the pharmacy registry from configuration.
package catalog

import (
	"github.com/rs/zerolog"

	"github.com/pharmalens/price-compare-service/internal/config"
	"github.com/pharmalens/price-compare-service/internal/pharmacies"
	"github.com/pharmalens/price-compare-service/internal/pharmacies/apollo"
	"github.com/pharmalens/price-compare-service/internal/pharmacies/netmeds"
	"github.com/pharmalens/price-compare-service/internal/pharmacies/onemg"
	"github.com/pharmalens/price-compare-service/internal/pharmacies/pharmeasy"
)

// NewRegistry registers every enabled pharmacy. Registration order is the
// order sources are announced in started events.
func NewRegistry(cfg config.PharmaciesConfig, logger zerolog.Logger) *pharmacies.Registry {
	registry := pharmacies.NewRegistry()

	if c := cfg.PharmEasy; c.Enabled {
		registry.Register(pharmeasy.NewClient(pharmeasy.Config{
			BaseURL:    c.BaseURL,
			Timeout:    c.Timeout,
			RateLimit:  c.RateLimit,
			BurstSize:  c.BurstSize,
			MaxResults: c.MaxResults,
			Enabled:    true,
		}, nil))
		logger.Info().Msg("registered pharmacy: PharmEasy")
	}

	if c := cfg.OneMg; c.Enabled {
		registry.Register(onemg.NewClient(onemg.Config{
			BaseURL:    c.BaseURL,
			Timeout:    c.Timeout,
			RateLimit:  c.RateLimit,
			BurstSize:  c.BurstSize,
			MaxResults: c.MaxResults,
			Enabled:    true,
		}, nil))
		logger.Info().Msg("registered pharmacy: 1mg")
	}

	if c := cfg.Netmeds; c.Enabled {
		registry.Register(netmeds.NewClient(netmeds.Config{
			BaseURL:    c.BaseURL,
			Timeout:    c.Timeout,
			RateLimit:  c.RateLimit,
			BurstSize:  c.BurstSize,
			MaxResults: c.MaxResults,
			Enabled:    true,
		}, nil))
		logger.Info().Msg("registered pharmacy: Netmeds")
	}

	if c := cfg.Apollo; c.Enabled {
		registry.Register(apollo.NewClient(apollo.Config{
			BaseURL:    c.BaseURL,
			Timeout:    c.Timeout,
			RateLimit:  c.RateLimit,
			BurstSize:  c.BurstSize,
			MaxResults: c.MaxResults,
			Enabled:    true,
		}, nil))
		logger.Info().Msg("registered pharmacy: Apollo")
	}

	return registry
}
