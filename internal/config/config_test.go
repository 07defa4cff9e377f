package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/kala/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LeaderboardBackend, convey.ShouldEqual, config.BackendMemory)
			convey.So(cfg.MarketplaceBackend, convey.ShouldEqual, config.BackendMemory)
			convey.So(cfg.DefaultPageSize, convey.ShouldEqual, 10)
			convey.So(cfg.MaxPageSize, convey.ShouldEqual, 100)
			convey.So(cfg.AuthMode, convey.ShouldEqual, config.AuthModeHeader)
			convey.So(cfg.EventWorkers, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.ShutdownTimeout, convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty addr", func(c *config.Config) { c.Addr = "" }},
		{"unknown leaderboard backend", func(c *config.Config) { c.LeaderboardBackend = "postgres" }},
		{"unknown marketplace backend", func(c *config.Config) { c.MarketplaceBackend = "redis" }},
		{"zero default page", func(c *config.Config) { c.DefaultPageSize = 0 }},
		{"default above max", func(c *config.Config) { c.DefaultPageSize = 500 }},
		{"unknown auth mode", func(c *config.Config) { c.AuthMode = "firebase" }},
		{"jwt without secret", func(c *config.Config) { c.AuthMode = config.AuthModeJWT }},
		{"negative rate", func(c *config.Config) { c.RateLimitRPS = -1 }},
		{"zero workers", func(c *config.Config) { c.EventWorkers = 0 }},
	}

	convey.Convey("Given invalid configurations", t, func() {
		for _, tc := range cases {
			convey.Convey("When "+tc.name, func() {
				cfg := config.New()
				tc.mutate(cfg)
				err := cfg.Validate()

				convey.Convey("Then Validate rejects it", func() {
					convey.So(err, convey.ShouldNotBeNil)
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}

		convey.Convey("When jwt mode has a secret", func() {
			cfg := config.New()
			cfg.AuthMode = config.AuthModeJWT
			cfg.JWTSecret = "s3cret"

			convey.Convey("Then it is accepted", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})
	})
}
