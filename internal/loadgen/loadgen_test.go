package loadgen

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/kala/internal/app"
	"github.com/okian/kala/internal/config"
	"github.com/okian/kala/internal/domain/types"
	"github.com/okian/kala/pkg/logger"
)

func startService(t *testing.T, mutate func(*config.Config)) *httptest.Server {
	t.Helper()
	cfg := config.New()
	cfg.EventWorkers = 1
	cfg.RateLimitRPS = 0
	if mutate != nil {
		mutate(cfg)
	}
	svc := service.New(cfg, service.WithLogger(logger.Nop()))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	srv := httptest.NewServer(svc.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = svc.Stop(context.Background())
	})
	return srv
}

func runConfig(baseURL string) *Config {
	return &Config{
		BaseURL:        baseURL,
		Players:        25,
		GamesPerPlayer: 4,
		MaxScore:       50,
		Workers:        4,
		Timeout:        5 * time.Second,
		Seed:           42,
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given a seeded config", t, func() {
		cfg := runConfig("http://unused")

		Convey("Then the population is reproducible and complete", func() {
			a, b := generate(cfg), generate(cfg)
			So(a.Players, ShouldHaveLength, 25)
			So(a.Submissions, ShouldHaveLength, 100)
			for i := range a.Submissions {
				So(a.Submissions[i].Player.Identity.UserID, ShouldEqual, b.Submissions[i].Player.Identity.UserID)
				So(a.Submissions[i].Score, ShouldEqual, b.Submissions[i].Score)
				So(a.Submissions[i].Score, ShouldBeBetweenOrEqual, 0, 50)
			}
		})

		Convey("Then expected aggregates skip failed submissions", func() {
			pop := generate(&Config{Players: 1, GamesPerPlayer: 3, MaxScore: 10, Seed: 7})
			pop.Submissions[0].Score, pop.Submissions[1].Score, pop.Submissions[2].Score = 80, 90, 1000
			want := expected(pop.Submissions, []bool{true, true, false})
			e := want[pop.Players[0].Identity.UserID]
			So(e.TotalScore, ShouldEqual, 170)
			So(e.GamesPlayed, ShouldEqual, 2)
			So(e.AverageScore, ShouldEqual, 85)
		})
	})
}

func TestVerifyLeaderboard(t *testing.T) {
	Convey("Given expected aggregates for two players", t, func() {
		want := map[string]Expected{
			"p1": {TotalScore: 170, GamesPlayed: 2, AverageScore: 85},
			"p2": {TotalScore: 90, GamesPlayed: 1, AverageScore: 90},
		}
		good := []types.Standing{
			{Rank: 1, PlayerID: "p1", TotalScore: 170, GamesPlayed: 2, AverageScore: 85},
			{Rank: 2, PlayerID: "p2", TotalScore: 90, GamesPlayed: 1, AverageScore: 90},
		}

		Convey("Then a consistent board passes", func() {
			So(verifyLeaderboard(good, want), ShouldBeEmpty)
			So(verifyRank(good[1], good), ShouldBeEmpty)
		})

		Convey("Then a rank gap and an inversion are reported", func() {
			bad := []types.Standing{good[1], good[0]}
			bad[0].Rank, bad[1].Rank = 1, 3
			So(len(verifyLeaderboard(bad, want)), ShouldBeGreaterThanOrEqualTo, 2)
		})

		Convey("Then a wrong total and a missing player are reported", func() {
			bad := []types.Standing{{Rank: 1, PlayerID: "p1", TotalScore: 160, GamesPlayed: 2, AverageScore: 80}}
			v := verifyLeaderboard(bad, want)
			So(v, ShouldHaveLength, 2)
		})

		Convey("Then a rank lookup that disagrees is reported", func() {
			So(verifyRank(types.Standing{Rank: 1, PlayerID: "p2", TotalScore: 90}, good), ShouldHaveLength, 1)
			So(verifyRank(types.Standing{Rank: 9, PlayerID: "p2"}, good), ShouldHaveLength, 1)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a service using header identities", t, func() {
		srv := startService(t, nil)

		Convey("When a load run completes", func() {
			stats, err := Run(context.Background(), runConfig(srv.URL), logger.Nop())

			Convey("Then every submission succeeded and the ranking verified", func() {
				So(err, ShouldBeNil)
				So(stats.Successful, ShouldEqual, 100)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.RankLookups, ShouldEqual, 25)
				So(stats.LeaderboardChecks, ShouldEqual, 25)
			})

			Convey("Then a second run over the same players still verifies", func() {
				stats, err := Run(context.Background(), runConfig(srv.URL), logger.Nop())
				So(err, ShouldBeNil)
				So(stats.LeaderboardChecks, ShouldEqual, 25)
			})
		})
	})

	Convey("Given a service using signed tokens", t, func() {
		srv := startService(t, func(c *config.Config) {
			c.AuthMode = config.AuthModeJWT
			c.JWTSecret = "loadgen-secret"
		})

		Convey("Then a run with the shared secret verifies", func() {
			cfg := runConfig(srv.URL)
			cfg.JWTSecret = "loadgen-secret"
			_, err := Run(context.Background(), cfg, logger.Nop())
			So(err, ShouldBeNil)
		})

		Convey("Then a run with the wrong secret fails every submission", func() {
			cfg := runConfig(srv.URL)
			cfg.JWTSecret = "wrong"
			stats, err := Run(context.Background(), cfg, logger.Nop())
			So(err, ShouldBeNil)
			So(stats.Failed, ShouldEqual, 100)
			So(stats.RankLookups, ShouldEqual, 0)
		})
	})

	Convey("Given an unhealthy service", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		Convey("Then the run stops at the health check", func() {
			_, err := Run(context.Background(), runConfig(srv.URL), logger.Nop())
			So(err, ShouldNotBeNil)
			var status *StatusError
			So(errors.As(err, &status), ShouldBeTrue)
			So(status.Status, ShouldEqual, http.StatusServiceUnavailable)
		})
	})

	Convey("Given an invalid config", t, func() {
		_, err := Run(context.Background(), &Config{}, nil)
		So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
	})
}
