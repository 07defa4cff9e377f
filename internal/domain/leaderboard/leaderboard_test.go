package leaderboard_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	. "github.com/smartystreets/goconvey/convey"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/mock/gomock"

	"github.com/okian/kala/internal/adapters/repository/memory"
	"github.com/okian/kala/internal/domain/apperr"
	"github.com/okian/kala/internal/domain/keylock"
	"github.com/okian/kala/internal/domain/leaderboard"
	"github.com/okian/kala/internal/domain/leaderboard/mocks"
	"github.com/okian/kala/internal/domain/model"
)

var fixedNow = time.Date(2025, 4, 19, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev model.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func newService(opts ...leaderboard.Option) (*leaderboard.Service, *memory.LeaderboardStore) {
	store := memory.NewLeaderboardStore()
	base := []leaderboard.Option{
		leaderboard.WithClock(func() time.Time { return fixedNow }),
		leaderboard.WithTracer(noop.NewTracerProvider().Tracer("test")),
	}
	return leaderboard.New(store, append(base, opts...)...), store
}

func submit(ctx context.Context, svc *leaderboard.Service, player string, score int64) model.Standing {
	st, err := svc.RecordScore(ctx, leaderboard.Submission{PlayerID: player, DisplayName: "Player " + player, Score: score, GameID: "rangoli-match"})
	So(err, ShouldBeNil)
	return st
}

func TestRecordScore(t *testing.T) {
	Convey("Given an empty leaderboard", t, func() {
		ctx := context.Background()
		pub := &recordingPublisher{}
		svc, _ := newService(leaderboard.WithPublisher(pub))

		Convey("When p1 scores 80 then p2 scores 100 then p1 scores 90", func() {
			first := submit(ctx, svc, "p1", 80)
			second := submit(ctx, svc, "p2", 100)
			third := submit(ctx, svc, "p1", 90)

			Convey("Then standings follow the worked example", func() {
				So(first.TotalScore, ShouldEqual, 80)
				So(first.GamesPlayed, ShouldEqual, 1)
				So(first.AverageScore, ShouldEqual, 80)
				So(first.Rank, ShouldEqual, 1)

				So(second.Rank, ShouldEqual, 1)
				p1, err := svc.PlayerRank(ctx, "p1")
				So(err, ShouldBeNil)
				So(p1.Rank, ShouldEqual, 1)
				So(p1.TotalScore, ShouldEqual, 170)

				So(third.TotalScore, ShouldEqual, 170)
				So(third.GamesPlayed, ShouldEqual, 2)
				So(third.AverageScore, ShouldEqual, 85)
				So(third.LastActive.Equal(fixedNow), ShouldBeTrue)
			})

			Convey("Then one event is published per submission", func() {
				So(pub.events, ShouldHaveLength, 3)
				So(pub.events[2].Topic, ShouldEqual, model.TopicScoreRecorded)
				data, ok := pub.events[2].Data.(model.ScoreRecorded)
				So(ok, ShouldBeTrue)
				So(data.Score, ShouldEqual, 90)
				So(data.GameID, ShouldEqual, "rangoli-match")
			})
		})

		Convey("When p2 keeps a total below p1", func() {
			submit(ctx, svc, "p1", 80)
			submit(ctx, svc, "p2", 50)
			st := submit(ctx, svc, "p2", 10)

			Convey("Then p2 stays second", func() {
				So(st.Rank, ShouldEqual, 2)
			})
		})

		Convey("When the same player submits a second name", func() {
			submit(ctx, svc, "p1", 10)
			st, err := svc.RecordScore(ctx, leaderboard.Submission{PlayerID: "p1", DisplayName: "Renamed", Score: 5})

			Convey("Then the original display name is kept", func() {
				So(err, ShouldBeNil)
				So(st.DisplayName, ShouldEqual, "Player p1")
			})
		})

		Convey("When a new player omits the display name", func() {
			st, err := svc.RecordScore(ctx, leaderboard.Submission{PlayerID: "anon", Score: 1})

			Convey("Then the player id stands in", func() {
				So(err, ShouldBeNil)
				So(st.DisplayName, ShouldEqual, "anon")
			})
		})

		Convey("When the publisher fails", func() {
			pub.err = errors.New("bus down")
			st, err := svc.RecordScore(ctx, leaderboard.Submission{PlayerID: "p1", Score: 3})

			Convey("Then the write still succeeds", func() {
				So(err, ShouldBeNil)
				So(st.TotalScore, ShouldEqual, 3)
			})
		})
	})
}

func TestRecordScoreValidation(t *testing.T) {
	Convey("Given a leaderboard with one player", t, func() {
		ctx := context.Background()
		svc, store := newService()
		submit(ctx, svc, "p1", 40)

		cases := []struct {
			name string
			sub  leaderboard.Submission
			want error
		}{
			{"negative score", leaderboard.Submission{PlayerID: "p1", Score: -1}, leaderboard.ErrInvalidScore},
			{"missing player", leaderboard.Submission{Score: 10}, leaderboard.ErrInvalidPlayer},
			{"negative time", leaderboard.Submission{PlayerID: "p1", Score: 1, TimeSpent: -time.Second}, leaderboard.ErrInvalidTimeSpent},
		}
		for _, tc := range cases {
			Convey("When submitting a "+tc.name, func() {
				_, err := svc.RecordScore(ctx, tc.sub)

				Convey("Then a validation error is returned and nothing changes", func() {
					So(errors.Is(err, tc.want), ShouldBeTrue)
					So(errors.Is(err, apperr.ErrValidation), ShouldBeTrue)
					ps, _, _ := store.FindPlayerScore(ctx, "p1")
					So(ps.TotalScore, ShouldEqual, 40)
					So(ps.GamesPlayed, ShouldEqual, 1)
					n, _ := store.Count(ctx)
					So(n, ShouldEqual, 1)
				})
			})
		}
	})
}

func TestLeaderboardPaging(t *testing.T) {
	Convey("Given twelve players", t, func() {
		ctx := context.Background()
		svc, _ := newService(leaderboard.WithPageSizes(5, 8))
		for i := range 12 {
			submit(ctx, svc, fmt.Sprintf("p%02d", i), int64(100-i))
		}

		Convey("When limit is not positive", func() {
			page, err := svc.Leaderboard(ctx, 0, 0)

			Convey("Then the default page size applies", func() {
				So(err, ShouldBeNil)
				So(page.Entries, ShouldHaveLength, 5)
				So(page.Limit, ShouldEqual, 5)
				So(page.Total, ShouldEqual, 12)
				So(page.Entries[0].PlayerID, ShouldEqual, "p00")
				So(page.Entries[0].Rank, ShouldEqual, 1)
			})
		})

		Convey("When limit exceeds the maximum", func() {
			page, _ := svc.Leaderboard(ctx, 1000, 2)

			Convey("Then it is capped and ranks continue from the offset", func() {
				So(page.Limit, ShouldEqual, 8)
				So(page.Entries, ShouldHaveLength, 8)
				So(page.Entries[0].Rank, ShouldEqual, 3)
				So(page.Entries[7].Rank, ShouldEqual, 10)
			})
		})

		Convey("When offset is past the end", func() {
			page, err := svc.Leaderboard(ctx, 5, 50)

			Convey("Then the page is empty, not an error", func() {
				So(err, ShouldBeNil)
				So(page.Entries, ShouldBeEmpty)
				So(page.Entries, ShouldNotBeNil)
				So(page.Total, ShouldEqual, 12)
			})
		})

		Convey("When offset is negative", func() {
			page, _ := svc.Leaderboard(ctx, 3, -4)

			Convey("Then it is treated as zero", func() {
				So(page.Offset, ShouldEqual, 0)
				So(page.Entries[0].Rank, ShouldEqual, 1)
			})
		})

		Convey("When taking a snapshot", func() {
			all, err := svc.Snapshot(ctx, 0)
			top, _ := svc.Snapshot(ctx, 3)

			Convey("Then it pages through every player in order", func() {
				So(err, ShouldBeNil)
				So(all, ShouldHaveLength, 12)
				So(all[11].Rank, ShouldEqual, 12)
				So(all[11].PlayerID, ShouldEqual, "p11")
				So(top, ShouldHaveLength, 3)
			})
		})
	})
}

func TestPlayerRank(t *testing.T) {
	Convey("Given a leaderboard", t, func() {
		ctx := context.Background()
		svc, _ := newService()
		submit(ctx, svc, "p1", 5)

		Convey("When asking for an unknown player", func() {
			_, err := svc.PlayerRank(ctx, "ghost")

			Convey("Then it is not found", func() {
				So(errors.Is(err, leaderboard.ErrPlayerNotFound), ShouldBeTrue)
				So(errors.Is(err, apperr.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

// Ranks stay dense and averages consistent across random submissions.
func TestRankInvariantsWithRandomPopulation(t *testing.T) {
	Convey("Given random submissions from a fake population", t, func() {
		ctx := context.Background()
		svc, _ := newService()
		faker := gofakeit.New(42)
		players := make([]string, 40)
		for i := range players {
			players[i] = faker.Username()
		}

		seen := map[string]bool{}
		for range 400 {
			id := players[faker.Number(0, len(players)-1)]
			score := int64(faker.Number(0, 100))
			st, err := svc.RecordScore(ctx, leaderboard.Submission{PlayerID: id, DisplayName: faker.Name(), Score: score})
			So(err, ShouldBeNil)
			seen[id] = true
			So(st.Rank, ShouldBeBetweenOrEqual, 1, len(seen))
		}

		Convey("Then ranks are exactly 1..N and averages match totals", func() {
			page, err := svc.Leaderboard(ctx, 100, 0)
			So(err, ShouldBeNil)
			So(page.Total, ShouldEqual, len(seen))
			for i, st := range page.Entries {
				So(st.Rank, ShouldEqual, i+1)
				So(st.AverageScore, ShouldEqual, leaderboard.RoundedAverage(st.TotalScore, st.GamesPlayed))
				if i > 0 {
					So(st.TotalScore, ShouldBeLessThanOrEqualTo, page.Entries[i-1].TotalScore)
				}
			}
		})
	})
}

func TestConcurrentSubmissionsForOnePlayer(t *testing.T) {
	Convey("Given many concurrent submissions for the same player", t, func() {
		ctx := context.Background()
		svc, _ := newService()
		var wg sync.WaitGroup
		for range 100 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = svc.RecordScore(ctx, leaderboard.Submission{PlayerID: "p1", Score: 3})
			}()
		}
		wg.Wait()

		Convey("Then no update is lost", func() {
			st, err := svc.PlayerRank(ctx, "p1")
			So(err, ShouldBeNil)
			So(st.TotalScore, ShouldEqual, 300)
			So(st.GamesPlayed, ShouldEqual, 100)
			So(st.AverageScore, ShouldEqual, 3)
		})
	})
}

func TestRoundedAverage(t *testing.T) {
	Convey("Given integer averages", t, func() {
		So(leaderboard.RoundedAverage(0, 0), ShouldEqual, 0)
		So(leaderboard.RoundedAverage(170, 2), ShouldEqual, 85)
		So(leaderboard.RoundedAverage(5, 2), ShouldEqual, 3)
		So(leaderboard.RoundedAverage(7, 3), ShouldEqual, 2)
		So(leaderboard.RoundedAverage(8, 3), ShouldEqual, 3)
		So(leaderboard.RoundedAverage(1, 4), ShouldEqual, 0)
	})
}

func TestStoreFailures(t *testing.T) {
	Convey("Given a store that fails", t, func() {
		ctx := context.Background()
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStore(ctrl)
		svc := leaderboard.New(store, leaderboard.WithClock(func() time.Time { return fixedNow }))
		boom := errors.New("connection reset")

		Convey("When the upsert fails", func() {
			store.EXPECT().FindPlayerScore(gomock.Any(), "p1").Return(model.PlayerScore{}, false, nil)
			store.EXPECT().UpsertPlayerScore(gomock.Any(), gomock.Any()).Return(model.PlayerScore{}, boom)

			_, err := svc.RecordScore(ctx, leaderboard.Submission{PlayerID: "p1", Score: 1})

			Convey("Then the error is wrapped, not classified", func() {
				So(errors.Is(err, boom), ShouldBeTrue)
				So(apperr.Kind(err), ShouldBeNil)
			})
		})

		Convey("When the stored total is at the limit", func() {
			store.EXPECT().FindPlayerScore(gomock.Any(), "p1").
				Return(model.PlayerScore{PlayerID: "p1", TotalScore: 1<<63 - 1, GamesPlayed: 1, Seq: 1}, true, nil)

			_, err := svc.RecordScore(ctx, leaderboard.Submission{PlayerID: "p1", Score: 1})

			Convey("Then the submission is rejected without a write", func() {
				So(errors.Is(err, leaderboard.ErrScoreOverflow), ShouldBeTrue)
			})
		})

		Convey("When the new player's write succeeds", func() {
			store.EXPECT().FindPlayerScore(gomock.Any(), "p1").Return(model.PlayerScore{}, false, nil)
			store.EXPECT().UpsertPlayerScore(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, ps model.PlayerScore) (model.PlayerScore, error) {
					ps.Seq = 9
					return ps, nil
				})
			store.EXPECT().Rank(gomock.Any(), "p1").Return(4, nil)
			store.EXPECT().Count(gomock.Any()).Return(4, nil)

			st, err := svc.RecordScore(ctx, leaderboard.Submission{PlayerID: "p1", Score: 7})

			Convey("Then the rank comes from the store", func() {
				So(err, ShouldBeNil)
				So(st.Rank, ShouldEqual, 4)
				So(st.AverageScore, ShouldEqual, 7)
			})
		})

		Convey("When counting fails on a read", func() {
			store.EXPECT().Count(gomock.Any()).Return(0, boom)

			_, err := svc.Leaderboard(ctx, 10, 0)

			Convey("Then the error surfaces", func() {
				So(errors.Is(err, boom), ShouldBeTrue)
			})
		})

		Convey("When a player joins between the count and the range", func() {
			store.EXPECT().Count(gomock.Any()).Return(1, nil)
			store.EXPECT().Range(gomock.Any(), 0, 10).Return([]model.PlayerScore{
				{PlayerID: "p1", TotalScore: 90, GamesPlayed: 1, Seq: 1},
				{PlayerID: "p2", TotalScore: 80, GamesPlayed: 1, Seq: 2},
			}, nil)

			page, err := svc.Leaderboard(ctx, 10, 0)

			Convey("Then the total still covers every entry", func() {
				So(err, ShouldBeNil)
				So(page.Entries, ShouldHaveLength, 2)
				So(page.Total, ShouldEqual, 2)
			})
		})
	})
}

func TestPlayerRankHoldsPlayerLock(t *testing.T) {
	Convey("Given a write in progress for p1", t, func() {
		ctx := context.Background()
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStore(ctrl)
		locks := keylock.New(0)
		svc := leaderboard.New(store, leaderboard.WithLocker(locks))
		store.EXPECT().FindPlayerScore(gomock.Any(), "p1").
			Return(model.PlayerScore{PlayerID: "p1", TotalScore: 50, GamesPlayed: 1, Seq: 1}, true, nil)
		store.EXPECT().Rank(gomock.Any(), "p1").Return(1, nil)

		unlock := locks.Lock("p1")
		done := make(chan model.Standing, 1)
		go func() {
			st, _ := svc.PlayerRank(ctx, "p1")
			done <- st
		}()

		Convey("Then the rank read waits for the write to finish", func() {
			select {
			case <-done:
				t.Fatal("PlayerRank returned while p1 was locked")
			case <-time.After(50 * time.Millisecond):
			}
			unlock()
			select {
			case st := <-done:
				So(st.TotalScore, ShouldEqual, 50)
				So(st.Rank, ShouldEqual, 1)
			case <-time.After(2 * time.Second):
				t.Fatal("PlayerRank never returned")
			}
		})
	})
}
