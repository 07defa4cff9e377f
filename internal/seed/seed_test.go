package seed_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/kala/internal/adapters/repository/memory"
	"github.com/okian/kala/internal/domain/leaderboard"
	"github.com/okian/kala/internal/domain/model"
	"github.com/okian/kala/internal/seed"
)

const catalog = `
orders:
  - id: demo-1
    customerId: cust-1
    artistId: artist-gond
    artworkId: gond-tree-of-life
    amount: 5400
  - id: demo-2
    customerId: cust-2
    artistId: artist-gond
    artworkId: gond-peacock
    status: Shipped
    amount: 3200
scores:
  - playerId: learner-1
    displayName: Kavya
    gameId: warli-quiz
    score: 80
  - playerId: learner-1
    gameId: warli-quiz
    score: 90
`

func TestParse(t *testing.T) {
	Convey("Given a valid catalog", t, func() {
		c, err := seed.Parse([]byte(catalog))

		Convey("Then orders default to Delivered", func() {
			So(err, ShouldBeNil)
			So(c.Orders, ShouldHaveLength, 2)
			So(c.Orders[0].Status, ShouldEqual, "Delivered")
			So(c.Orders[1].Status, ShouldEqual, "Shipped")
			So(c.Scores, ShouldHaveLength, 2)
		})
	})

	Convey("Given broken catalogs", t, func() {
		cases := map[string]string{
			"bad yaml":       "orders: [",
			"missing ids":    "orders:\n  - id: x\n    amount: 1\n",
			"unknown status": "orders:\n  - {id: x, customerId: c, artistId: a, artworkId: w, status: Lost, amount: 1}\n",
			"zero amount":    "orders:\n  - {id: x, customerId: c, artistId: a, artworkId: w}\n",
			"negative score": "scores:\n  - {playerId: p, score: -1}\n",
		}
		for name, raw := range cases {
			Convey("Then "+name+" is rejected", func() {
				_, err := seed.Parse([]byte(raw))
				So(errors.Is(err, seed.ErrInvalidCatalog), ShouldBeTrue)
			})
		}
	})
}

func TestApply(t *testing.T) {
	Convey("Given a catalog file and empty stores", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "seed.yaml")
		So(os.WriteFile(path, []byte(catalog), 0o600), ShouldBeNil)
		c, err := seed.Load(path)
		So(err, ShouldBeNil)

		orders := memory.NewMarketplaceStore()
		board := leaderboard.New(memory.NewLeaderboardStore())
		now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

		Convey("When it is applied", func() {
			res, err := seed.Apply(ctx, c, orders, board, now)

			Convey("Then orders and scores are written", func() {
				So(err, ShouldBeNil)
				So(res, ShouldResemble, seed.Result{Orders: 2, ScoresRecorded: 2})

				o, found, _ := orders.FindOrder(ctx, "demo-1")
				So(found, ShouldBeTrue)
				So(o.Status, ShouldEqual, model.OrderDelivered)
				So(o.CreatedAt.Equal(now), ShouldBeTrue)

				st, err := board.PlayerRank(ctx, "learner-1")
				So(err, ShouldBeNil)
				So(st.TotalScore, ShouldEqual, 170)
				So(st.DisplayName, ShouldEqual, "Kavya")
			})

			Convey("Then applying the orders again skips them", func() {
				again, err := seed.Apply(ctx, &seed.Catalog{Orders: c.Orders}, orders, nil, now)
				So(err, ShouldBeNil)
				So(again.SkippedOrders, ShouldEqual, 2)
				So(again.Orders, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a missing file", t, func() {
		_, err := seed.Load(filepath.Join(t.TempDir(), "nope.yaml"))
		So(err, ShouldNotBeNil)
	})
}
