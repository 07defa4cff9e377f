package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/kala/internal/adapters/http/api"
	"github.com/okian/kala/internal/adapters/http/auth"
	"github.com/okian/kala/internal/adapters/repository/memory"
	"github.com/okian/kala/internal/domain/leaderboard"
	"github.com/okian/kala/internal/domain/marketplace"
	"github.com/okian/kala/internal/domain/model"
	"github.com/okian/kala/internal/domain/rating"
	"github.com/okian/kala/internal/domain/types"
)

type stubStats map[string]any

func (s stubStats) GetStats(context.Context) map[string]any { return s }

type user struct {
	id, name string
	role     model.Role
}

var (
	asha  = user{"p1", "Asha", model.RoleCustomer}
	ravi  = user{"p2", "Ravi", model.RoleCustomer}
	meera = user{"a1", "Meera", model.RoleArtist}
	admin = user{"root", "Admin", model.RoleAdmin}
)

type client struct {
	h http.Handler
}

func newClient(opts ...api.Option) client {
	market := memory.NewMarketplaceStore()
	deps := api.Dependencies{
		Leaderboard: leaderboard.New(memory.NewLeaderboardStore()),
		Orders:      marketplace.New(market),
		Ratings:     rating.New(market),
		Stats:       stubStats{"players": 0},
	}
	return client{h: api.NewServer(deps, opts...).Handler()}
}

func (c client) do(as *user, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req.Header.Set(auth.HeaderUserID, as.id)
		req.Header.Set(auth.HeaderUserName, as.name)
		req.Header.Set(auth.HeaderUserRole, string(as.role))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](rec *httptest.ResponseRecorder) T {
	var v T
	So(json.Unmarshal(rec.Body.Bytes(), &v), ShouldBeNil)
	return v
}

func submit(score int64) types.SubmitScoreRequest {
	return types.SubmitScoreRequest{GameID: "rangoli-1", Score: score, TimeSpent: 120}
}

func TestLeaderboardRoutes(t *testing.T) {
	Convey("Given the API over empty stores", t, func() {
		c := newClient()

		Convey("When an anonymous caller submits a score", func() {
			rec := c.do(nil, http.MethodPost, "/leaderboard/submit-score", submit(10))

			Convey("Then it is unauthorized", func() {
				So(rec.Code, ShouldEqual, http.StatusUnauthorized)
				So(decode[types.ErrorResponse](rec).Code, ShouldEqual, "unauthorized")
			})
		})

		Convey("When two players submit scores", func() {
			So(c.do(&asha, http.MethodPost, "/leaderboard/submit-score", submit(80)).Code, ShouldEqual, http.StatusOK)
			So(c.do(&ravi, http.MethodPost, "/leaderboard/submit-score", submit(90)).Code, ShouldEqual, http.StatusOK)
			rec := c.do(&asha, http.MethodPost, "/leaderboard/submit-score", submit(90))

			Convey("Then the response carries the new standing", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				st := decode[types.Standing](rec)
				So(st.PlayerID, ShouldEqual, "p1")
				So(st.DisplayName, ShouldEqual, "Asha")
				So(st.TotalScore, ShouldEqual, 170)
				So(st.GamesPlayed, ShouldEqual, 2)
				So(st.AverageScore, ShouldEqual, 85)
				So(st.Rank, ShouldEqual, 1)
			})

			Convey("Then the ranking lists both with dense ranks", func() {
				page := decode[types.LeaderboardResponse](c.do(nil, http.MethodGet, "/leaderboard?limit=10", nil))
				So(page.Total, ShouldEqual, 2)
				So(page.Entries, ShouldHaveLength, 2)
				So(page.Entries[0].PlayerID, ShouldEqual, "p1")
				So(page.Entries[1].PlayerID, ShouldEqual, "p2")
				So(page.Entries[1].Rank, ShouldEqual, 2)
			})

			Convey("Then rank lookups agree", func() {
				So(decode[types.Standing](c.do(nil, http.MethodGet, "/leaderboard/rank/p2", nil)).Rank, ShouldEqual, 2)
				So(decode[types.Standing](c.do(&asha, http.MethodGet, "/leaderboard/me", nil)).Rank, ShouldEqual, 1)
			})

			Convey("Then the export is a workbook", func() {
				rec := c.do(nil, http.MethodGet, "/leaderboard/export.xlsx", nil)
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Header().Get("Content-Type"), ShouldContainSubstring, "spreadsheetml")
				So(rec.Body.Len(), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When a negative score is submitted", func() {
			rec := c.do(&asha, http.MethodPost, "/leaderboard/submit-score", submit(-1))

			Convey("Then it is a validation error and nothing is stored", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[types.ErrorResponse](rec).Code, ShouldEqual, "validation_error")
				So(decode[types.LeaderboardResponse](c.do(nil, http.MethodGet, "/leaderboard", nil)).Total, ShouldEqual, 0)
			})
		})

		Convey("When the body is not JSON", func() {
			req := httptest.NewRequest(http.MethodPost, "/leaderboard/submit-score", bytes.NewBufferString("{"))
			req.Header.Set(auth.HeaderUserID, "p1")
			rec := httptest.NewRecorder()
			c.h.ServeHTTP(rec, req)

			Convey("Then it is a bad request", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[types.ErrorResponse](rec).Code, ShouldEqual, "bad_request")
			})
		})

		Convey("When the same idempotency key is reused", func() {
			first := c.do(&asha, http.MethodPost, "/leaderboard/submit-score", submit(50), api.IdempotencyHeader, "k1")
			second := c.do(&asha, http.MethodPost, "/leaderboard/submit-score", submit(50), api.IdempotencyHeader, "k1")

			Convey("Then the repeat is refused and counted once", func() {
				So(first.Code, ShouldEqual, http.StatusOK)
				So(second.Code, ShouldEqual, http.StatusConflict)
				So(decode[types.ErrorResponse](second).Code, ShouldEqual, "duplicate_submission")
				So(decode[types.Standing](c.do(nil, http.MethodGet, "/leaderboard/rank/p1", nil)).TotalScore, ShouldEqual, 50)
			})
		})

		Convey("When a submission fails validation under a key", func() {
			c.do(&asha, http.MethodPost, "/leaderboard/submit-score", submit(-5), api.IdempotencyHeader, "k2")
			rec := c.do(&asha, http.MethodPost, "/leaderboard/submit-score", submit(5), api.IdempotencyHeader, "k2")

			Convey("Then the key can be retried", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When the same score is resubmitted without a key", func() {
			c.do(&asha, http.MethodPost, "/leaderboard/submit-score", submit(50))
			c.do(&asha, http.MethodPost, "/leaderboard/submit-score", submit(50))

			Convey("Then both count", func() {
				So(decode[types.Standing](c.do(nil, http.MethodGet, "/leaderboard/rank/p1", nil)).TotalScore, ShouldEqual, 100)
			})
		})

		Convey("When the query or player is bad", func() {
			badLimit := c.do(nil, http.MethodGet, "/leaderboard?limit=ten", nil)
			unknown := c.do(nil, http.MethodGet, "/leaderboard/rank/ghost", nil)
			route := c.do(nil, http.MethodGet, "/nowhere", nil)

			Convey("Then the matching statuses are returned", func() {
				So(badLimit.Code, ShouldEqual, http.StatusBadRequest)
				So(unknown.Code, ShouldEqual, http.StatusNotFound)
				So(decode[types.ErrorResponse](unknown).Code, ShouldEqual, "not_found")
				So(route.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func deliveredOrder(c client) types.Order {
	rec := c.do(&asha, http.MethodPost, "/marketplace/orders", types.PlaceOrderRequest{ArtistID: "a1", ArtworkID: "madhubani-3", Amount: 4500})
	So(rec.Code, ShouldEqual, http.StatusCreated)
	order := decode[types.Order](rec)
	for _, status := range []string{"Confirmed", "Shipped", "Delivered"} {
		rec = c.do(&meera, http.MethodPatch, "/marketplace/orders/"+order.ID+"/status", types.UpdateOrderStatusRequest{Status: status})
		So(rec.Code, ShouldEqual, http.StatusOK)
	}
	return decode[types.Order](rec)
}

func TestMarketplaceRoutes(t *testing.T) {
	Convey("Given a delivered order", t, func() {
		c := newClient()
		order := deliveredOrder(c)
		So(order.Status, ShouldEqual, "Delivered")

		Convey("When the customer reviews it", func() {
			rec := c.do(&asha, http.MethodPost, "/marketplace/reviews", types.CreateReviewRequest{OrderID: order.ID, Rating: 5, Title: "Lovely"})

			Convey("Then the review and new rating are returned", func() {
				So(rec.Code, ShouldEqual, http.StatusCreated)
				resp := decode[types.CreateReviewResponse](rec)
				So(resp.Review.CustomerID, ShouldEqual, "p1")
				So(resp.Review.ArtistID, ShouldEqual, "a1")
				So(resp.Review.Images, ShouldNotBeNil)
				So(resp.ArtistRating, ShouldResemble, types.ArtistRating{ArtistID: "a1", Rating: 5, TotalReviews: 1})
			})

			Convey("Then a second review of the order conflicts", func() {
				again := c.do(&asha, http.MethodPost, "/marketplace/reviews", types.CreateReviewRequest{OrderID: order.ID, Rating: 1})
				So(again.Code, ShouldEqual, http.StatusConflict)
				So(decode[types.ArtistRating](c.do(nil, http.MethodGet, "/marketplace/artists/a1/rating", nil)).Rating, ShouldEqual, 5)
			})

			Convey("Then it is listed, reportable and charted", func() {
				list := decode[types.ReviewListResponse](c.do(nil, http.MethodGet, "/marketplace/artists/a1/reviews", nil))
				So(list.Total, ShouldEqual, 1)
				reviewID := list.Reviews[0].ID

				report := c.do(&ravi, http.MethodPost, "/marketplace/reviews/"+reviewID+"/report", nil)
				So(report.Code, ShouldEqual, http.StatusOK)
				So(decode[types.Review](report).Reported, ShouldBeTrue)

				chart := c.do(nil, http.MethodGet, "/marketplace/artists/a1/rating-chart.png", nil)
				So(chart.Code, ShouldEqual, http.StatusOK)
				So(chart.Header().Get("Content-Type"), ShouldEqual, "image/png")
			})

			Convey("Then only an admin may deactivate it", func() {
				reviewID := decode[types.CreateReviewResponse](rec).Review.ID
				denied := c.do(&meera, http.MethodPost, "/marketplace/reviews/"+reviewID+"/deactivate", nil)
				So(denied.Code, ShouldEqual, http.StatusForbidden)

				ok := c.do(&admin, http.MethodPost, "/marketplace/reviews/"+reviewID+"/deactivate", nil)
				So(ok.Code, ShouldEqual, http.StatusOK)
				So(decode[types.ArtistRating](ok), ShouldResemble, types.ArtistRating{ArtistID: "a1", Rating: 0, TotalReviews: 0})
			})
		})

		Convey("When someone else reviews it", func() {
			rec := c.do(&ravi, http.MethodPost, "/marketplace/reviews", types.CreateReviewRequest{OrderID: order.ID, Rating: 4})

			Convey("Then it is not eligible", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[types.ErrorResponse](rec).Code, ShouldEqual, "not_eligible")
			})
		})

		Convey("When the review targets a missing order or has a bad rating", func() {
			missing := c.do(&asha, http.MethodPost, "/marketplace/reviews", types.CreateReviewRequest{OrderID: "nope", Rating: 4})
			bad := c.do(&asha, http.MethodPost, "/marketplace/reviews", types.CreateReviewRequest{OrderID: order.ID, Rating: 6})
			half := c.do(&asha, http.MethodPost, "/marketplace/reviews", map[string]any{"orderId": order.ID, "rating": 4.5})

			Convey("Then not found and validation errors are returned", func() {
				So(missing.Code, ShouldEqual, http.StatusNotFound)
				So(bad.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[types.ErrorResponse](bad).Code, ShouldEqual, "validation_error")
				So(half.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[types.ErrorResponse](half).Code, ShouldEqual, "validation_error")
			})
		})

		Convey("When a delivered order is cancelled", func() {
			rec := c.do(&admin, http.MethodPatch, "/marketplace/orders/"+order.ID+"/status", types.UpdateOrderStatusRequest{Status: "Cancelled"})

			Convey("Then the transition conflicts", func() {
				So(rec.Code, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When an outsider reads the order", func() {
			rec := c.do(&ravi, http.MethodGet, "/marketplace/orders/"+order.ID, nil)

			Convey("Then it is hidden", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When an artist with no reviews is queried", func() {
			rec := c.do(nil, http.MethodGet, "/marketplace/artists/nobody/rating", nil)

			Convey("Then the rating is zero", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(decode[types.ArtistRating](rec), ShouldResemble, types.ArtistRating{ArtistID: "nobody"})
			})
		})
	})
}

func TestOperationalRoutes(t *testing.T) {
	Convey("Given the API", t, func() {
		c := newClient()

		Convey("Then /healthz and /stats answer", func() {
			So(c.do(nil, http.MethodGet, "/healthz", nil).Code, ShouldEqual, http.StatusOK)
			stats := c.do(nil, http.MethodGet, "/stats", nil)
			So(stats.Code, ShouldEqual, http.StatusOK)
			So(decode[map[string]any](stats), ShouldContainKey, "players")
		})

		Convey("Then the docs are mounted", func() {
			So(c.do(nil, http.MethodGet, "/openapi.yaml", nil).Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the landing page is served at the root", func() {
			rec := c.do(nil, http.MethodGet, "/", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
		})
	})
}

func TestRateLimitAndTokens(t *testing.T) {
	Convey("Given a server with a one-request burst", t, func() {
		c := newClient(api.WithRateLimiter(auth.NewIPRateLimiter(0.001, 1)))

		Convey("When a client writes twice", func() {
			first := c.do(&asha, http.MethodPost, "/leaderboard/submit-score", submit(1))
			second := c.do(&asha, http.MethodPost, "/leaderboard/submit-score", submit(1))

			Convey("Then the second is limited but reads still pass", func() {
				So(first.Code, ShouldEqual, http.StatusOK)
				So(second.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decode[types.ErrorResponse](second).Code, ShouldEqual, "rate_limited")
				So(c.do(nil, http.MethodGet, "/leaderboard", nil).Code, ShouldEqual, http.StatusOK)
			})
		})
	})

	Convey("Given a server in token mode", t, func() {
		jwtRes := auth.NewJWTResolver("secret")
		market := memory.NewMarketplaceStore()
		h := api.NewServer(api.Dependencies{
			Leaderboard: leaderboard.New(memory.NewLeaderboardStore()),
			Orders:      marketplace.New(market),
			Ratings:     rating.New(market),
			Resolver:    jwtRes,
		}).Handler()
		c := client{h: h}

		Convey("When a valid token is sent", func() {
			token, err := jwtRes.Issue(auth.Identity{UserID: "p9", DisplayName: "Tara", Role: model.RoleCustomer})
			So(err, ShouldBeNil)
			rec := c.do(nil, http.MethodPost, "/leaderboard/submit-score", submit(7), "Authorization", "Bearer "+token)

			Convey("Then the score is recorded for the token's user", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(decode[types.Standing](rec).DisplayName, ShouldEqual, "Tara")
			})
		})

		Convey("When a forged token is sent", func() {
			rec := c.do(nil, http.MethodGet, "/leaderboard", nil, "Authorization", "Bearer forged")

			Convey("Then even public routes reject it", func() {
				So(rec.Code, ShouldEqual, http.StatusUnauthorized)
			})
		})
	})
}
