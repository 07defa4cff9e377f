package bus_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/kala/internal/adapters/mq/bus"
	"github.com/okian/kala/internal/domain/model"
	"github.com/okian/kala/pkg/logger"
)

func TestBusRoundTrip(t *testing.T) {
	Convey("Given a bus with one subscriber", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		b := bus.New(16, logger.Nop())
		defer b.Close()

		msgs, err := b.Subscribe(ctx, model.TopicArtistRatingUpdated)
		So(err, ShouldBeNil)

		at := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
		ev := model.Event{
			Topic:      model.TopicArtistRatingUpdated,
			Key:        "a1",
			OccurredAt: at,
			Data:       model.ArtistRatingUpdated{ArtistID: "a1", Rating: 4.5, TotalReviews: 2, Cause: "review.deactivated"},
		}

		Convey("When an event is published", func() {
			So(b.Publish(ctx, ev), ShouldBeNil)

			Convey("Then the subscriber decodes the same event", func() {
				select {
				case msg := <-msgs:
					msg.Ack()
					got, err := bus.Decode(model.TopicArtistRatingUpdated, msg)
					So(err, ShouldBeNil)
					So(got.Key, ShouldEqual, "a1")
					So(got.OccurredAt.Equal(at), ShouldBeTrue)

					var data model.ArtistRatingUpdated
					So(json.Unmarshal(got.Data.(json.RawMessage), &data), ShouldBeNil)
					So(data, ShouldResemble, ev.Data)
				case <-time.After(2 * time.Second):
					So("no message delivered", ShouldBeEmpty)
				}
			})
		})

		Convey("When an event is published on another topic", func() {
			other := ev
			other.Topic = model.TopicScoreRecorded

			Convey("Then publishing without subscribers succeeds", func() {
				So(b.Publish(ctx, other), ShouldBeNil)
			})
		})
	})
}

func TestEncodeErrors(t *testing.T) {
	Convey("Given a payload that cannot be encoded", t, func() {
		ev := model.Event{Topic: "bad", Data: make(chan int)}

		Convey("Then Encode and Publish fail", func() {
			_, err := bus.Encode(ev)
			So(err, ShouldNotBeNil)

			b := bus.New(0, nil)
			defer b.Close()
			So(b.Publish(context.Background(), ev), ShouldNotBeNil)
		})
	})

	Convey("Given a message with a corrupt timestamp", t, func() {
		msg, err := bus.Encode(model.Event{Topic: "t", Data: map[string]int{"a": 1}})
		So(err, ShouldBeNil)
		msg.Metadata.Set("occurred_at", "yesterday")

		Convey("Then Decode fails", func() {
			_, err := bus.Decode("t", msg)
			So(err, ShouldNotBeNil)
		})
	})
}
