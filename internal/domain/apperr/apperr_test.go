package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/okian/kala/internal/domain/apperr"
	. "github.com/smartystreets/goconvey/convey"
)

func TestKind(t *testing.T) {
	Convey("Given errors wrapping a kind", t, func() {
		errOrderMissing := fmt.Errorf("%w: order missing", apperr.ErrNotFound)
		wrapped := fmt.Errorf("attach review: %w", errOrderMissing)

		Convey("Then Kind and Label see through the wrapping", func() {
			So(apperr.Kind(wrapped), ShouldEqual, apperr.ErrNotFound)
			So(apperr.Label(wrapped), ShouldEqual, "not_found")
			So(errors.Is(wrapped, errOrderMissing), ShouldBeTrue)
		})

		Convey("Then every kind has its own label", func() {
			So(apperr.Label(apperr.ErrValidation), ShouldEqual, "validation")
			So(apperr.Label(apperr.ErrConflict), ShouldEqual, "conflict")
			So(apperr.Label(apperr.ErrEligibility), ShouldEqual, "not_eligible")
			So(apperr.Label(apperr.ErrForbidden), ShouldEqual, "forbidden")
		})
	})

	Convey("Given an error without a kind", t, func() {
		err := errors.New("disk on fire")

		Convey("Then it is internal", func() {
			So(apperr.Kind(err), ShouldBeNil)
			So(apperr.Label(err), ShouldEqual, "internal")
			So(apperr.Label(nil), ShouldEqual, "internal")
		})
	})
}
