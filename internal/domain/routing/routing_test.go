package routing_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/okian/triage/internal/domain/routing"
	. "github.com/smartystreets/goconvey/convey"
)

func mustCatalog(deps ...routing.Department) *routing.Catalog {
	c, err := routing.NewCatalog(deps)
	if err != nil {
		panic(err)
	}
	return c
}

func TestNormalize(t *testing.T) {
	Convey("Given router output with formatting noise", t, func() {
		So(routing.Normalize("  Cardiology\n"), ShouldEqual, "cardiology")
		So(routing.Normalize("General\r\nMedicine "), ShouldEqual, "generalmedicine")
		So(routing.Normalize("Emergency Medicine"), ShouldEqual, "emergency medicine")
		// decomposed e + combining acute composes to é
		So(routing.Normalize("Me\u0301decine"), ShouldEqual, "m\u00e9decine")
	})
}

func TestResolve(t *testing.T) {
	Convey("Given a catalog with cardiology", t, func() {
		catalog := mustCatalog(routing.Department{ID: "id-1", Name: "Cardiology"})

		Convey("When the router answers with padded, mixed-case text", func() {
			id, err := routing.Resolve("  Cardiology\n", catalog)

			Convey("Then the stable identifier is returned", func() {
				So(err, ShouldBeNil)
				So(id, ShouldEqual, "id-1")
			})
		})

		Convey("When the router answers with an unknown department", func() {
			id, err := routing.Resolve("Oncology", catalog)

			Convey("Then a RoutingValidationError carries the raw answer", func() {
				So(id, ShouldBeEmpty)
				var rve *routing.RoutingValidationError
				So(errors.As(err, &rve), ShouldBeTrue)
				So(rve.Raw, ShouldEqual, "Oncology")
				So(errors.Is(err, routing.ErrRoutingValidation), ShouldBeTrue)
			})
		})

		Convey("When the router answers with a near miss", func() {
			_, err := routing.Resolve("Cardiology department", catalog)

			Convey("Then no substring matching is applied", func() {
				So(errors.Is(err, routing.ErrRoutingValidation), ShouldBeTrue)
			})
		})

		Convey("When the raw answer keeps its newline", func() {
			res := catalog.Lookup("Neurology\n")

			Convey("Then the unmatched resolution keeps it verbatim", func() {
				So(res.Matched, ShouldBeFalse)
				So(res.Raw, ShouldEqual, "Neurology\n")
				So(res.Err().Error(), ShouldContainSubstring, `"Neurology\n"`)
			})
		})
	})

	Convey("Given no catalog", t, func() {
		_, err := routing.Resolve("Cardiology", nil)
		So(errors.Is(err, routing.ErrNoCatalog), ShouldBeTrue)
	})
}

func TestNewCatalog(t *testing.T) {
	Convey("Given several departments", t, func() {
		c := mustCatalog(
			routing.Department{ID: "id-2", Name: "Neurology"},
			routing.Department{ID: "id-1", Name: " Cardiology "},
		)

		So(c.Len(), ShouldEqual, 2)
		So(c.Names(), ShouldResemble, []string{"Cardiology", "Neurology"})
		So(c.Departments()[0], ShouldResemble, routing.Department{ID: "id-1", Name: "Cardiology"})

		Convey("Then Names returns a copy", func() {
			names := c.Names()
			names[0] = "mutated"
			So(c.Names()[0], ShouldEqual, "Cardiology")
		})
	})

	Convey("Given names colliding after normalization", t, func() {
		_, err := routing.NewCatalog([]routing.Department{
			{ID: "a", Name: "Cardiology"},
			{ID: "b", Name: "cardiology "},
		})
		So(errors.Is(err, routing.ErrInvalidCatalog), ShouldBeTrue)
	})

	Convey("Given an entry without an id", t, func() {
		_, err := routing.NewCatalog([]routing.Department{{Name: "Cardiology"}})
		So(errors.Is(err, routing.ErrInvalidCatalog), ShouldBeTrue)
	})

	Convey("Given an entry without a name", t, func() {
		_, err := routing.NewCatalog([]routing.Department{{ID: "x", Name: " \n"}})
		So(errors.Is(err, routing.ErrInvalidCatalog), ShouldBeTrue)
	})
}

func TestHolder(t *testing.T) {
	Convey("Given a holder with an initial catalog", t, func() {
		first := mustCatalog(routing.Department{ID: "id-1", Name: "Cardiology"})
		h := routing.NewHolder(first)

		So(h.Current(), ShouldEqual, first)

		Convey("When a new catalog is swapped in during concurrent reads", func() {
			second := mustCatalog(routing.Department{ID: "id-9", Name: "Oncology"})

			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 100; j++ {
						_ = h.Current().Len()
					}
				}()
			}
			prev := h.Swap(second)
			wg.Wait()

			Convey("Then readers see the new catalog and the old one is untouched", func() {
				So(prev, ShouldEqual, first)
				id, err := routing.Resolve("oncology", h.Current())
				So(err, ShouldBeNil)
				So(id, ShouldEqual, "id-9")
				So(first.Lookup("Cardiology").ID, ShouldEqual, "id-1")
			})
		})
	})

	Convey("Given an empty holder", t, func() {
		So(routing.NewHolder(nil).Current(), ShouldBeNil)
	})
}
