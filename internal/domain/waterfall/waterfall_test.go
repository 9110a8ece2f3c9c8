package waterfall_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/okian/triage/internal/domain/model"
	"github.com/okian/triage/internal/domain/waterfall"
	. "github.com/smartystreets/goconvey/convey"
)

const eps = 1e-9

func sample() (model.Attribution, map[string]float64) {
	attr := model.Attribution{
		{Feature: "A", Value: 0.1},
		{Feature: "B", Value: -0.05},
		{Feature: "C", Value: 0.03},
	}
	vals := map[string]float64{"A": 61, "B": 1, "C": 37.2}
	return attr, vals
}

func featureNames(wf waterfall.Waterfall) []string {
	names := make([]string, 0, len(wf.Features))
	for _, f := range wf.Features {
		names = append(names, f.Name)
	}
	return names
}

func shouldStep(step model.WaterfallStep, label string, start, end float64) {
	So(step.Label, ShouldEqual, label)
	So(step.Start, ShouldAlmostEqual, start, eps)
	So(step.End, ShouldAlmostEqual, end, eps)
}

func TestBuild_Reconciles(t *testing.T) {
	Convey("Given base 0.2 and contributions A=0.1 B=-0.05 C=0.03", t, func() {
		attr, vals := sample()

		Convey("When building with prediction 0.28", func() {
			wf, err := waterfall.Build(0.2, 0.28, attr, vals)
			So(err, ShouldBeNil)

			Convey("Then features are ranked by absolute contribution", func() {
				So(featureNames(wf), ShouldResemble, []string{"A", "B", "C"})
				So(wf.Features[0].Value, ShouldEqual, 61)
				So(wf.Features[1].Contribution, ShouldEqual, -0.05)
			})

			Convey("Then steps run from the base value to the prediction", func() {
				So(wf.Steps, ShouldHaveLength, 5)
				shouldStep(wf.Steps[0], waterfall.LabelBase, 0, 0.2)
				shouldStep(wf.Steps[1], "A", 0.2, 0.3)
				shouldStep(wf.Steps[2], "B", 0.3, 0.25)
				shouldStep(wf.Steps[3], "C", 0.25, 0.28)
				shouldStep(wf.Steps[4], waterfall.LabelFinal, 0, 0.28)
			})

			Convey("Then no integrity warning is raised", func() {
				So(wf.IntegrityOK, ShouldBeTrue)
				So(wf.Residual, ShouldAlmostEqual, 0, 1e-3)
			})
		})

		Convey("When building with signed ordering", func() {
			wf, err := waterfall.Build(0.2, 0.28, attr, vals, waterfall.WithOrder(waterfall.BySigned))
			So(err, ShouldBeNil)

			Convey("Then protective factors come last", func() {
				So(featureNames(wf), ShouldResemble, []string{"A", "C", "B"})
				shouldStep(wf.Steps[1], "A", 0.2, 0.3)
				shouldStep(wf.Steps[2], "C", 0.3, 0.33)
				shouldStep(wf.Steps[3], "B", 0.33, 0.28)
				So(wf.IntegrityOK, ShouldBeTrue)
			})
		})
	})
}

func TestBuild_Mismatch(t *testing.T) {
	Convey("Given contributions that do not reach the prediction", t, func() {
		attr, vals := sample()
		ok, err := waterfall.Build(0.2, 0.28, attr, vals)
		So(err, ShouldBeNil)

		wf, err := waterfall.Build(0.2, 0.5, attr, vals)

		Convey("Then the waterfall is still produced", func() {
			So(err, ShouldBeNil)
			So(wf.Features, ShouldResemble, ok.Features)
			So(wf.Steps[:4], ShouldResemble, ok.Steps[:4])
			shouldStep(wf.Steps[4], waterfall.LabelFinal, 0, 0.5)
		})

		Convey("Then the integrity flag is raised with the residual", func() {
			So(wf.IntegrityOK, ShouldBeFalse)
			So(wf.Residual, ShouldAlmostEqual, -0.22, eps)
		})
	})

	Convey("Given a looser tolerance", t, func() {
		attr, vals := sample()
		wf, err := waterfall.Build(0.2, 0.285, attr, vals, waterfall.WithTolerance(0.01))

		So(err, ShouldBeNil)
		So(wf.IntegrityOK, ShouldBeTrue)
	})

	Convey("Given a residual just over the default tolerance", t, func() {
		attr, vals := sample()
		wf, err := waterfall.Build(0.2, 0.282, attr, vals)

		So(err, ShouldBeNil)
		So(wf.IntegrityOK, ShouldBeFalse)
	})
}

func TestBuild_KeySet(t *testing.T) {
	Convey("Given a contribution without a feature value", t, func() {
		attr, vals := sample()
		attr = append(attr, model.Contribution{Feature: "D", Value: 0.01})

		wf, err := waterfall.Build(0.2, 0.29, attr, vals)

		Convey("Then a DataIntegrityError is returned and no waterfall", func() {
			var die *model.DataIntegrityError
			So(errors.As(err, &die), ShouldBeTrue)
			So(die.Extra, ShouldResemble, []string{"D"})
			So(wf.Steps, ShouldBeNil)
			So(wf.Features, ShouldBeNil)
		})
	})

	Convey("Given a feature value without a contribution", t, func() {
		attr, vals := sample()
		vals["D"] = 3

		_, err := waterfall.Build(0.2, 0.28, attr, vals)

		Convey("Then the missing key is reported", func() {
			var die *model.DataIntegrityError
			So(errors.As(err, &die), ShouldBeTrue)
			So(die.Missing, ShouldResemble, []string{"D"})
			So(errors.Is(err, model.ErrDataIntegrity), ShouldBeTrue)
		})
	})
}

func TestBuild_Deterministic(t *testing.T) {
	Convey("Given ties in absolute contribution", t, func() {
		attr := model.Attribution{
			{Feature: "X", Value: 0.02},
			{Feature: "Y", Value: -0.02},
			{Feature: "Z", Value: 0.02},
			{Feature: "W", Value: 0.1},
		}
		vals := map[string]float64{"X": 1, "Y": 2, "Z": 3, "W": 4}

		first, err := waterfall.Build(0.1, 0.22, attr, vals)
		So(err, ShouldBeNil)
		second, err := waterfall.Build(0.1, 0.22, attr, vals)
		So(err, ShouldBeNil)

		Convey("Then ties keep attribution order", func() {
			So(featureNames(first), ShouldResemble, []string{"W", "X", "Y", "Z"})
		})

		Convey("Then repeated builds are byte-identical", func() {
			a, _ := json.Marshal(first.Shap())
			b, _ := json.Marshal(second.Shap())
			So(string(a), ShouldEqual, string(b))
		})
	})
}
