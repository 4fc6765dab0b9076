package dedupe_test

import (
	"math"
	"testing"

	dedupe "github.com/okian/gradeboard/internal/domain/dedupe"
	"github.com/okian/gradeboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWorstKeeper(t *testing.T) {
	Convey("Given a new WorstKeeper", t, func() {
		k := dedupe.NewWorstKeeper(dedupe.WithCapacity(4))

		Convey("Then it starts empty", func() {
			So(k.Size(), ShouldEqual, 0)
			So(k.Rows(), ShouldBeEmpty)
		})

		Convey("When the same member and method submit twice", func() {
			So(k.Offer(model.Row{Score: model.Float(0.81), Method: "mlp", Member: "alice"}), ShouldBeTrue)
			So(k.Offer(model.Row{Score: model.Float(0.60), Method: "mlp", Member: "alice"}), ShouldBeTrue)

			Convey("Then only the worst score is kept", func() {
				rows := k.Rows()
				So(rows, ShouldHaveLength, 1)
				So(*rows[0].Score, ShouldEqual, 0.60)
			})
		})

		Convey("When a better score arrives later", func() {
			k.Offer(model.Row{Score: model.Float(0.60), Method: "mlp", Member: "alice"})
			kept := k.Offer(model.Row{Score: model.Float(0.90), Method: "mlp", Member: "alice"})

			Convey("Then it is dropped", func() {
				So(kept, ShouldBeFalse)
				So(*k.Rows()[0].Score, ShouldEqual, 0.60)
			})
		})

		Convey("When scores tie", func() {
			k.Offer(model.Row{Score: model.Float(0.5), Method: "mlp", Member: "alice", Comment: "first"})
			k.Offer(model.Row{Score: model.Float(0.5), Method: "mlp", Member: "alice", Comment: "second"})

			Convey("Then the first occurrence wins", func() {
				So(k.Rows()[0].Comment, ShouldEqual, "first")
			})
		})

		Convey("When a null competes with a real score", func() {
			k.Offer(model.Row{Score: model.Float(0.7), Method: "mlp", Member: "alice"})
			k.Offer(model.Row{Score: nil, Method: "mlp", Member: "alice", Comment: "Error reading CSV!"})

			Convey("Then the null wins and is stored as -inf with its comment", func() {
				r := k.Rows()[0]
				So(r.Score, ShouldNotBeNil)
				So(math.IsInf(*r.Score, -1), ShouldBeTrue)
				So(r.Comment, ShouldEqual, "Error reading CSV!")
			})
		})

		Convey("When a null row has no competitor", func() {
			k.Offer(model.Row{Score: nil, Method: "mlp", Member: "alice", Comment: "Error reading CSV!"})

			Convey("Then it stays null", func() {
				So(k.Rows()[0].Score, ShouldBeNil)
			})
		})

		Convey("When different keys are offered", func() {
			k.Offer(model.Row{Score: model.Float(0.81), Method: "mlp", Member: "alice"})
			k.Offer(model.Row{Score: model.Float(0.74), Method: "perceptron", Member: "alice"})
			k.Offer(model.Row{Score: model.Float(0.74), Method: "mlp", Member: "bob"})

			Convey("Then each keeps its own slot in first-seen order", func() {
				So(k.Size(), ShouldEqual, 3)
				rows := k.Rows()
				So(rows[0].Method, ShouldEqual, "mlp")
				So(rows[1].Method, ShouldEqual, "perceptron")
				So(rows[2].Member, ShouldEqual, "bob")
			})
		})
	})

	Convey("Given rows for one member under different methods", t, func() {
		k := dedupe.NewWorstKeeper()
		k.Offer(model.Row{Score: model.Float(0.9), Method: "mlp", Member: "alice"})
		k.Offer(model.Row{Score: model.Float(0.2), Method: "svm", Member: "alice"})

		Convey("Then each method keeps its own slot", func() {
			So(k.Size(), ShouldEqual, 2)
			So(k.Rows()[0].Method, ShouldEqual, "mlp")
			So(k.Rows()[1].Method, ShouldEqual, "svm")
		})
	})
}
