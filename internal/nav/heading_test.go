package nav_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/motionctl/internal/motor"
	"github.com/san-kum/motionctl/internal/nav"
)

var _ = Describe("Heading arithmetic", func() {
	DescribeTable("Normalize",
		func(in, want float64) {
			Expect(nav.Normalize(in)).To(BeNumerically("~", want, 1e-9))
		},
		Entry("in range", 90.0, 90.0),
		Entry("full turn", 360.0, 0.0),
		Entry("negative", -90.0, 270.0),
		Entry("several turns", 1085.0, 5.0),
		Entry("negative rounding to a full turn", -1e-20, 0.0),
	)

	DescribeTable("Delta takes the shorter arc",
		func(from, to, want float64) {
			Expect(nav.Delta(from, to)).To(BeNumerically("~", want, 1e-9))
		},
		Entry("clockwise", 0.0, 90.0, 90.0),
		Entry("anticlockwise", 90.0, 0.0, -90.0),
		Entry("across north clockwise", 350.0, 10.0, 20.0),
		Entry("across north anticlockwise", 10.0, 350.0, -20.0),
		Entry("opposite", 0.0, 180.0, 180.0),
		Entry("opposite reversed", 180.0, 0.0, 180.0),
	)

	DescribeTable("RotationToward",
		func(from, to float64, want motor.Rotation) {
			Expect(nav.RotationToward(from, to)).To(Equal(want))
		},
		Entry("target clockwise", 0.0, 90.0, motor.Right),
		Entry("target anticlockwise", 90.0, 0.0, motor.Left),
		Entry("across north", 355.0, 5.0, motor.Right),
		Entry("across north reversed", 5.0, 355.0, motor.Left),
	)

	It("matches within epsilon across the 0/360 boundary", func() {
		Expect(nav.Within(359.7, 0.1, 0.5)).To(BeTrue())
		Expect(nav.Within(0.2, 359.8, 0.5)).To(BeTrue())
		Expect(nav.Within(359.4, 0.2, 0.5)).To(BeFalse())
	})
})

var _ = Describe("Path", func() {
	It("rejects headings outside [0, 360)", func() {
		Expect(nav.Path{0, 90, 360}.Validate()).To(MatchError(nav.ErrInvalidPath))
		Expect(nav.Path{-1}.Validate()).To(MatchError(nav.ErrInvalidPath))
		Expect(nav.Path{0, 359.9}.Validate()).To(Succeed())
	})

	It("parses a comma separated list", func() {
		p, err := nav.ParsePath("0, 0,90 ,180.5")
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(nav.Path{0, 0, 90, 180.5}))
		Expect(p.String()).To(Equal("0,0,90,180.5"))

		p, err = nav.ParsePath("")
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeEmpty())

		_, err = nav.ParsePath("0,north")
		Expect(err).To(MatchError(nav.ErrInvalidPath))
	})

	It("groups equal headings into segments", func() {
		segs := nav.Path{0, 0, 90, 90, 90, 0}.Segments(0.5)
		Expect(segs).To(Equal([]nav.Segment{
			{Heading: 0, First: 0, Squares: 2},
			{Heading: 90, First: 2, Squares: 3},
			{Heading: 0, First: 5, Squares: 1},
		}))
	})
})
