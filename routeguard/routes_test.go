package routeguard_test

import (
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/giantswarm/sitegate/routeguard"
)

var _ = Describe("Matcher", func() {
	var matcher *routeguard.Matcher

	BeforeEach(func() {
		routes := routeguard.DefaultRoutes()
		routes.Protected = []string{"/work/mars-*", "/private/**"}
		matcher = routeguard.MustCompile(routes)
	})

	DescribeTable("Enabled",
		func(path string, want bool) {
			Expect(matcher.Enabled(path)).To(Equal(want))
		},
		Entry("root", "/", true),
		Entry("exact enabled route", "/about", true),
		Entry("exact disabled route", "/gallery", false),
		Entry("dynamic prefix root", "/blog", true),
		Entry("post under enabled prefix", "/blog/hello-world", true),
		Entry("nested path under enabled prefix", "/work/mars-mission/gallery", true),
		Entry("sub-path of disabled page without prefix", "/gallery/2024", true),
		Entry("unknown route passes through", "/does-not-exist", true),
		Entry("prefix match is per segment", "/blogger", true),
	)

	It("disables sub-paths of a disabled dynamic prefix", func() {
		m := routeguard.MustCompile(routeguard.Routes{
			Enabled:         map[string]bool{"/blog": false},
			DynamicPrefixes: []string{"/blog"},
		})
		Expect(m.Enabled("/blog/draft")).To(BeFalse())
	})

	It("treats a dynamic prefix without an entry as disabled", func() {
		m := routeguard.MustCompile(routeguard.Routes{DynamicPrefixes: []string{"/notes/"}})
		Expect(m.Enabled("/notes/one")).To(BeFalse())
		Expect(m.Enabled("/other")).To(BeTrue())
	})

	DescribeTable("Protected",
		func(path string, want bool) {
			Expect(matcher.Protected(path)).To(Equal(want))
		},
		Entry("glob match", "/work/mars-mission", true),
		Entry("single star stops at separator", "/work/mars-mission/details", false),
		Entry("double star crosses separators", "/private/a/b/c", true),
		Entry("unprotected page", "/work/other", false),
		Entry("root", "/", false),
	)

	It("protects nothing by default", func() {
		m := routeguard.MustCompile(routeguard.DefaultRoutes())
		Expect(m.Protected("/work/mars-mission")).To(BeFalse())
	})

	It("rejects invalid glob patterns", func() {
		_, err := routeguard.Compile(routeguard.Routes{Protected: []string{"/work/[unclosed"}})
		Expect(err).To(HaveOccurred())
	})

	It("rejects empty dynamic prefixes", func() {
		_, err := routeguard.Compile(routeguard.Routes{DynamicPrefixes: []string{"/"}})
		Expect(err).To(HaveOccurred())
	})
})
