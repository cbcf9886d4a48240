package routeguard_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/giantswarm/sitegate/routeguard"
)

// fakeAuth is a scripted Authenticator.
type fakeAuth struct {
	mu           sync.Mutex
	checkFn      func(ctx context.Context) (bool, error)
	authFn       func(ctx context.Context, password string) error
	checkCalls   atomic.Int32
	authCalls    atomic.Int32
	lastPassword string
}

func (f *fakeAuth) CheckAuth(ctx context.Context) (bool, error) {
	f.checkCalls.Add(1)
	if f.checkFn == nil {
		return false, nil
	}
	return f.checkFn(ctx)
}

func (f *fakeAuth) Authenticate(ctx context.Context, password string) error {
	f.authCalls.Add(1)
	f.mu.Lock()
	f.lastPassword = password
	f.mu.Unlock()
	if f.authFn == nil {
		return routeguard.ErrIncorrectPassword
	}
	return f.authFn(ctx, password)
}

func testRoutes() *routeguard.Matcher {
	routes := routeguard.DefaultRoutes()
	routes.Protected = []string{"/work/mars-mission"}
	return routeguard.MustCompile(routes)
}

var _ = Describe("Guard", func() {
	var (
		ctx   context.Context
		auth  *fakeAuth
		guard *routeguard.Guard
	)

	BeforeEach(func() {
		ctx = context.Background()
		auth = &fakeAuth{}
		guard = routeguard.NewGuard(testRoutes(), auth, discardLogger())
	})

	It("starts loading", func() {
		Expect(guard.View().State).To(Equal(routeguard.StateLoading))
	})

	It("shows unprotected pages without asking the server", func() {
		view := guard.Navigate(ctx, "/about")
		Expect(view).To(Equal(routeguard.View{Path: "/about", State: routeguard.StateContent}))
		Expect(auth.checkCalls.Load()).To(BeZero())
	})

	It("hides disabled routes", func() {
		view := guard.Navigate(ctx, "/gallery")
		Expect(view.State).To(Equal(routeguard.StateRouteDisabled))
		Expect(auth.checkCalls.Load()).To(BeZero())
	})

	It("shows unknown routes so the site can 404 them", func() {
		Expect(guard.Navigate(ctx, "/nope").State).To(Equal(routeguard.StateContent))
	})

	Context("on a protected route", func() {
		It("shows content for a confirmed session", func() {
			auth.checkFn = func(context.Context) (bool, error) { return true, nil }
			Expect(guard.Navigate(ctx, "/work/mars-mission").State).To(Equal(routeguard.StateContent))
		})

		It("asks for the password without a session", func() {
			view := guard.Navigate(ctx, "/work/mars-mission")
			Expect(view.State).To(Equal(routeguard.StatePasswordRequired))
			Expect(view.Error).To(BeEmpty())
		})

		It("fails closed when the check errors", func() {
			auth.checkFn = func(context.Context) (bool, error) { return true, errors.New("network down") }
			Expect(guard.Navigate(ctx, "/work/mars-mission").State).To(Equal(routeguard.StatePasswordRequired))
		})
	})

	Context("submitting the password", func() {
		BeforeEach(func() {
			Expect(guard.Navigate(ctx, "/work/mars-mission").State).To(Equal(routeguard.StatePasswordRequired))
		})

		It("shows content on success", func() {
			auth.authFn = func(context.Context, string) error { return nil }
			view := guard.Submit(ctx, sitePassword)
			Expect(view).To(Equal(routeguard.View{Path: "/work/mars-mission", State: routeguard.StateContent}))
		})

		It("shows an inline error for an incorrect password", func() {
			view := guard.Submit(ctx, "wrong")
			Expect(view.State).To(Equal(routeguard.StatePasswordRequired))
			Expect(view.Error).To(Equal(routeguard.MessageIncorrect))
		})

		It("shows the rate limit message", func() {
			auth.authFn = func(context.Context, string) error { return routeguard.ErrTooManyAttempts }
			Expect(guard.Submit(ctx, "wrong").Error).To(Equal(routeguard.MessageTooManyAttempts))
		})

		It("shows the generic message for any other failure", func() {
			auth.authFn = func(context.Context, string) error { return routeguard.ErrServerMisconfigured }
			Expect(guard.Submit(ctx, sitePassword).Error).To(Equal(routeguard.MessageIncorrect))
		})

		It("rejects overlong passwords locally", func() {
			view := guard.Submit(ctx, strings.Repeat("a", routeguard.MaxPasswordLength+1))
			Expect(view.Error).To(Equal(routeguard.MessageIncorrect))
			Expect(auth.authCalls.Load()).To(BeZero())
		})

		It("sends a password of exactly the maximum length", func() {
			pw := strings.Repeat("a", routeguard.MaxPasswordLength)
			guard.Submit(ctx, pw)
			Expect(auth.authCalls.Load()).To(Equal(int32(1)))
			Expect(auth.lastPassword).To(Equal(pw))
		})
	})

	It("ignores submissions outside the password form", func() {
		guard.Navigate(ctx, "/about")
		view := guard.Submit(ctx, sitePassword)
		Expect(view.State).To(Equal(routeguard.StateContent))
		Expect(auth.authCalls.Load()).To(BeZero())
	})

	It("lets a newer navigation win over a pending check", func() {
		release := make(chan struct{})
		auth.checkFn = func(context.Context) (bool, error) {
			<-release
			return true, nil
		}

		done := make(chan routeguard.View, 1)
		go func() {
			defer GinkgoRecover()
			done <- guard.Navigate(ctx, "/work/mars-mission")
		}()
		Eventually(auth.checkCalls.Load).Should(Equal(int32(1)))

		Expect(guard.Navigate(ctx, "/about").State).To(Equal(routeguard.StateContent))
		close(release)

		var stale routeguard.View
		Eventually(done).Should(Receive(&stale))
		Expect(stale.Path).To(Equal("/about"))
		Expect(guard.View()).To(Equal(routeguard.View{Path: "/about", State: routeguard.StateContent}))
	})

	It("drives the real endpoints end to end", func() {
		site := newSite(sitePassword)
		DeferCleanup(site.Close)

		g := routeguard.NewGuard(testRoutes(), newClient(site.URL+"/api"), discardLogger())

		Expect(g.Navigate(ctx, "/work/mars-mission").State).To(Equal(routeguard.StatePasswordRequired))
		Expect(g.Submit(ctx, "wrong").Error).To(Equal(routeguard.MessageIncorrect))
		Expect(g.Submit(ctx, sitePassword).State).To(Equal(routeguard.StateContent))

		Expect(g.Navigate(ctx, "/about").State).To(Equal(routeguard.StateContent))
		Expect(g.Navigate(ctx, "/work/mars-mission").State).To(Equal(routeguard.StateContent))
	})
})
