package routeguard_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/giantswarm/sitegate"
	"github.com/giantswarm/sitegate/routeguard"
)

const sitePassword = "correct horse battery staple"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newSite starts the real endpoints behind an httptest server.
func newSite(secret string) *httptest.Server {
	srv, err := sitegate.NewServer(&sitegate.Config{
		Secret: secret,
		Logger: discardLogger(),
	})
	Expect(err).NotTo(HaveOccurred())

	mux := http.NewServeMux()
	sitegate.NewHandler(srv, nil).RegisterRoutes(mux)
	return httptest.NewServer(mux)
}

func newClient(baseURL string) *routeguard.Client {
	client, err := routeguard.NewClient(routeguard.ClientConfig{
		BaseURL:   baseURL,
		RetryBase: time.Millisecond,
		Logger:    discardLogger(),
	})
	Expect(err).NotTo(HaveOccurred())
	return client
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

var _ = Describe("Client", func() {
	var (
		ctx  context.Context
		site *httptest.Server
	)

	BeforeEach(func() {
		ctx = context.Background()
	})

	AfterEach(func() {
		if site != nil {
			site.Close()
			site = nil
		}
	})

	It("requires a base URL", func() {
		_, err := routeguard.NewClient(routeguard.ClientConfig{})
		Expect(err).To(HaveOccurred())
	})

	Context("against the session endpoints", func() {
		var client *routeguard.Client

		BeforeEach(func() {
			site = newSite(sitePassword)
			client = newClient(site.URL + "/api")
		})

		It("is not authenticated without a session", func() {
			ok, err := client.CheckAuth(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("rejects an incorrect password", func() {
			err := client.Authenticate(ctx, "wrong")
			Expect(errors.Is(err, routeguard.ErrIncorrectPassword)).To(BeTrue())
		})

		It("keeps the session cookie after authenticating", func() {
			Expect(client.Authenticate(ctx, sitePassword)).To(Succeed())

			ok, err := client.CheckAuth(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("does not share sessions between clients", func() {
			Expect(client.Authenticate(ctx, sitePassword)).To(Succeed())

			other := newClient(site.URL + "/api")
			ok, err := other.CheckAuth(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("reports too many attempts after five failures", func() {
			for i := 0; i < 5; i++ {
				Expect(errors.Is(client.Authenticate(ctx, "wrong"), routeguard.ErrIncorrectPassword)).To(BeTrue())
			}
			err := client.Authenticate(ctx, sitePassword)
			Expect(errors.Is(err, routeguard.ErrTooManyAttempts)).To(BeTrue())
		})
	})

	It("reports a misconfigured server", func() {
		site = newSite("")
		client := newClient(site.URL + "/api")

		err := client.Authenticate(ctx, sitePassword)
		Expect(errors.Is(err, routeguard.ErrServerMisconfigured)).To(BeTrue())
	})

	Context("when a fallback page answers every path", func() {
		var client *routeguard.Client

		BeforeEach(func() {
			site = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(http.StatusOK)
				_, _ = io.WriteString(w, "<!DOCTYPE html><html><body>app</body></html>")
			}))
			client = newClient(site.URL + "/api")
		})

		It("is not authenticated by a 200 HTML response", func() {
			ok, err := client.CheckAuth(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("does not treat a 200 HTML response as a successful login", func() {
			err := client.Authenticate(ctx, sitePassword)
			Expect(errors.Is(err, routeguard.ErrUnexpectedResponse)).To(BeTrue())
		})
	})

	It("is not authenticated by a JSON body with authenticated false", func() {
		site = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"authenticated":false}`)
		}))
		ok, err := newClient(site.URL).CheckAuth(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	Context("with transport failures", func() {
		var attempts atomic.Int32

		BeforeEach(func() {
			attempts.Store(0)
		})

		newFlakyClient := func(failures int32) *routeguard.Client {
			transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
				n := attempts.Add(1)
				if n <= failures {
					return nil, errors.New("connection reset by peer")
				}
				return &http.Response{
					StatusCode: http.StatusOK,
					Header:     http.Header{"Content-Type": []string{"application/json"}},
					Body:       io.NopCloser(strings.NewReader(`{"authenticated":true}`)),
					Request:    r,
				}, nil
			})
			client, err := routeguard.NewClient(routeguard.ClientConfig{
				BaseURL:    "http://site.invalid/api",
				HTTPClient: &http.Client{Transport: transport},
				RetryBase:  time.Millisecond,
				Logger:     discardLogger(),
			})
			Expect(err).NotTo(HaveOccurred())
			return client
		}

		It("retries until a response arrives", func() {
			ok, err := newFlakyClient(2).CheckAuth(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(attempts.Load()).To(Equal(int32(3)))
		})

		It("gives up after three attempts", func() {
			ok, err := newFlakyClient(10).CheckAuth(ctx)
			Expect(err).To(HaveOccurred())
			Expect(ok).To(BeFalse())
			Expect(attempts.Load()).To(Equal(int32(3)))
		})

		It("sends a password submission only once", func() {
			err := newFlakyClient(1).Authenticate(ctx, sitePassword)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, routeguard.ErrIncorrectPassword)).To(BeFalse())
			Expect(attempts.Load()).To(Equal(int32(1)))
		})

		It("never retries an HTTP status", func() {
			site = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				attempts.Add(1)
				w.WriteHeader(http.StatusServiceUnavailable)
			}))
			err := newClient(site.URL).Authenticate(ctx, sitePassword)
			Expect(errors.Is(err, routeguard.ErrUnexpectedResponse)).To(BeTrue())
			Expect(attempts.Load()).To(Equal(int32(1)))
		})
	})
})
