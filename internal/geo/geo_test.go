package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubResolver(t *testing.T, handler http.HandlerFunc) *Resolver {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewResolver(WithEndpoint(srv.URL), WithClient(srv.Client()))
}

func TestResolveCountry_EmptyIP(t *testing.T) {
	r := NewResolver()
	assert.Nil(t, r.ResolveCountry(context.Background(), ""))
}

func TestResolveCountry_Loopback(t *testing.T) {
	r := NewResolver()

	for _, ip := range []string{"127.0.0.1", "::1", "localhost"} {
		got := r.ResolveCountry(context.Background(), ip)
		require.NotNil(t, got, "loopback %s", ip)
		assert.Equal(t, "US", *got)
	}
}

func TestResolveCountry_LoopbackPlaceholderDisabled(t *testing.T) {
	r := NewResolver(WithLoopbackCountry(""))
	assert.Nil(t, r.ResolveCountry(context.Background(), "127.0.0.1"))
}

func TestResolveCountry_PrivateRanges(t *testing.T) {
	// Private addresses never reach the network.
	r := stubResolver(t, func(w http.ResponseWriter, req *http.Request) {
		t.Errorf("unexpected lookup for %s", req.URL.Path)
	})

	for _, ip := range []string{"10.0.0.1", "172.16.0.1", "192.168.1.1"} {
		assert.Nil(t, r.ResolveCountry(context.Background(), ip))
	}
}

func TestResolveCountry_Success(t *testing.T) {
	r := stubResolver(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/json/8.8.8.8", req.URL.Path)
		assert.Equal(t, "countryCode", req.URL.Query().Get("fields"))
		w.Write([]byte(`{"countryCode":"GB"}`))
	})

	got := r.ResolveCountry(context.Background(), "8.8.8.8")
	require.NotNil(t, got)
	assert.Equal(t, "GB", *got)
}

func TestResolveCountry_UppercasesCode(t *testing.T) {
	r := stubResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"countryCode":"gb"}`))
	})

	got := r.ResolveCountry(context.Background(), "8.8.8.8")
	require.NotNil(t, got)
	assert.Equal(t, "GB", *got)
}

func TestResolveCountry_RejectsNonTwoLetterCode(t *testing.T) {
	r := stubResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"countryCode":"USA"}`))
	})

	assert.Nil(t, r.ResolveCountry(context.Background(), "8.8.8.8"))
}

func TestResolveCountry_RejectsMissingField(t *testing.T) {
	// ip-api reports failures with a 200 and a status field.
	r := stubResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"status":"fail","message":"invalid query"}`))
	})

	assert.Nil(t, r.ResolveCountry(context.Background(), "8.8.8.8"))
}

func TestResolveCountry_ServerError(t *testing.T) {
	r := stubResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	assert.Nil(t, r.ResolveCountry(context.Background(), "8.8.8.8"))
}

func TestResolveCountry_MalformedBody(t *testing.T) {
	r := stubResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`not json`))
	})

	assert.Nil(t, r.ResolveCountry(context.Background(), "8.8.8.8"))
}

func TestResolveCountry_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on

	r := NewResolver(WithEndpoint(srv.URL), WithClient(&http.Client{Timeout: time.Second}))
	assert.Nil(t, r.ResolveCountry(context.Background(), "8.8.8.8"))
}

func TestResolveCountry_Timeout(t *testing.T) {
	r := stubResolver(t, func(w http.ResponseWriter, req *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"countryCode":"GB"}`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.Nil(t, r.ResolveCountry(ctx, "8.8.8.8"))
}
