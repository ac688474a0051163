package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSRFMeta(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "meta in head",
			doc:  `<html><head><meta charset="utf-8"><meta name="csrf-token" content="abc"></head></html>`,
			want: "abc",
		},
		{
			name: "case insensitive name",
			doc:  `<html><head><meta NAME="CSRF-Token" content="xyz"></head></html>`,
			want: "xyz",
		},
		{
			name: "missing tag yields empty token",
			doc:  `<html><head><title>Dashboard</title></head></html>`,
			want: "",
		},
		{
			name: "fragment without head",
			doc:  `<meta name="csrf-token" content="frag">`,
			want: "frag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCSRFMeta(strings.NewReader(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPageToken_InvalidateRefetches(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = w.Write([]byte(`<meta name="csrf-token" content="t">`))
	}))
	defer srv.Close()

	p := NewPageToken(srv.Client(), srv.URL)
	_, err := p.Token(context.Background())
	require.NoError(t, err)
	_, err = p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, hits)

	p.Invalidate()
	tok, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t", tok)
	assert.Equal(t, 2, hits)
}

func TestPageToken_PageError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewPageToken(srv.Client(), srv.URL)
	_, err := p.Token(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestStaticToken(t *testing.T) {
	tok, err := StaticToken("s").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "s", tok)
}
