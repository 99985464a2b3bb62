package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
)

func TestSinkStoresInOrder(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, crawler.Record{URL: "https://a.example/"}))
	require.NoError(t, s.Insert(ctx, crawler.Record{URL: "https://b.example/"}))

	got := s.Records()
	require.Len(t, got, 2)
	require.Equal(t, "https://a.example/", got[0].URL)

	got[0].URL = "mutated"
	require.Equal(t, "https://a.example/", s.Records()[0].URL, "records are copied")
}

func TestSinkFailFor(t *testing.T) {
	t.Parallel()

	s := New()
	s.FailFor("https://bad.example/")
	require.ErrorIs(t, s.Insert(context.Background(), crawler.Record{URL: "https://bad.example/"}), ErrInjected)
	require.Zero(t, s.Len())
}
