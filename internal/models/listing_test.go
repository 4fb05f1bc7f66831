package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListingFromResponse_TrustsBackendPages(t *testing.T) {
	t.Parallel()

	got := ListingFromResponse(&CompanyListResponse{
		Companies: []Company{{ID: 1}, {ID: 2}},
		Total:     20,
		Pages:     3,
	})

	require.Len(t, got.Items, 2)
	require.Equal(t, 20, got.TotalItems)
	require.Equal(t, 3, got.TotalPages, "pages must not be recomputed from total")
}

func TestListingFromResponse_EmptyHasOnePage(t *testing.T) {
	t.Parallel()

	got := ListingFromResponse(&CompanyListResponse{Pages: 0})
	require.Equal(t, 1, got.TotalPages)
	require.NotNil(t, got.Items)
	require.Empty(t, got.Items)

	require.Equal(t, 1, ListingFromResponse(nil).TotalPages)
}

func TestCompany_OwnedBy(t *testing.T) {
	t.Parallel()

	c := &Company{ID: 7, UserID: 42}
	require.True(t, c.OwnedBy(&Identity{ID: 42}))
	require.False(t, c.OwnedBy(&Identity{ID: 1}))
	require.False(t, c.OwnedBy(nil))

	var none *Company
	require.False(t, none.OwnedBy(&Identity{ID: 42}))
}

func TestAuthResponse_Complete(t *testing.T) {
	t.Parallel()

	require.True(t, (&AuthResponse{User: &Identity{ID: 1}, AccessToken: "t"}).Complete())
	require.False(t, (&AuthResponse{User: &Identity{ID: 1}}).Complete())
	require.False(t, (&AuthResponse{AccessToken: "t"}).Complete())

	var none *AuthResponse
	require.False(t, none.Complete())
}
