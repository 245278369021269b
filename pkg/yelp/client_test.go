package yelp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/businesses/search", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "Joe's Pizza", r.URL.Query().Get("term"))
		assert.Equal(t, "Philadelphia", r.URL.Query().Get("location"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SearchResponse{
			Total:      1,
			Businesses: []Business{{ID: "joes-pizza-philadelphia", Name: "Joe's Pizza"}},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.Search(context.Background(), "Joe's Pizza", "Philadelphia", 1)

	require.NoError(t, err)
	require.Len(t, resp.Businesses, 1)
	assert.Equal(t, "joes-pizza-philadelphia", resp.Businesses[0].ID)
}

func TestBusiness_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/businesses/joes-pizza", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "joes-pizza",
			"url": "https://www.yelp.com/biz/joes-pizza",
			"image_url": "https://s3-media.fl.yelpcdn.com/bphoto/abc/o.jpg",
			"photos": ["https://s3-media.fl.yelpcdn.com/bphoto/abc/o.jpg", "https://s3-media.fl.yelpcdn.com/bphoto/def/o.jpg"],
			"rating": 4.5,
			"review_count": 320,
			"price": "$$",
			"categories": [{"alias": "pizza", "title": "Pizza"}, {"alias": "italian", "title": "Italian"}]
		}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	biz, err := client.Business(context.Background(), "joes-pizza")

	require.NoError(t, err)
	assert.Equal(t, "https://www.yelp.com/biz/joes-pizza", biz.URL)
	assert.Len(t, biz.Photos, 2)
	assert.InDelta(t, 4.5, biz.Rating, 0.001)
	assert.Equal(t, 320, biz.ReviewCount)
	assert.Equal(t, "$$", biz.Price)
	assert.Equal(t, []string{"Pizza", "Italian"}, biz.CategoryTitles())
}

func TestBusiness_EmptyID(t *testing.T) {
	client := NewClient("test-key")
	_, err := client.Business(context.Background(), "")
	assert.Error(t, err)
}

func TestSearch_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"code": "TOKEN_INVALID"}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient("bad-key", WithBaseURL(srv.URL))
	resp, err := client.Search(context.Background(), "x", "y", 1)

	assert.Nil(t, resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSearch_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.Search(context.Background(), "x", "y", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}
