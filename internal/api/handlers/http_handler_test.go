package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"auction-node/internal/domain"
	"auction-node/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*echo.Echo, *fakeBroadcaster) {
	t.Helper()
	core, broadcaster, _ := newTestHandler(t)

	e := echo.New()
	NewHTTPHandler(core, logger.NewNop()).Register(e.Group("/api/v1"))
	return e, broadcaster
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHTTP_CreateAndReadAuction(t *testing.T) {
	e, broadcaster := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/api/v1/auctions",
		`{"auctionId":"a1","item":"Pic#1","startingBid":75}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(e, http.MethodGet, "/api/v1/auctions/a1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var auction domain.Auction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auction))
	assert.Equal(t, "Pic#1", auction.Item)
	assert.Equal(t, domain.AuctionOpen, auction.Status)

	assert.Len(t, broadcaster.recorded(), 1, "HTTP mutations broadcast like RPC ones")
}

func TestHTTP_StatusMapping(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/api/v1/auctions",
		`{"auctionId":"a1","item":"Pic#1","startingBid":75}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		kind   domain.ErrorKind
	}{
		{"missing fields", http.MethodPost, "/api/v1/auctions",
			`{"item":"x"}`, http.StatusBadRequest, domain.KindMalformedRequest},
		{"duplicate auction", http.MethodPost, "/api/v1/auctions",
			`{"auctionId":"a1","item":"x","startingBid":1}`, http.StatusConflict, domain.KindDuplicateAuction},
		{"invalid bid", http.MethodPost, "/api/v1/auctions/a1/bids",
			`{"bidder":"","amount":1}`, http.StatusBadRequest, domain.KindInvalidArgument},
		{"unknown auction", http.MethodPost, "/api/v1/auctions/ghost/bids",
			`{"bidder":"b","amount":1}`, http.StatusNotFound, domain.KindAuctionNotFound},
		{"read unknown auction", http.MethodGet, "/api/v1/auctions/ghost",
			"", http.StatusNotFound, domain.KindAuctionNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(e, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, string(tt.kind), body["kind"])
		})
	}
}

func TestHTTP_CloseAuction(t *testing.T) {
	e, _ := newTestServer(t)

	doJSON(e, http.MethodPost, "/api/v1/auctions", `{"auctionId":"a1","item":"Pic#1","startingBid":75}`)
	doJSON(e, http.MethodPost, "/api/v1/auctions/a1/bids", `{"bidder":"c2","amount":75.5}`)

	rec := doJSON(e, http.MethodPost, "/api/v1/auctions/a1/close", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var auction domain.Auction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auction))
	assert.Equal(t, domain.AuctionClosed, auction.Status)
	require.NotNil(t, auction.Winner)
	assert.Equal(t, "c2", auction.Winner.Bidder)

	rec = doJSON(e, http.MethodPost, "/api/v1/auctions/a1/close", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}
