package product

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func TestCatalogClientQuery(t *testing.T) {
	testCases := []struct {
		name      string
		status    int
		body      string
		wantIDs   []string
		wantError bool
	}{
		{
			name:    "ok",
			status:  http.StatusOK,
			body:    `{"code":0,"message":"","data":[{"productId":"P1","title":"coins"},{"productId":"P2"}]}`,
			wantIDs: []string{"P1", "P2"},
		},
		{
			name:    "empty",
			status:  http.StatusOK,
			body:    `{"code":0,"data":[]}`,
			wantIDs: []string{},
		},
		{
			name:      "error code",
			status:    http.StatusOK,
			body:      `{"code":3,"message":"unknown app"}`,
			wantError: true,
		},
		{
			name:      "server error",
			status:    http.StatusBadGateway,
			body:      `bad gateway`,
			wantError: true,
		},
		{
			name:      "garbage",
			status:    http.StatusOK,
			body:      `<html>`,
			wantError: true,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			var gotIDs string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotIDs = r.URL.Query().Get("ids")
				w.WriteHeader(test.status)
				_, _ = w.Write([]byte(test.body))
			}))
			defer srv.Close()

			c := NewCatalogClient(srv.URL+"/", 2*time.Second)
			products, err := c.Query(context.Background(), []string{"P1", "P2"})
			assert.Equal(t, "P1,P2", gotIDs)
			if test.wantError {
				assert.Assert(t, err != nil)
				return
			}
			assert.NilError(t, err)
			assert.Equal(t, len(test.wantIDs), len(products))
			for i, id := range test.wantIDs {
				assert.Equal(t, id, products[i].ID)
			}
		})
	}
}
