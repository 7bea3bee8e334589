package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/modelverse/weblab/cmd/weblab/models"
)

func callWithHeader(t *testing.T, userID string) models.User {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got models.User
	handler := ExtractUser()(func(c echo.Context) error {
		got = GetUser(c)
		return nil
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	return got
}

func TestExtractUserWithHeader(t *testing.T) {
	user := callWithHeader(t, "alice")
	if !user.Authenticated || user.ID != "alice" {
		t.Errorf("got %+v, want authenticated alice", user)
	}
}

func TestExtractUserAnonymous(t *testing.T) {
	user := callWithHeader(t, "")
	if user.Authenticated || user.ID != "" {
		t.Errorf("got %+v, want anonymous", user)
	}
}
