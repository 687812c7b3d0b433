package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, target string, body []byte) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return w, c
}

func TestConnectionHandlerInviteInvalidBody(t *testing.T) {
	handler := NewConnectionHandler(nil)
	w, c := postJSON(t, "/connections/invite", []byte(`not json`))

	handler.Invite(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConnectionHandlerRequestInvalidBody(t *testing.T) {
	handler := NewConnectionHandler(nil)
	w, c := postJSON(t, "/connections/request", []byte(`{`))

	handler.Request(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConnectionHandlerShareInvalidBody(t *testing.T) {
	handler := NewConnectionHandler(nil)
	w, c := postJSON(t, "/connections/share", []byte(``))

	handler.Share(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConnectionHandlerRespondInvalidBody(t *testing.T) {
	handler := NewConnectionHandler(nil)
	w, c := postJSON(t, "/connections/edge-1/respond", []byte(`not json`))
	c.Params = gin.Params{{Key: "id", Value: "edge-1"}}

	handler.Respond(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
