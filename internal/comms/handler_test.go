package comms

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzansiprolife/platform/pkg/logging"
)

func TestHandlerSend_Queues(t *testing.T) {
	sender := &captureSender{}
	d := NewDispatcher(sender, nil, 1, 4, logging.New("error"))
	h := NewHandler(d, nil, logging.New("error"))

	body := `{"to":"donor@example.com","subject":"Thank you","body":"Your kit is on its way."}`
	req := httptest.NewRequest(http.MethodPost, "/admin/comms/send", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Send(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "queued")
}

func TestHandlerSend_RequiresToAndSubject(t *testing.T) {
	d := NewDispatcher(&captureSender{}, nil, 1, 4, logging.New("error"))
	h := NewHandler(d, nil, logging.New("error"))

	body := `{"to":"not-an-email","subject":""}`
	req := httptest.NewRequest(http.MethodPost, "/admin/comms/send", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Send(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerLog_EmptyWithoutStore(t *testing.T) {
	d := NewDispatcher(&captureSender{}, nil, 1, 4, logging.New("error"))
	h := NewHandler(d, nil, logging.New("error"))

	req := httptest.NewRequest(http.MethodGet, "/admin/comms/log", nil)
	w := httptest.NewRecorder()

	h.Log(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)
}
