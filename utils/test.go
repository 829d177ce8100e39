package utils

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRequest represents a test HTTP request
type TestRequest struct {
	Method  string
	Path    string
	Body    interface{}
	Token   string
	Headers map[string]string
}

// TestResponse represents a test HTTP response
type TestResponse struct {
	StatusCode int
	Raw        []byte
	Header     http.Header
	Body       map[string]interface{}
}

// MakeTestRequest serves req through router and decodes the JSON response
func MakeTestRequest(t *testing.T, router http.Handler, req TestRequest) TestResponse {
	t.Helper()

	var body []byte
	if req.Body != nil {
		var err error
		body, err = json.Marshal(req.Body)
		require.NoError(t, err, "marshal request body")
	}

	httpReq, err := http.NewRequest(req.Method, req.Path, bytes.NewReader(body))
	require.NoError(t, err, "create request")

	httpReq.Header.Set("Content-Type", "application/json")
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httpReq)

	var responseBody map[string]interface{}
	if raw := bytes.TrimSpace(w.Body.Bytes()); len(raw) > 0 && raw[0] == '{' && json.Valid(raw) {
		require.NoError(t, json.Unmarshal(raw, &responseBody))
	}

	return TestResponse{
		StatusCode: w.Code,
		Raw:        w.Body.Bytes(),
		Header:     w.Header(),
		Body:       responseBody,
	}
}

// AssertResponse asserts the status code and, when given, the decoded body
func AssertResponse(t *testing.T, response TestResponse, expectedStatusCode int, expectedBody map[string]interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatusCode, response.StatusCode, string(response.Raw))
	if expectedBody != nil {
		assert.Equal(t, expectedBody, response.Body)
	}
}

// NewTestRouter returns a gin engine in test mode with the request ID middleware
func NewTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	return r
}
