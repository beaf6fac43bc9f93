package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStubServer(t *testing.T, status int, reply string, captured *geminiRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Contains(t, r.URL.Path, "gemini-2.5-flash")

		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}

		w.WriteHeader(status)
		w.Write([]byte(reply))
	}))
}

func stubReply(text string) string {
	return `{"candidates":[{"content":{"parts":[{"text":` + mustJSON(text) + `}]}}]}`
}

func mustJSON(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

func TestGenerateReturnsFirstCandidateText(t *testing.T) {
	srv := newStubServer(t, http.StatusOK, stubReply(`{"action": "scroll", "dy": 400}`), nil)
	defer srv.Close()

	c := NewGeminiClient("test-key", "gemini-2.5-flash")
	c.baseURL = srv.URL

	out, err := c.Generate(context.Background(), "what next?")
	require.NoError(t, err)
	assert.Equal(t, `{"action": "scroll", "dy": 400}`, out)
}

func TestGenerateVisionAttachesScreenshot(t *testing.T) {
	var captured geminiRequest
	srv := newStubServer(t, http.StatusOK, stubReply("ok"), &captured)
	defer srv.Close()

	c := NewGeminiClient("test-key", "gemini-2.5-flash")
	c.baseURL = srv.URL

	img := []byte{0x89, 'P', 'N', 'G'}
	_, err := c.GenerateVision(context.Background(), "describe", img)
	require.NoError(t, err)

	require.Len(t, captured.Contents, 1)
	require.Len(t, captured.Contents[0].Parts, 2)
	assert.Equal(t, "describe", captured.Contents[0].Parts[0].Text)

	blob := captured.Contents[0].Parts[1].InlineData
	require.NotNil(t, blob)
	assert.Equal(t, "image/png", blob.MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(img), blob.Data)
}

func TestGenerateSurfacesAPIErrors(t *testing.T) {
	srv := newStubServer(t, http.StatusTooManyRequests, `{"error": "quota"}`, nil)
	defer srv.Close()

	c := NewGeminiClient("test-key", "gemini-2.5-flash")
	c.baseURL = srv.URL

	_, err := c.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestGenerateEmptyCandidatesIsAnError(t *testing.T) {
	srv := newStubServer(t, http.StatusOK, `{"candidates": []}`, nil)
	defer srv.Close()

	c := NewGeminiClient("test-key", "gemini-2.5-flash")
	c.baseURL = srv.URL

	_, err := c.Generate(context.Background(), "prompt")
	assert.Error(t, err)
}
