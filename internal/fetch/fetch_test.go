package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURL_FetchesAndExtracts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<nav>Home About Careers</nav>
			<main>
				<h1>Open Positions</h1>
				<p>Machine Learning Engineer</p>
				<p>Smart Contract Auditor</p>
			</main>
			<footer>Copyright</footer>
		</body></html>`))
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Contains(t, result.Text, "Machine Learning Engineer")
	assert.Contains(t, result.Text, "Smart Contract Auditor")
	assert.NotContains(t, result.Text, "Copyright")
	assert.NotContains(t, result.Text, "Home About Careers")
}

func TestURL_InvalidURL(t *testing.T) {
	_, err := URL(context.Background(), "not-a-url", nil)
	require.Error(t, err)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "not-a-url", fetchErr.URL)
}

func TestURL_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, nil)
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, http.StatusNotFound, result.StatusCode)
}

func TestExtractMainText_SelectorPriority(t *testing.T) {
	html := `<html><body>
		<div class="job-description">The real description</div>
		<main>Fallback content</main>
	</body></html>`

	text, err := ExtractMainText(html, JobPageSelectors())
	require.NoError(t, err)
	assert.Equal(t, "The real description", text)
}

func TestExtractMainText_BodyFallback(t *testing.T) {
	html := `<html><body><div>Plain content</div></body></html>`

	text, err := ExtractMainText(html, JobPageSelectors())
	require.NoError(t, err)
	assert.Equal(t, "Plain content", text)
}

func TestCleanWhitespace(t *testing.T) {
	input := "  line one  \n\n\n   line two\n   \n"
	assert.Equal(t, "line one\nline two", cleanWhitespace(input))
}

func TestShouldUseBrowser(t *testing.T) {
	assert.True(t, ShouldUseBrowser("short"))
	assert.True(t, ShouldUseBrowser("   "))
	assert.False(t, ShouldUseBrowser(strings.Repeat("content ", 100)))
}
