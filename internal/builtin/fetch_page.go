package builtin

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/cerebricks/mailagent/internal/mcp"
)

const (
	fetchUserAgent   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_7_2) AppleWebKit/537.36"
	fetchMaxRedirect = 5
	fetchMaxChars    = 50000
)

type fetchPageArgs struct {
	URL      string `json:"url" jsonschema:"description=URL to fetch"`
	MaxChars int    `json:"max_chars,omitempty" jsonschema:"description=Truncate extracted text to this many characters"`
}

type fetchPageTool struct {
	httpClient *http.Client
	schema     []byte
}

// NewFetchPageTool returns a tool that fetches a URL and extracts its
// readable content, so email bodies can quote page text instead of raw HTML.
func NewFetchPageTool() mcp.Handler {
	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= fetchMaxRedirect {
				return fmt.Errorf("stopped after %d redirects", fetchMaxRedirect)
			}
			return nil
		},
	}
	return &fetchPageTool{
		httpClient: client,
		schema:     schemaFor(fetchPageArgs{}),
	}
}

func (t *fetchPageTool) Info() mcp.ToolInfo {
	return mcp.ToolInfo{
		Name:        "fetch_page",
		Description: "Fetch a web page and return its readable text content.",
		InputSchema: t.schema,
	}
}

func (t *fetchPageTool) Handle(ctx context.Context, args map[string]any) (string, error) {
	var in fetchPageArgs
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	if in.URL == "" {
		return "", fmt.Errorf("url is required")
	}
	parsed, err := url.Parse(in.URL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("only http/https allowed, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("missing domain in URL")
	}

	maxChars := in.MaxChars
	if maxChars <= 0 {
		maxChars = fetchMaxChars
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, in.URL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", in.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %s: status %d", in.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", in.URL, err)
	}

	text := string(body)
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		article, err := readability.FromReader(bytes.NewReader(body), parsed)
		if err == nil && strings.TrimSpace(article.TextContent) != "" {
			text = article.TextContent
			if article.Title != "" {
				text = article.Title + "\n\n" + text
			}
		} else {
			// Fallback: just strip tags.
			text = stripTags(string(body))
		}
	}

	text = strings.TrimSpace(text)
	if len(text) > maxChars {
		text = text[:maxChars]
	}
	return text, nil
}

var (
	reScript = regexp.MustCompile(`(?is)<script[\s\S]*?</script>`)
	reStyle  = regexp.MustCompile(`(?is)<style[\s\S]*?</style>`)
	reTags   = regexp.MustCompile(`<[^>]+>`)
	reSpaces = regexp.MustCompile(`[ \t]+`)
)

func stripTags(s string) string {
	s = reScript.ReplaceAllString(s, "")
	s = reStyle.ReplaceAllString(s, "")
	s = reTags.ReplaceAllString(s, " ")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
