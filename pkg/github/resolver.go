package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	gh "github.com/google/go-github/v28/github"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	ditcmetrics "github.com/kooba/ditc-deployer/pkg/metrics"
)

// TagResolver maps a release tag to the commit it points at.
type TagResolver interface {
	ResolveTag(ctx context.Context, tag string) (string, error)
}

// TagResolutionError is returned when the API answers with anything
// other than a 2xx. The body is kept verbatim; it is usually the most
// useful thing to show.
type TagResolutionError struct {
	Tag        string
	StatusCode int
	Status     string
	Body       string
}

func (err *TagResolutionError) Error() string {
	return fmt.Sprintf("resolving tag %q: %s (%s)", err.Tag, err.Status, err.Body)
}

func (err *TagResolutionError) ResponseBody() string {
	return err.Body
}

// Client resolves tags against the git refs API of a single
// repository, e.g., https://api.github.com/repos/kooba/ditc-gateway.
type Client struct {
	baseURL string
	client  *http.Client
	logger  log.Logger
}

var _ TagResolver = &Client{}

// NewClient returns a client for the repository API at baseURL. The
// token, if given, is sent as `Authorization: token <token>`.
func NewClient(baseURL, token string, logger log.Logger) *Client {
	hc := http.DefaultClient
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token, TokenType: "token"},
		)
		hc = oauth2.NewClient(context.Background(), ts)
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  hc,
		logger:  logger,
	}
}

// ResolveTag makes a single request for refs/tags/<tag>; there is no
// retry.
func (c *Client) ResolveTag(ctx context.Context, tag string) (sha string, err error) {
	defer func(start time.Time) {
		resolveDuration.With(
			ditcmetrics.LabelSuccess, fmt.Sprint(err == nil),
		).Observe(time.Since(start).Seconds())
	}(time.Now())

	c.logger.Log("info", "getting commit sha for tag", "tag", tag)
	u := fmt.Sprintf("%s/git/refs/tags/%s", c.baseURL, escapeRef(tag))
	req, err := http.NewRequest("GET", u, nil)
	if err != nil {
		return "", errors.Wrapf(err, "constructing request %s", u)
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "requesting %s", u)
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "reading response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &TagResolutionError{
			Tag:        tag,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	// When there's no ref with exactly this name, the API lists
	// those it is a prefix of instead.
	if bytes.HasPrefix(bytes.TrimSpace(body), []byte("[")) {
		return "", fmt.Errorf("no tag named exactly %q; the API returned a list of partial matches", tag)
	}
	var ref gh.Reference
	if err := json.Unmarshal(body, &ref); err != nil {
		return "", errors.Wrap(err, "decoding git ref")
	}
	sha = ref.GetObject().GetSHA()
	if sha == "" {
		return "", fmt.Errorf("git ref for tag %q has no object sha", tag)
	}
	return sha, nil
}

// escapeRef escapes each part of a ref name for a URL path. Ref
// names may contain `#` and `?`, but not empty parts.
func escapeRef(ref string) string {
	parts := strings.Split(ref, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// Memoize returns a resolver that asks the one given only once per
// tag. It is meant to live for the duration of a single event.
func Memoize(r TagResolver) TagResolver {
	return &memoResolver{resolver: r, shas: map[string]string{}}
}

type memoResolver struct {
	resolver TagResolver
	mu       sync.Mutex
	shas     map[string]string
}

func (m *memoResolver) ResolveTag(ctx context.Context, tag string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sha, ok := m.shas[tag]; ok {
		return sha, nil
	}
	sha, err := m.resolver.ResolveTag(ctx, tag)
	if err != nil {
		return "", err
	}
	m.shas[tag] = sha
	return sha, nil
}
