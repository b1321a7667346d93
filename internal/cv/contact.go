package cv

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	pkghttp "name-origin/pkg/http"
)

var (
	namePattern     = regexp.MustCompile(`([A-Z][a-z]+(?:\s[A-Z][a-z]+)+)`)
	emailPattern    = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern    = regexp.MustCompile(`(\+\d{1,4}\s?\d{7,14})`)
	addressPattern  = regexp.MustCompile(`[A-Za-z0-9\s,.-]+(?:,\s[A-Za-z\s]+)+`)
	githubPattern   = regexp.MustCompile(`https?://(?:www\.)?github\.com/[a-zA-Z0-9_-]+`)
	linkedinPattern = regexp.MustCompile(`https?://(?:www\.)?linkedin\.com/in/[a-zA-Z0-9_-]+`)
)

// Contact is the first match of each field in a resume. Empty means not found.
// GitHubLinks and LinkedInLinks hold every distinct profile URL in order of
// appearance.
type Contact struct {
	Name           string   `json:"name,omitempty"`
	Address        string   `json:"address,omitempty"`
	PrimaryPhone   string   `json:"primary_phone,omitempty"`
	SecondaryPhone string   `json:"secondary_phone,omitempty"`
	Email          string   `json:"email,omitempty"`
	GitHub         string   `json:"github,omitempty"`
	LinkedIn       string   `json:"linkedin,omitempty"`
	GitHubLinks    []string `json:"github_links,omitempty"`
	LinkedInLinks  []string `json:"linkedin_links,omitempty"`
}

// ExtractContact scans resume text with fixed patterns.
func ExtractContact(text string) Contact {
	c := Contact{
		Name:     namePattern.FindString(text),
		Address:  strings.TrimSpace(addressPattern.FindString(text)),
		Email:    emailPattern.FindString(text),
		GitHub:   githubPattern.FindString(text),
		LinkedIn: linkedinPattern.FindString(text),

		GitHubLinks:   distinct(githubPattern.FindAllString(text, -1)),
		LinkedInLinks: distinct(linkedinPattern.FindAllString(text, -1)),
	}
	phones := phonePattern.FindAllString(text, 2)
	if len(phones) > 0 {
		c.PrimaryPhone = phones[0]
	}
	if len(phones) > 1 {
		c.SecondaryPhone = phones[1]
	}
	return c
}

func distinct(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// LinkStatus is the outcome of checking a profile URL.
type LinkStatus string

const (
	LinkValid   LinkStatus = "Valid"
	LinkInvalid LinkStatus = "Invalid"
	LinkMissing LinkStatus = "No URL provided"
)

// LinkValidator checks profile links with a HEAD request.
type LinkValidator struct {
	client *pkghttp.Client
}

// NewLinkValidator returns a validator whose requests time out after timeout.
func NewLinkValidator(timeout time.Duration) *LinkValidator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &LinkValidator{client: pkghttp.NewClient(timeout)}
}

// Check reports whether url answers a HEAD request with 200 OK. Hosts that
// refuse HEAD are asked again with GET.
func (v *LinkValidator) Check(ctx context.Context, url string) LinkStatus {
	if url == "" {
		return LinkMissing
	}
	resp, err := v.client.Head(ctx, url)
	if err != nil {
		return LinkInvalid
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusMethodNotAllowed {
		resp, err = v.client.Get(ctx, url)
		if err != nil {
			return LinkInvalid
		}
		resp.Body.Close()
	}
	if resp.StatusCode == http.StatusOK {
		return LinkValid
	}
	return LinkInvalid
}

// Links holds the validation result for the contact's profile URLs.
type Links struct {
	GitHub   LinkStatus `json:"github"`
	LinkedIn LinkStatus `json:"linkedin"`
}

// CheckContact validates both profile links of c.
func (v *LinkValidator) CheckContact(ctx context.Context, c Contact) Links {
	return Links{
		GitHub:   v.Check(ctx, c.GitHub),
		LinkedIn: v.Check(ctx, c.LinkedIn),
	}
}

// LinkResult is one checked profile URL.
type LinkResult struct {
	URL    string     `json:"url"`
	Status LinkStatus `json:"status"`
}

// ProfileLinks holds the status of every profile URL found in a resume.
type ProfileLinks struct {
	GitHub   []LinkResult `json:"github"`
	LinkedIn []LinkResult `json:"linkedin"`
}

// CheckAll validates every profile link of c, one request at a time.
func (v *LinkValidator) CheckAll(ctx context.Context, c Contact) ProfileLinks {
	check := func(urls []string) []LinkResult {
		out := make([]LinkResult, 0, len(urls))
		for _, u := range urls {
			out = append(out, LinkResult{URL: u, Status: v.Check(ctx, u)})
		}
		return out
	}
	return ProfileLinks{GitHub: check(c.GitHubLinks), LinkedIn: check(c.LinkedInLinks)}
}
