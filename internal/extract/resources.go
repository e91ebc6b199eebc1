package extract

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/nao1215/clickgrab/internal/markup"
	"github.com/nao1215/clickgrab/internal/model"
)

// ClassificationRule assigns a category when Match returns true.
// Rules are evaluated in order and the first match wins.
type ClassificationRule struct {
	Category model.Category
	Match    func(ref ResourceRef) bool
}

// ResourceRef is the view of a reference that rules match against.
// Host and Path are lower-cased for matching only; counting uses the
// exact URL string.
type ResourceRef struct {
	URL  string
	Host string
	Path string
	Kind string
}

var (
	imageExtensions   = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico", ".bmp"}
	fontExtensions    = []string{".woff", ".woff2", ".ttf", ".otf", ".eot"}
	payloadExtensions = []string{".ps1", ".hta", ".bat", ".cmd", ".vbs", ".vbe", ".jse", ".wsf", ".exe", ".msi", ".scr", ".lnk"}

	fontHosts = []string{"fonts.googleapis.com", "fonts.gstatic.com", "use.typekit.net", "fonts.bunny.net", "use.fontawesome.com"}

	defaultCDNHosts = []string{
		"cdnjs.cloudflare.com",
		"cdn.jsdelivr.net",
		"unpkg.com",
		"code.jquery.com",
		"ajax.googleapis.com",
		"ajax.aspnetcdn.com",
		"stackpath.bootstrapcdn.com",
		"maxcdn.bootstrapcdn.com",
	}

	googleHosts = []string{
		"google.com",
		"googleapis.com",
		"gstatic.com",
		"googletagmanager.com",
		"google-analytics.com",
		"googleusercontent.com",
		"recaptcha.net",
	}
)

// DefaultRules returns the built-in classification rules in priority order.
// extraCDNHosts extends the list of hosts treated as script CDNs.
func DefaultRules(extraCDNHosts ...string) []ClassificationRule {
	cdnHosts := append(append([]string{}, defaultCDNHosts...), extraCDNHosts...)

	return []ClassificationRule{
		{
			Category: model.CategoryRecaptchaImagery,
			Match: func(r ResourceRef) bool {
				return strings.Contains(strings.ToLower(r.URL), "recaptcha") &&
					(r.Kind == markup.KindImage || hasExtension(r.Path, imageExtensions))
			},
		},
		{
			Category: model.CategoryPayloadFiles,
			Match: func(r ResourceRef) bool {
				return hasExtension(r.Path, payloadExtensions)
			},
		},
		{
			Category: model.CategoryFontResources,
			Match: func(r ResourceRef) bool {
				return hostIn(r.Host, fontHosts) || hasExtension(r.Path, fontExtensions)
			},
		},
		{
			Category: model.CategoryCDNScripts,
			Match: func(r ResourceRef) bool {
				isCDN := hostIn(r.Host, cdnHosts) || strings.Contains(r.Host, "cdn")
				return isCDN && (r.Kind == markup.KindScript || hasExtension(r.Path, []string{".js", ".mjs"}))
			},
		},
		{
			Category: model.CategoryGoogleResources,
			Match: func(r ResourceRef) bool {
				return hostIn(r.Host, googleHosts)
			},
		},
		{
			Category: model.CategoryOther,
			Match:    func(ResourceRef) bool { return true },
		},
	}
}

// hostIn reports whether host equals or is a subdomain of one of hosts.
func hostIn(host string, hosts []string) bool {
	for _, h := range hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func hasExtension(p string, exts []string) bool {
	ext := path.Ext(p)
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// ResourceExtractor fills the domains and resources of a site.
type ResourceExtractor struct {
	rules []ClassificationRule
}

// ResourceOption configures a ResourceExtractor.
type ResourceOption func(*ResourceExtractor)

// WithRules replaces the classification rules. The last rule should match everything.
func WithRules(rules []ClassificationRule) ResourceOption {
	return func(e *ResourceExtractor) {
		if len(rules) > 0 {
			e.rules = rules
		}
	}
}

// NewResourceExtractor creates a ResourceExtractor with DefaultRules.
func NewResourceExtractor(opts ...ResourceOption) *ResourceExtractor {
	e := &ResourceExtractor{rules: DefaultRules()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements Stage.
func (e *ResourceExtractor) Name() string {
	return "resources"
}

// Classify returns the category of one reference.
func (e *ResourceExtractor) Classify(ref markup.Reference) model.Category {
	view := ResourceRef{
		URL:  ref.URL,
		Host: strings.ToLower(ref.Host),
		Kind: ref.Kind,
	}
	candidate := ref.URL
	if strings.HasPrefix(candidate, "//") {
		candidate = "https:" + candidate
	}
	if u, err := url.Parse(candidate); err == nil {
		view.Path = strings.ToLower(u.Path)
	}

	for _, rule := range e.rules {
		if rule.Match(view) {
			return rule.Category
		}
	}
	return model.CategoryOther
}

// Extract implements Stage.
func (e *ResourceExtractor) Extract(ctx context.Context, in *Input, site *model.AnalyzedSite) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	domains, resources := e.Count(in.Doc.References)
	site.Domains = domains
	site.Resources = resources
	return nil
}

type resourceLoc struct {
	category model.Category
	pos      int
}

// Count tallies references by exact domain and exact URL, keeping first-seen order.
func (e *ResourceExtractor) Count(refs []markup.Reference) ([]model.DomainCount, map[model.Category][]model.ResourceCount) {
	domains := make([]model.DomainCount, 0)
	domainIndex := make(map[string]int)
	resources := make(map[model.Category][]model.ResourceCount)
	urlIndex := make(map[string]resourceLoc)

	for _, ref := range refs {
		if i, ok := domainIndex[ref.Host]; ok {
			domains[i].Count++
		} else {
			domainIndex[ref.Host] = len(domains)
			domains = append(domains, model.DomainCount{Domain: ref.Host, Count: 1})
		}

		if loc, ok := urlIndex[ref.URL]; ok {
			resources[loc.category][loc.pos].Count++
			continue
		}
		category := e.Classify(ref)
		urlIndex[ref.URL] = resourceLoc{category: category, pos: len(resources[category])}
		resources[category] = append(resources[category], model.ResourceCount{URL: ref.URL, Count: 1})
	}

	return domains, resources
}
