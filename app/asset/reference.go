package asset

import (
	"regexp"
	"strings"
)

type Tag string

const (
	TagImage Tag = "image"
	TagLink  Tag = "link"
)

var (
	referencePattern  = regexp.MustCompile(`(?i)<img(?:[^/>]+?)?src=(?:"|')(?P<img>.*?)(?:"|')|<a(?:[^/>]+?)?href=(?:"|')(?P<link>[^'"]+?\.pdf)(?:"|')`)
	domainPattern     = regexp.MustCompile(`(?i)^https?://(.*?)/`)
	remotePathPattern = regexp.MustCompile(`(?i)^https?://(?:.*?)/(.*?)/(?:[^/]+)$`)
)

// Reference is an embedded asset URL found in post content.
type Reference struct {
	URL      string
	Filename string
	Domain   string
	Tag      Tag
}

// FindReferences returns the image sources and PDF links in text, in
// order of first appearance and without duplicates.
func FindReferences(text string) []Reference {
	var refs []Reference
	seen := make(map[string]bool)

	imgIndex := referencePattern.SubexpIndex("img")
	linkIndex := referencePattern.SubexpIndex("link")

	for _, match := range referencePattern.FindAllStringSubmatchIndex(text, -1) {
		var (
			url string
			tag Tag
		)
		switch {
		case match[2*imgIndex] >= 0:
			url, tag = text[match[2*imgIndex]:match[2*imgIndex+1]], TagImage
		case match[2*linkIndex] >= 0:
			url, tag = text[match[2*linkIndex]:match[2*linkIndex+1]], TagLink
		default:
			continue
		}

		url = strings.TrimSpace(url)
		if url == "" || seen[url] {
			continue
		}
		seen[url] = true

		refs = append(refs, newReference(url, tag))
	}

	return refs
}

func newReference(url string, tag Tag) Reference {
	ref := Reference{URL: url, Tag: tag}

	if m := domainPattern.FindStringSubmatch(url); m != nil {
		ref.Domain = m[1]
	}

	filename := url
	if i := strings.IndexAny(filename, "?#"); i >= 0 {
		filename = filename[:i]
	}
	if i := strings.LastIndex(filename, "/"); i >= 0 {
		filename = filename[i+1:]
	}
	ref.Filename = filename

	return ref
}

// RemotePath returns the path between the domain and the filename.
// ok is false when the URL has no directory component, in which case the
// asset cannot be migrated.
func (r Reference) RemotePath() (string, bool) {
	m := remotePathPattern.FindStringSubmatch(r.URL)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// MatchesDomain reports whether the reference is hosted on domain, with or
// without a leading "www.".
func (r Reference) MatchesDomain(domain string) bool {
	if r.Domain == "" || domain == "" {
		return false
	}
	return strings.EqualFold(bareDomain(r.Domain), bareDomain(domain))
}

func bareDomain(domain string) string {
	if len(domain) >= 4 && strings.EqualFold(domain[:4], "www.") {
		return domain[4:]
	}
	return domain
}
