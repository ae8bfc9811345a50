package asset

import (
	"testing"
)

func TestFindReferencesImage(t *testing.T) {
	refs := FindReferences(`<p><img src="http://old.example.com/a/b/pic.jpg"></p>`)

	if len(refs) != 1 {
		t.Fatalf("Expected 1 reference, got %d", len(refs))
	}

	ref := refs[0]
	if ref.Domain != "old.example.com" {
		t.Errorf("Expected domain 'old.example.com', got '%s'", ref.Domain)
	}
	if ref.Filename != "pic.jpg" {
		t.Errorf("Expected filename 'pic.jpg', got '%s'", ref.Filename)
	}
	if ref.Tag != TagImage {
		t.Errorf("Expected image tag, got '%s'", ref.Tag)
	}

	path, ok := ref.RemotePath()
	if !ok || path != "a/b" {
		t.Errorf("Expected remote path 'a/b', got '%s' (ok=%v)", path, ok)
	}
}

func TestFindReferencesOrderAndDedup(t *testing.T) {
	text := `
<a href="http://old.example.com/docs/report.pdf">Report</a>
<img class="left" src='http://old.example.com/images/one.png' alt="x">
<a href="http://old.example.com/page.html">Not a PDF</a>
<img src="http://old.example.com/images/one.png">
<IMG SRC="http://cdn.example.net/two.gif">
`
	refs := FindReferences(text)

	expected := []struct {
		url string
		tag Tag
	}{
		{"http://old.example.com/docs/report.pdf", TagLink},
		{"http://old.example.com/images/one.png", TagImage},
		{"http://cdn.example.net/two.gif", TagImage},
	}

	if len(refs) != len(expected) {
		t.Fatalf("Expected %d references, got %d: %+v", len(expected), len(refs), refs)
	}

	for i, want := range expected {
		if refs[i].URL != want.url {
			t.Errorf("Reference %d: expected URL '%s', got '%s'", i, want.url, refs[i].URL)
		}
		if refs[i].Tag != want.tag {
			t.Errorf("Reference %d: expected tag '%s', got '%s'", i, want.tag, refs[i].Tag)
		}
	}
}

func TestFindReferencesNoMatches(t *testing.T) {
	inputs := []string{
		"",
		"plain text with no markup",
		`<img alt="broken`,
		`<a href="http://example.com/file.doc">doc</a>`,
		"<<<>>> src= href=",
	}

	for _, input := range inputs {
		if refs := FindReferences(input); len(refs) != 0 {
			t.Errorf("Expected no references for %q, got %+v", input, refs)
		}
	}
}

func TestRemotePathWithoutDirectory(t *testing.T) {
	ref := FindReferences(`<img src="http://old.example.com/pic.jpg">`)[0]

	if _, ok := ref.RemotePath(); ok {
		t.Error("Expected no remote path for an asset at the domain root")
	}
}

func TestRelativeReferenceHasNoDomain(t *testing.T) {
	ref := FindReferences(`<img src="/images/pic.jpg">`)[0]

	if ref.Domain != "" {
		t.Errorf("Expected empty domain, got '%s'", ref.Domain)
	}
	if ref.MatchesDomain("old.example.com") {
		t.Error("Relative reference should not match any domain")
	}
}

func TestMatchesDomain(t *testing.T) {
	tests := []struct {
		refDomain string
		domain    string
		want      bool
	}{
		{"old.example.com", "old.example.com", true},
		{"www.example.com", "example.com", true},
		{"example.com", "www.example.com", true},
		{"EXAMPLE.com", "example.COM", true},
		{"cdn.example.com", "example.com", false},
		{"example.com", "", false},
	}

	for _, tt := range tests {
		ref := Reference{Domain: tt.refDomain}
		if got := ref.MatchesDomain(tt.domain); got != tt.want {
			t.Errorf("MatchesDomain(%q, %q) = %v, want %v", tt.refDomain, tt.domain, got, tt.want)
		}
	}
}

func TestFilenameStripsQuery(t *testing.T) {
	ref := FindReferences(`<img src="http://old.example.com/a/pic.jpg?v=2">`)[0]

	if ref.Filename != "pic.jpg" {
		t.Errorf("Expected filename 'pic.jpg', got '%s'", ref.Filename)
	}
}
