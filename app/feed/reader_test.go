package feed

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/mt2wp/app/content"
)

func TestReadRSS2(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Blog</title>
    <link>http://old.example.com</link>
    <description>Test Description</description>
    <item>
      <title>Hello World</title>
      <link>http://old.example.com/archives/2002/01/hello_world.html</link>
      <description>Welcome to the blog.</description>
      <guid>item-1</guid>
      <pubDate>Thu, 31 Jan 2002 15:31:05 GMT</pubDate>
      <author>melody@example.com (Melody)</author>
      <category>News</category>
      <category>Tech</category>
    </item>
    <item>
      <title>Second</title>
      <link>http://old.example.com/archives/2002/02/</link>
      <description>Another.</description>
      <pubDate>Fri, 01 Feb 2002 10:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

	reader, err := NewReader(strings.NewReader(rssData), time.UTC)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	post, err := reader.Next()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if post.Title != "Hello World" {
		t.Errorf("Expected title 'Hello World', got: %s", post.Title)
	}
	if post.Body != "Welcome to the blog." {
		t.Errorf("Expected body 'Welcome to the blog.', got: %s", post.Body)
	}
	if post.Excerpt != "" {
		t.Errorf("Expected empty excerpt, got: %s", post.Excerpt)
	}
	if post.Basename != "hello_world" {
		t.Errorf("Expected basename 'hello_world', got: %s", post.Basename)
	}
	if post.Status != content.StatusPublished {
		t.Errorf("Expected status published, got: %s", post.Status)
	}
	if post.Author != "Melody" {
		t.Errorf("Expected author 'Melody', got: %s", post.Author)
	}
	if post.PrimaryCategory != "News" {
		t.Errorf("Expected primary category 'News', got: %s", post.PrimaryCategory)
	}
	if len(post.Categories) != 2 {
		t.Errorf("Expected 2 categories, got: %d", len(post.Categories))
	}
	expectedDate := time.Date(2002, 1, 31, 15, 31, 5, 0, time.UTC)
	if !post.Date.Equal(expectedDate) {
		t.Errorf("Expected date %v, got: %v", expectedDate, post.Date)
	}
	if len(post.Comments) != 0 {
		t.Errorf("Expected no comments, got: %d", len(post.Comments))
	}

	second, err := reader.Next()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if second.Basename != "" {
		t.Errorf("Expected empty basename for directory link, got: %s", second.Basename)
	}
	if second.PrimaryCategory != "" {
		t.Errorf("Expected no primary category, got: %s", second.PrimaryCategory)
	}

	if _, err := reader.Next(); err != io.EOF {
		t.Errorf("Expected io.EOF, got: %v", err)
	}
}

func TestReadAtomWithContent(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Test Atom Feed</title>
  <link href="http://old.example.com"/>
  <updated>2023-07-03T12:00:00Z</updated>
  <id>urn:uuid:1234567890</id>
  <entry>
    <title>Test Entry</title>
    <link href="http://old.example.com/2023/07/test-entry.html"/>
    <id>urn:uuid:entry-1</id>
    <updated>2023-07-03T10:00:00Z</updated>
    <author><name>Jane</name></author>
    <summary>Short summary</summary>
    <content type="html">&lt;img src="http://old.example.com/a/b/pic.jpg"&gt;</content>
  </entry>
</feed>`

	reader, err := NewReader(strings.NewReader(atomData), time.UTC)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	post, err := reader.Next()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if post.Body != `<img src="http://old.example.com/a/b/pic.jpg">` {
		t.Errorf("Expected HTML body, got: %s", post.Body)
	}
	if post.Excerpt != "Short summary" {
		t.Errorf("Expected excerpt 'Short summary', got: %s", post.Excerpt)
	}
	if post.Author != "Jane" {
		t.Errorf("Expected author 'Jane', got: %s", post.Author)
	}
	if post.Basename != "test-entry" {
		t.Errorf("Expected basename 'test-entry', got: %s", post.Basename)
	}
	if post.Date.Year() != 2023 {
		t.Errorf("Expected updated date to be used, got: %v", post.Date)
	}
}

func TestReadEntryWithoutDate(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Blog</title>
    <item>
      <title>Undated</title>
      <description>No date here.</description>
    </item>
  </channel>
</rss>`

	reader, err := NewReader(strings.NewReader(rssData), time.UTC)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	_, err = reader.Next()
	if !errors.Is(err, ErrMissingDate) {
		t.Fatalf("Expected ErrMissingDate, got: %v", err)
	}
	if !strings.Contains(err.Error(), "Undated") {
		t.Errorf("Expected error to name the entry, got: %v", err)
	}
}

func TestReadInvalidFeed(t *testing.T) {
	if _, err := NewReader(strings.NewReader("not a feed"), time.UTC); err == nil {
		t.Error("Expected error for invalid feed")
	}
}

func TestOpenFeedExport(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "export.xml")
	rssData := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>T</title>
<item><title>Only</title><description>x</description><pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate></item>
</channel></rss>`
	if err := os.WriteFile(filename, []byte(rssData), 0o644); err != nil {
		t.Fatal(err)
	}

	reader, err := Open(filename, time.UTC)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	post, err := reader.Next()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if post.Title != "Only" {
		t.Errorf("Expected title 'Only', got: %s", post.Title)
	}

	if _, err := Open(filepath.Join(t.TempDir(), "missing.xml"), time.UTC); err == nil {
		t.Error("Expected error for missing file")
	}
}
