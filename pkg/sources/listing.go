package sources

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"podcast-digest/pkg/browser"
	"podcast-digest/pkg/content"
	"podcast-digest/pkg/domain"
	"podcast-digest/pkg/httpclient"
)

// ArchiveFile is one transcript file in an archive listing.
type ArchiveFile struct {
	Name string
	// Location is a filesystem path or a download URL, depending on the lister.
	Location string
	// Modified is zero when the listing shows no usable date.
	Modified time.Time
}

// Lister enumerates transcript files in an archive and reads them.
type Lister interface {
	List(ctx context.Context, root string) ([]ArchiveFile, error)
	Read(ctx context.Context, file ArchiveFile) ([]byte, error)
}

// DirLister lists a local (or mounted) directory. root may be a plain path or
// a file:// URL.
type DirLister struct{}

func (DirLister) List(_ context.Context, root string) ([]ArchiveFile, error) {
	dir := strings.TrimPrefix(root, "file://")

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list archive %s: %w", dir, errors.Join(dirErrKind(err), err))
	}

	var files []ArchiveFile
	for _, entry := range entries {
		if entry.IsDir() || !content.HasTranscriptFileExtension(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, ArchiveFile{
			Name:     entry.Name(),
			Location: filepath.Join(dir, entry.Name()),
			Modified: info.ModTime(),
		})
	}
	return files, nil
}

func (DirLister) Read(_ context.Context, file ArchiveFile) ([]byte, error) {
	data, err := os.ReadFile(file.Location)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file.Name, errors.Join(dirErrKind(err), err))
	}
	return data, nil
}

// dirErrKind treats a missing path as a configuration mistake rather than
// an outage, so it is not retried.
func dirErrKind(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ErrInvalidConfig
	}
	return domain.ErrSourceUnavailable
}

// HTMLLister reads a shared-folder web page that lists files in a table,
// one row per file with the modification date in the second column.
type HTMLLister struct {
	renderer browser.Renderer
	client   *httpclient.HTTPClient
	now      func() time.Time
}

// NewHTMLLister creates a lister that renders listings with renderer and
// downloads files with a browser-profile HTTP client.
func NewHTMLLister(renderer browser.Renderer, timeout time.Duration) *HTMLLister {
	return &HTMLLister{
		renderer: renderer,
		client:   httpclient.NewClient(httpclient.BrowserClient, timeout),
		now:      time.Now,
	}
}

const fileLinkSelector = `a[href*=".txt"], a[href*=".pdf"]`

func (l *HTMLLister) List(ctx context.Context, root string) ([]ArchiveFile, error) {
	doc, err := l.renderer.Render(ctx, root, "table tbody tr")
	if err != nil {
		return nil, fmt.Errorf("render archive listing: %w", err)
	}

	var files []ArchiveFile
	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		link := row.Find(fileLinkSelector).First()
		if link.Length() == 0 {
			return
		}
		file, ok := l.fileFromLink(root, link)
		if !ok {
			return
		}
		if cell := row.Find("td").Eq(1); cell.Length() > 0 {
			file.Modified, _ = parseListingDate(cell.Text(), l.now())
		}
		files = append(files, file)
	})

	if len(files) > 0 {
		return files, nil
	}

	// Some listings render links outside row structure; dates are then unknown.
	doc.Find("table " + strings.ReplaceAll(fileLinkSelector, ", ", ", table ")).Each(func(_ int, link *goquery.Selection) {
		if file, ok := l.fileFromLink(root, link); ok {
			files = append(files, file)
		}
	})
	return files, nil
}

func (l *HTMLLister) fileFromLink(root string, link *goquery.Selection) (ArchiveFile, bool) {
	href := strings.TrimSpace(link.AttrOr("href", ""))
	if href == "" {
		return ArchiveFile{}, false
	}

	name := strings.TrimSpace(link.Find("button").First().Text())
	if name == "" {
		name = strings.TrimSpace(link.Text())
	}
	if name == "" {
		name = nameFromHref(href)
	}
	if name == "" {
		return ArchiveFile{}, false
	}

	resolved, err := content.ResolveAgainst(root, href)
	if err != nil {
		return ArchiveFile{}, false
	}
	return ArchiveFile{Name: name, Location: resolved}, true
}

func (l *HTMLLister) Read(ctx context.Context, file ArchiveFile) ([]byte, error) {
	body, _, err := l.client.Fetch(ctx, DownloadURL(file.Location))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", file.Name, err)
	}
	return body, nil
}

// DownloadURL turns a shared-file preview link into a direct download (dl=1).
func DownloadURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("dl", "1")
	u.RawQuery = q.Encode()
	return u.String()
}

func nameFromHref(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	name, err := url.PathUnescape(path.Base(u.Path))
	if err != nil || !content.HasTranscriptFileExtension(name) {
		return ""
	}
	return name
}

var listingLayouts = []string{"Jan 2, 2006", "January 2, 2006", "2006-01-02", "1/2/2006"}

// parseListingDate understands "Today", "Yesterday", absolute dates, and
// month-day dates without a year. A year-less date falls in now's year unless
// that would put it in the future, in which case it belongs to the year before.
func parseListingDate(raw string, now time.Time) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch strings.ToLower(raw) {
	case "":
		return time.Time{}, false
	case "today":
		return midnight, true
	case "yesterday":
		return midnight.AddDate(0, 0, -1), true
	}

	for _, layout := range listingLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	for _, layout := range []string{"Jan 2", "January 2"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.AddDate(now.Year(), 0, 0)
			if t.After(now) {
				t = t.AddDate(-1, 0, 0)
			}
			return t, true
		}
	}
	return time.Time{}, false
}

// AutoLister sends web archives to Web and everything else to a DirLister.
type AutoLister struct {
	Web Lister
	Dir DirLister
}

func isWebLocation(loc string) bool {
	return strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://")
}

func (a AutoLister) List(ctx context.Context, root string) ([]ArchiveFile, error) {
	if isWebLocation(root) {
		if a.Web == nil {
			return nil, fmt.Errorf("%w: no web lister configured for %s", domain.ErrInvalidConfig, root)
		}
		return a.Web.List(ctx, root)
	}
	return a.Dir.List(ctx, root)
}

func (a AutoLister) Read(ctx context.Context, file ArchiveFile) ([]byte, error) {
	if isWebLocation(file.Location) {
		if a.Web == nil {
			return nil, fmt.Errorf("%w: no web lister configured for %s", domain.ErrInvalidConfig, file.Location)
		}
		return a.Web.Read(ctx, file)
	}
	return a.Dir.Read(ctx, file)
}
