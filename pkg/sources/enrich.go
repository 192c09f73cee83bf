package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"podcast-digest/pkg/content"
	"podcast-digest/pkg/domain"
	"podcast-digest/pkg/guests"
)

// Enricher fills in details of an archive-detected episode from elsewhere.
type Enricher interface {
	Enrich(ctx context.Context, cfg domain.PodcastConfig, ep domain.Episode) (domain.Episode, error)
}

// Enrich looks the archive guest up on the show page and copies the episode
// page's title, date, link and description onto ep. The identity is left as is.
func (s *ScrapeSource) Enrich(ctx context.Context, cfg domain.PodcastConfig, ep domain.Episode) (domain.Episode, error) {
	guest := ep.PrimaryGuest()
	if guest == "" {
		return ep, fmt.Errorf("no guest name to look up on %s", cfg.ShowPageURL)
	}

	linkSel := orDefault(cfg.Scrape.EpisodeLinkSelector, DefaultEpisodeLinkSelector)
	show, err := s.renderer.Render(ctx, cfg.ShowPageURL, linkSel)
	if err != nil {
		return ep, fmt.Errorf("render show page: %w", err)
	}

	links := show.Find(linkSel)
	link := links.FilterFunction(func(_ int, a *goquery.Selection) bool {
		return guests.NamedIn(guest, a.Text())
	}).First()
	if link.Length() == 0 {
		link = links.First()
	}
	href := strings.TrimSpace(link.AttrOr("href", ""))
	if href == "" {
		return ep, fmt.Errorf("%w: no episode link for %s on %s", domain.ErrParseFailure, guest, cfg.ShowPageURL)
	}
	episodeURL, err := content.ResolveAgainst(cfg.ShowPageURL, href)
	if err != nil {
		return ep, fmt.Errorf("%w: episode link %q: %v", domain.ErrParseFailure, href, err)
	}

	page, err := s.renderer.Render(ctx, episodeURL, "body")
	if err != nil {
		return ep, fmt.Errorf("render episode page: %w", err)
	}

	title := s.episodeTitle(cfg, page)
	if title == "" {
		title = content.CleanText(link.Text())
	}
	if !guests.NamedIn(guest, title) {
		return ep, fmt.Errorf("%w: episode %q does not name %s", domain.ErrParseFailure, title, guest)
	}

	descSel := page.Find(DefaultDescriptionSelector).First()
	descHTML, _ := descSel.Html()

	ep.Title = title
	ep.URL = episodeURL
	ep.Description = content.CleanText(descSel.Text())
	if published := publishedDate(page); !published.IsZero() {
		ep.Published = published
	}
	ep.Guests = enrichGuests(ep.Guests, guests.Extract(title, descHTML), guests.LinkedInURLs(descHTML))

	s.logger.Debug("enriched archive episode", "podcast_id", cfg.ID, "title", ep.Title, "url", episodeURL)
	return ep, nil
}

// enrichGuests keeps the archive guest names and adds the profile link and
// description of whichever page guest (or profile link) refers to the same person.
func enrichGuests(archived, found []domain.Guest, links []string) []domain.Guest {
	out := make([]domain.Guest, len(archived))
	for i, g := range archived {
		out[i] = g
		for _, f := range found {
			if guests.NamedIn(g.Name, f.Name) {
				if out[i].LinkedInURL == "" {
					out[i].LinkedInURL = f.LinkedInURL
				}
				if out[i].Description == "" {
					out[i].Description = f.Description
				}
				break
			}
		}
		if out[i].LinkedInURL != "" {
			continue
		}
		for _, link := range links {
			if guests.NamedIn(g.Name, strings.ReplaceAll(link, "-", " ")) {
				out[i].LinkedInURL = link
				break
			}
		}
	}
	return out
}
