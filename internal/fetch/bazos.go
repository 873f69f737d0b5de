package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mkrenek/adwatch/internal/domain"
	"github.com/mkrenek/adwatch/internal/logger"
	"github.com/mkrenek/adwatch/internal/utils"
)

const resultsPerPage = 20

var adIDPattern = regexp.MustCompile(`(\d+)`)

// bracketedDate matches the "[8.7. 2025]" suffix the site appends to the
// listing metadata line; bareDate is the fallback when brackets are absent.
var (
	bracketedDate = regexp.MustCompile(`\[([^\]]+)\]`)
	bareDate      = regexp.MustCompile(`\d{1,2}\.\d{1,2}\.?\s*\d{4}?`)
)

// BazosFetcher scrapes bazos search result pages. Extraction is best effort:
// a container that cannot be parsed is skipped, never fatal for the page.
type BazosFetcher struct {
	client    *http.Client
	baseURL   string
	maxPages  int
	pageDelay time.Duration
	log       logger.Logger
	now       func() time.Time
}

var _ Fetcher = (*BazosFetcher)(nil)

type Options struct {
	BaseURL   string        // ex: https://bazos.cz
	Timeout   time.Duration // per-request timeout
	MaxPages  int           // result pages fetched per term
	PageDelay time.Duration // polite delay between result pages
}

func NewBazosFetcher(opts Options, log logger.Logger) *BazosFetcher {
	if opts.MaxPages < 1 {
		opts.MaxPages = 1
	}
	return &BazosFetcher{
		client:    &http.Client{Timeout: opts.Timeout},
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		maxPages:  opts.MaxPages,
		pageDelay: opts.PageDelay,
		log:       log,
		now:       time.Now,
	}
}

// Fetch walks the paginated search results for term and returns every
// listing found. It stops at the first empty page. Any transport or decode
// error aborts the whole fetch so the caller never mistakes a partial
// result for the full set.
func (f *BazosFetcher) Fetch(ctx context.Context, term string) ([]domain.Listing, error) {
	var all []domain.Listing

	for page := 0; page < f.maxPages; page++ {
		listings, err := f.fetchPage(ctx, term, page)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d for %q: %w", page+1, term, err)
		}
		if len(listings) == 0 {
			break
		}
		all = append(all, listings...)

		if page < f.maxPages-1 && f.pageDelay > 0 {
			timer := time.NewTimer(f.pageDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}

	f.log.Debug("fetched listings",
		logger.String("term", term),
		logger.Int("count", len(all)))
	return all, nil
}

func (f *BazosFetcher) fetchPage(ctx context.Context, term string, page int) ([]domain.Listing, error) {
	// Pagination uses the crz offset parameter: 0, 20, 40, ...
	u := fmt.Sprintf("%s/search.php?hledat=%s&hlokalita=&humkreis=25&cenaod=&cenado=&order=&crz=%d&rz=0",
		f.baseURL, url.QueryEscape(term), page*resultsPerPage)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "cs,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	return f.extractListings(doc), nil
}

func (f *BazosFetcher) extractListings(doc *goquery.Document) []domain.Listing {
	observed := f.now().UTC()
	var listings []domain.Listing

	doc.Find("div.inzeraty.inzeratyflex").Each(func(_ int, s *goquery.Selection) {
		l, ok := f.extractListing(s, observed)
		if !ok {
			return
		}
		listings = append(listings, l)
	})
	return listings
}

func (f *BazosFetcher) extractListing(s *goquery.Selection, observed time.Time) (domain.Listing, bool) {
	title := s.Find("h2.nadpis a").First()
	if title.Length() == 0 {
		// The header container carries pagination info, no ad link.
		return domain.Listing{}, false
	}

	href, _ := title.Attr("href")
	id := extractAdID(href)
	if id == "" {
		f.log.Debug("skipping container without ad id", logger.String("href", href))
		return domain.Listing{}, false
	}

	l := domain.Listing{
		ExternalID: id,
		Title:      strings.TrimSpace(title.Text()),
		Link:       f.absoluteURL(href),
		ObservedAt: observed,
	}

	if price := strings.TrimSpace(s.Find("div.inzeratycena").First().Text()); price != "" && len(price) < 50 {
		l.Price = price
	}
	if loc := strings.TrimSpace(s.Find("div.inzeratylok").First().Text()); loc != "" {
		l.Location = loc
	}
	if desc := strings.TrimSpace(s.Find("div.popis").First().Text()); desc != "" {
		l.Description = desc
	} else {
		l.Description = l.Title
	}
	if src, ok := s.Find("img").First().Attr("src"); ok {
		l.ImageURL = f.absoluteURL(src)
	}

	if meta := strings.TrimSpace(s.Find("span.velikost10").First().Text()); meta != "" {
		if m := bracketedDate.FindStringSubmatch(meta); m != nil {
			l.PostedAtRaw = strings.TrimSpace(m[1])
		} else if m := bareDate.FindString(meta); m != "" {
			l.PostedAtRaw = strings.TrimSpace(m)
		}
	}
	l.PostedAt = domain.ParseSiteDate(l.PostedAtRaw)

	return l, true
}

func (f *BazosFetcher) absoluteURL(href string) string {
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "http"):
		return href
	case strings.HasPrefix(href, "/"):
		return f.baseURL + href
	default:
		return f.baseURL + "/" + href
	}
}

func extractAdID(href string) string {
	return adIDPattern.FindString(href)
}
