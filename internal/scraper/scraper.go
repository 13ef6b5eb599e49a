package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/ibeckermayer/influencescope/internal/browser"
	"github.com/ibeckermayer/influencescope/internal/config"
	"github.com/ibeckermayer/influencescope/internal/logger"
	"github.com/ibeckermayer/influencescope/internal/store"
	"github.com/ibeckermayer/influencescope/internal/types"
)

// ErrProfileNotFound is returned when the profile page does not exist or is private
var ErrProfileNotFound = errors.New("profile not found")

// CookieSource supplies session cookies for the scraping browser
type CookieSource interface {
	GetCookies() ([]*network.Cookie, error)
}

// LanguageDetector guesses the language of a caption
type LanguageDetector interface {
	DetectLanguage(ctx context.Context, text string) (types.Classification, error)
}

// Scraper collects Instagram profiles and their most recent posts
type Scraper struct {
	headless        bool
	postsPerProfile int
	maxComments     int
	profileDelay    time.Duration
	postDelay       time.Duration

	cookies CookieSource
	lang    LanguageDetector
	log     *logger.Logger
	now     func() time.Time
}

// New creates a scraper. cookies and lang may be nil.
func New(cfg config.ScrapingConfig, cookies CookieSource, lang LanguageDetector, log *logger.Logger) *Scraper {
	if log == nil {
		log = logger.Nop()
	}
	return &Scraper{
		headless:        cfg.Headless,
		postsPerProfile: cfg.PostsPerProfile,
		maxComments:     cfg.MaxCommentsPerPost,
		profileDelay:    time.Duration(cfg.ProfileDelaySeconds) * time.Second,
		postDelay:       time.Duration(cfg.PostDelaySeconds) * time.Second,
		cookies:         cookies,
		lang:            lang,
		log:             log,
		now:             time.Now,
	}
}

// ScrapeProfile loads username's profile page and up to postsPerProfile posts.
// A fixed delay precedes the profile and each post.
func (s *Scraper) ScrapeProfile(ctx context.Context, username string) (*types.ProfileRecord, error) {
	username, err := store.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	log := s.log.With("username", username)

	if err := sleep(ctx, s.profileDelay); err != nil {
		return nil, err
	}

	browserCtx, cancel := browser.NewContext(ctx, s.headless, s.log)
	defer cancel()

	// Set timeout for the entire scrape operation
	browserCtx, timeoutCancel := context.WithTimeout(browserCtx, 10*time.Minute)
	defer timeoutCancel()

	if err := s.injectCookies(browserCtx); err != nil {
		return nil, fmt.Errorf("failed to inject cookies: %w", err)
	}

	raw, err := s.extractProfile(browserCtx, username)
	if err != nil {
		return nil, err
	}
	log.Info("profile loaded", "followers", raw.Followers, "post_links", len(raw.PostURLs))

	urls := raw.PostURLs
	if len(urls) > s.postsPerProfile {
		urls = urls[:s.postsPerProfile]
	}

	posts := make([]rawPost, 0, len(urls))
	for _, u := range urls {
		if err := sleep(ctx, s.postDelay); err != nil {
			return nil, err
		}
		rp, err := s.extractPost(browserCtx, u)
		if err != nil {
			log.Warn("skipping post", "url", u, "error", err)
			continue
		}
		posts = append(posts, rp)
	}

	profile := buildProfile(username, raw, posts, s.maxComments, s.now())
	s.detectLanguages(ctx, profile.Posts)

	log.Info("scrape complete", "posts", len(profile.Posts), "engagement_rate", profile.EngagementRate)
	return profile, nil
}

// detectLanguages fills DetectedLanguage per post. Empty captions and detector
// failures yield "unknown" with confidence 0.
func (s *Scraper) detectLanguages(ctx context.Context, posts []types.PostRecord) {
	for i := range posts {
		p := &posts[i]
		p.DetectedLanguage = types.UnknownLanguage
		p.LanguageConfidence = 0
		if s.lang == nil || strings.TrimSpace(p.Caption) == "" {
			continue
		}
		c, err := s.lang.DetectLanguage(ctx, p.Caption)
		if err == nil {
			err = c.Validate(nil)
		}
		if err != nil {
			s.log.Debug("language detection failed", "post_id", p.PostID, "error", err)
			continue
		}
		p.DetectedLanguage = strings.ToLower(c.Label)
		p.LanguageConfidence = c.Score
	}
}

// injectCookies sets the stored session cookies in the browser context
func (s *Scraper) injectCookies(ctx context.Context) error {
	if s.cookies == nil {
		return nil
	}
	cookies, err := s.cookies.GetCookies()
	if err != nil {
		s.log.Warn("no stored session, scraping anonymously", "error", err)
		return nil
	}

	return chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range cookies {
				err := network.SetCookie(c.Name, c.Value).
					WithDomain(c.Domain).
					WithPath(c.Path).
					WithSecure(c.Secure).
					WithHTTPOnly(c.HTTPOnly).
					WithSameSite(c.SameSite).
					Do(ctx)

				if err != nil {
					return err
				}
			}
			return nil
		}),
	)
}

const extractProfileJS = `
	(function() {
		const header = document.querySelector('header');
		if (!header) return null;

		const stat = (i) => {
			const items = header.querySelectorAll('ul li');
			if (!items[i]) return '0';
			const title = items[i].querySelector('span[title]');
			return (title && title.getAttribute('title')) || items[i].textContent || '0';
		};

		const spans = Array.from(header.querySelectorAll('section span[dir="auto"]'));
		const fullName = spans.length > 0 ? spans[0].textContent : '';
		const biography = spans.length > 1 ? spans.slice(1).map(s => s.textContent).join('\n') : '';

		const categoryEl = header.querySelector('div[class] > div[dir="auto"]');
		const businessCategory = categoryEl ? categoryEl.textContent : '';
		const isBusiness = !!header.querySelector('a[href*="mailto:"], a[href*="tel:"], button[type="button"][aria-label*="Contact"]') || businessCategory !== '';

		const postUrls = [];
		const seen = new Set();
		document.querySelectorAll('a[href*="/p/"], a[href*="/reel/"]').forEach(a => {
			const href = a.href.split('?')[0];
			if (!seen.has(href)) {
				seen.add(href);
				postUrls.push(href);
			}
		});

		return {
			fullName,
			biography,
			followers: stat(1),
			following: stat(2),
			posts: stat(0),
			isBusiness,
			businessCategory,
			postUrls
		};
	})()
`

// extractProfile navigates to the profile page and reads the header
func (s *Scraper) extractProfile(ctx context.Context, username string) (rawProfile, error) {
	var raw *rawProfile
	err := chromedp.Run(ctx,
		chromedp.Navigate(instagramBaseURL+"/"+username+"/"),
		chromedp.WaitVisible(WaitForProfile, chromedp.ByQuery),
		chromedp.Evaluate(extractProfileJS, &raw),
	)
	if err != nil {
		return rawProfile{}, fmt.Errorf("failed to load profile %s: %w", username, err)
	}
	if raw == nil {
		return rawProfile{}, fmt.Errorf("%s: %w", username, ErrProfileNotFound)
	}
	return *raw, nil
}

const extractPostJS = `
	(function() {
		const article = document.querySelector('article') || document;
		const captionEl = article.querySelector('h1');
		const caption = captionEl ? captionEl.textContent : '';

		const timeEl = article.querySelector('time[datetime]');
		const timestamp = timeEl ? timeEl.getAttribute('datetime') : '';

		const locEl = article.querySelector('a[href*="/explore/locations/"]');
		const location = locEl ? locEl.textContent : '';

		let likes = '0';
		const likedBy = article.querySelector('a[href$="/liked_by/"]');
		if (likedBy) {
			likes = likedBy.textContent;
		} else {
			const sec = Array.from(article.querySelectorAll('section span')).find(s => /like/i.test(s.textContent));
			if (sec) likes = sec.textContent;
		}

		const replies = [];
		article.querySelectorAll('ul ul, ul > div > li').forEach(li => {
			const author = li.querySelector('h3, h2, a[role="link"]');
			const text = li.querySelector('span[dir="auto"]');
			const t = li.querySelector('time[datetime]');
			const likeBtn = Array.from(li.querySelectorAll('button, span')).find(b => /like/i.test(b.textContent));
			if (!text) return;
			replies.push({
				text: text.textContent,
				author: author ? author.textContent : '',
				timestamp: t ? t.getAttribute('datetime') : '',
				likes: likeBtn ? likeBtn.textContent : '0'
			});
		});

		const meta = document.querySelector('meta[property="og:description"], meta[name="description"]');
		let comments = '0';
		if (meta) {
			const m = meta.getAttribute('content').match(/([\d.,]+[KkMm]?)\s+comments?/);
			if (m) comments = m[1];
			if (likes === '0') {
				const l = meta.getAttribute('content').match(/([\d.,]+[KkMm]?)\s+likes?/);
				if (l) likes = l[1];
			}
		}

		return { url: window.location.href, caption, likes, comments, timestamp, location, replies };
	})()
`

// extractPost navigates to a post page and reads caption, counts and comments
func (s *Scraper) extractPost(ctx context.Context, postURL string) (rawPost, error) {
	var raw rawPost
	err := chromedp.Run(ctx,
		chromedp.Navigate(postURL),
		chromedp.WaitVisible(WaitForPost, chromedp.ByQuery),
		chromedp.Evaluate(extractPostJS, &raw),
	)
	if err != nil {
		return rawPost{}, fmt.Errorf("failed to extract post %s: %w", postURL, err)
	}
	raw.URL = postURL
	return raw, nil
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
