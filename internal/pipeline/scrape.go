package pipeline

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/aguldbeck/ai-outreach-agent/internal/outreach"
)

// ProfileReader fetches a readable-text snapshot of a public profile page.
type ProfileReader interface {
	FetchProfileText(ctx context.Context, profileURL string) (string, error)
}

// Profile holds the structured fields extracted from a profile snapshot.
type Profile struct {
	Headline string
	About    string
	Posts    []string
}

// ScrapeStage fetches each lead's profile text and extracts headline, about
// and recent posts. Rows without a profile URL, or whose fetch fails, keep
// empty columns.
type ScrapeStage struct {
	reader     ProfileReader
	checkpoint int
	logger     *zap.Logger
}

// NewScrapeStage constructs the scrape stage.
func NewScrapeStage(reader ProfileReader, checkpoint int, logger *zap.Logger) *ScrapeStage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScrapeStage{reader: reader, checkpoint: checkpoint, logger: logger}
}

func (s *ScrapeStage) Name() string    { return "scrape" }
func (s *ScrapeStage) Checkpoint() int { return s.checkpoint }

func (s *ScrapeStage) Run(ctx context.Context, in outreach.Artifact, job outreach.Job) (outreach.Artifact, error) {
	table := in.Table
	table.EnsureColumn("headline", "")
	table.EnsureColumn("about", "")
	table.EnsureColumn("latest_posts", "")

	for i := range table.Rows {
		if err := ctx.Err(); err != nil {
			return outreach.Artifact{}, err
		}
		profileURL := strings.TrimSpace(table.Value(i, "linkedin_url"))
		if profileURL == "" {
			continue
		}

		text, err := s.reader.FetchProfileText(ctx, profileURL)
		if err != nil {
			s.logger.Warn("profile fetch failed",
				zap.String("job_id", job.ID),
				zap.String("row_id", table.Value(i, "row_id")),
				zap.String("url", profileURL),
				zap.Error(err),
			)
			continue
		}

		profile := ExtractProfile(text)
		table.SetValue(i, "headline", profile.Headline)
		table.SetValue(i, "about", profile.About)
		table.SetValue(i, "latest_posts", strings.Join(profile.Posts, " · "))
	}

	data, err := EncodeCSV(table)
	if err != nil {
		return outreach.Artifact{}, err
	}
	return outreach.Artifact{Ref: in.Ref, Data: data, Table: table}, nil
}

var (
	aboutPattern   = regexp.MustCompile(`(?is)(About|Summary)\s*\n+(.{120,800})`)
	sectionPattern = regexp.MustCompile(`(?i)^(About|Experience|Education|Activity|Posts)\b`)
)

// ExtractProfile pulls structured fields out of a readable-text snapshot with
// cheap line heuristics:
//   - headline: first early line with a dash or " at " pattern
//   - about: first long paragraph after an About/Summary marker
//   - posts: first 3 long lines that are not section headers
func ExtractProfile(text string) Profile {
	if strings.TrimSpace(text) == "" {
		return Profile{}
	}

	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	joined := strings.Join(lines, "\n")

	var headline string
	limit := len(lines)
	if limit > 40 {
		limit = 40
	}
	for _, ln := range lines[:limit] {
		if strings.Contains(ln, " at ") || strings.Contains(ln, " — ") || strings.Contains(ln, " – ") {
			headline = ln
			break
		}
	}

	var about string
	if m := aboutPattern.FindStringSubmatch(joined); m != nil {
		about = strings.TrimSpace(strings.SplitN(m[2], "\n\n", 2)[0])
	}

	var posts []string
	for _, ln := range lines {
		if len(ln) > 60 && !sectionPattern.MatchString(ln) {
			posts = append(posts, truncate(ln, 300))
			if len(posts) == 3 {
				break
			}
		}
	}

	return Profile{
		Headline: truncate(headline, 200),
		About:    truncate(about, 800),
		Posts:    posts,
	}
}

// truncate caps s at max bytes without splitting a multi-byte rune, so the
// extracted text stays valid UTF-8 in the output CSV.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
