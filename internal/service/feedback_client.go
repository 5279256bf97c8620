package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/usis-routine-api/internal/models"
	"github.com/noah-isme/usis-routine-api/internal/planner"
	"github.com/noah-isme/usis-routine-api/pkg/middleware/requestid"
)

// FeedbackUnavailable is returned in place of feedback text whenever the
// generative-text service cannot be used.
const FeedbackUnavailable = "AI feedback not available"

// FeedbackClientConfig configures the generative-text feedback client.
type FeedbackClientConfig struct {
	Enabled    bool
	BaseURL    string
	Model      string
	APIKey     string
	MaxRetries int
	RetryDelay time.Duration
}

// FeedbackHTTPClient asks a generative-text REST API to comment on a routine.
type FeedbackHTTPClient struct {
	cfg        FeedbackClientConfig
	httpClient *http.Client
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewFeedbackHTTPClient constructs the client.
func NewFeedbackHTTPClient(cfg FeedbackClientConfig, httpClient *http.Client, metrics *MetricsService, logger *zap.Logger) *FeedbackHTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &FeedbackHTTPClient{cfg: cfg, httpClient: httpClient, metrics: metrics, logger: logger}
}

type generateContentRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generatePart struct {
	Text string `json:"text"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content generateContent `json:"content"`
	} `json:"candidates"`
}

// Generate returns feedback text for the routine.
func (c *FeedbackHTTPClient) Generate(ctx context.Context, sections []models.Section, pref models.CommutePreference) (string, error) {
	if !c.cfg.Enabled || c.cfg.APIKey == "" || c.cfg.BaseURL == "" {
		return "", errors.New("feedback client disabled")
	}

	prompt, err := BuildFeedbackPrompt(sections, pref)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(generateContentRequest{Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}}})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.cfg.BaseURL, url.PathEscape(c.cfg.Model), url.QueryEscape(c.cfg.APIKey))

	var text string
	start := time.Now()
	err = retryFixed(ctx, c.cfg.MaxRetries, c.cfg.RetryDelay, c.logger, "feedback_generate", func(ctx context.Context) error {
		var err error
		text, err = c.generateOnce(ctx, endpoint, payload)
		return err
	})
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.metrics.ObserveUpstreamCall("feedback", outcome, time.Since(start))
	if err != nil {
		return "", err
	}
	return text, nil
}

func (c *FeedbackHTTPClient) generateOnce(ctx context.Context, endpoint string, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.HeaderKey, id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusBadRequest:
		return "", permanent(fmt.Errorf("feedback service rejected request: %d", resp.StatusCode))
	default:
		return "", fmt.Errorf("feedback service unexpected status: %d", resp.StatusCode)
	}

	var body generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode feedback response: %w", err)
	}
	for _, candidate := range body.Candidates {
		for _, part := range candidate.Content.Parts {
			if text := strings.TrimSpace(part.Text); text != "" {
				return text, nil
			}
		}
	}
	return "", errors.New("feedback response has no text")
}

type promptMeeting struct {
	Kind  models.MeetingKind `json:"kind"`
	Day   models.Day         `json:"day"`
	Start string             `json:"start"`
	End   string             `json:"end"`
	Room  string             `json:"room"`
}

type promptSection struct {
	Course   string          `json:"course"`
	Section  string          `json:"section"`
	Faculty  string          `json:"faculty"`
	Meetings []promptMeeting `json:"meetings"`
}

// BuildFeedbackPrompt renders the instruction sent to the generative-text service.
func BuildFeedbackPrompt(sections []models.Section, pref models.CommutePreference) (string, error) {
	summary := make([]promptSection, 0, len(sections))
	for _, s := range sections {
		ps := promptSection{Course: s.CourseCode, Section: s.SectionName, Faculty: s.Faculty}
		for _, m := range planner.AllMeetings(s) {
			ps.Meetings = append(ps.Meetings, promptMeeting{
				Kind:  m.Kind,
				Day:   m.Day,
				Start: planner.FormatMinutes(m.StartMinutes),
				End:   planner.FormatMinutes(m.EndMinutes),
				Room:  m.Room,
			})
		}
		summary = append(summary, ps)
	}
	encoded, err := json.Marshal(summary)
	if err != nil {
		return "", err
	}

	count, days := planner.CampusDays(sections)
	names := make([]string, 0, len(days))
	for _, d := range days {
		names = append(names, string(d))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Look at this routine:\n%s\n\n", encoded)
	fmt.Fprintf(&b, "This routine requires being on campus for %d day(s): %s.\n", count, strings.Join(names, ", "))
	if pref != "" && pref != models.CommuteNone {
		fmt.Fprintf(&b, "The student's commute preference is '%s'.\n", pref)
		switch pref {
		case models.CommuteFar:
			b.WriteString("For 'Live Far', fewer days on campus is better.\n")
		case models.CommuteNear:
			b.WriteString("For 'Live Near', more days on campus is better.\n")
		}
	}
	b.WriteString("First, rate this routine out of 10.\n" +
		"Then give me 2-3 quick points about:\n" +
		"• Schedule overview\n" +
		"• What works well\n" +
		"• Areas for improvement\n" +
		"Keep it casual and under 10 words per point.\n" +
		"Format your response exactly like this:\n" +
		"Score: X/10\n" +
		"Schedule: [brief overview]\n" +
		"Good: [what works well]\n" +
		"Needs Work: [areas to improve]")
	return b.String(), nil
}
