package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	config "github.com/postvault/postvault/configs"
	"github.com/postvault/postvault/internal/models"
	"github.com/postvault/postvault/internal/transfer"
	"github.com/postvault/postvault/pkg/utils"
)

// errRateLimited marks a publish call the Graph API rejected for rate
// limiting. It is never blindly retried: the call may have gone through,
// and retrying risks a duplicate post. Recovery goes through verification.
var errRateLimited = errors.New("instagram rate limit")

const (
	maxPollAttempts = 20
	verifyWindow    = 5 * time.Minute
)

var containerBackoff = []time.Duration{2 * time.Second, 4 * time.Second}

type InstagramService interface {
	// PublishSlot drives the container-create / poll / publish protocol for
	// one draft and reports the outcome. It never returns an error: every
	// failure mode is folded into the outcome so the runner can keep going.
	PublishSlot(ctx context.Context, draft *models.Draft, creds *models.Credentials) *transfer.PublishOutcome
}

type instagramService struct {
	cfg          config.Config
	baseURL      string
	client       *http.Client
	pollInterval time.Duration
	childDelay   time.Duration
	now          func() time.Time
}

func NewInstagramService(cfg config.Config) InstagramService {
	return &instagramService{
		cfg:          cfg,
		baseURL:      cfg.GraphBaseURL,
		client:       http.DefaultClient,
		pollInterval: 2 * time.Second,
		childDelay:   time.Second,
		now:          time.Now,
	}
}

func (s *instagramService) PublishSlot(ctx context.Context, draft *models.Draft, creds *models.Credentials) *transfer.PublishOutcome {
	if creds == nil || !creds.Connected {
		return &transfer.PublishOutcome{Error: "no connected publishing account"}
	}
	if len(draft.ImageURLs) == 0 {
		return &transfer.PublishOutcome{Error: fmt.Sprintf("draft %s has no images", draft.ID)}
	}

	accessToken, err := utils.Decrypt(creds.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return &transfer.PublishOutcome{Error: fmt.Sprintf("decrypting access token: %v", err)}
	}

	var containerID string
	if draft.IsCarousel() {
		containerID, err = s.createCarousel(ctx, creds.AccountID, draft, accessToken)
	} else {
		containerID, err = s.createSingle(ctx, creds.AccountID, draft, accessToken)
	}
	if err != nil {
		return &transfer.PublishOutcome{Error: err.Error()}
	}

	postID, permalink, err := s.publish(ctx, creds.AccountID, containerID, accessToken)
	if errors.Is(err, errRateLimited) {
		return s.verifyAfterRateLimit(ctx, creds.AccountID, accessToken)
	}
	if err != nil {
		return &transfer.PublishOutcome{Error: err.Error()}
	}

	return &transfer.PublishOutcome{
		Success:        true,
		ExternalPostID: postID,
		Permalink:      permalink,
		PublishedAt:    s.now(),
	}
}

func (s *instagramService) createSingle(ctx context.Context, accountID string, draft *models.Draft, accessToken string) (string, error) {
	containerID, err := s.createContainerWithRetry(ctx, accountID, map[string]interface{}{
		"image_url":    draft.ImageURLs[0],
		"caption":      draft.Caption,
		"access_token": accessToken,
	})
	if err != nil {
		return "", err
	}

	if err := s.waitForReady(ctx, containerID, accessToken); err != nil {
		return "", err
	}
	return containerID, nil
}

// createCarousel creates one child container per image sequentially, with a
// short delay between requests to stay under the per-minute call budget,
// then wraps them in a parent container.
func (s *instagramService) createCarousel(ctx context.Context, accountID string, draft *models.Draft, accessToken string) (string, error) {
	childIDs := make([]string, 0, len(draft.ImageURLs))
	for i, imageURL := range draft.ImageURLs {
		if i > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(s.childDelay):
			}
		}

		childID, err := s.createContainerWithRetry(ctx, accountID, map[string]interface{}{
			"image_url":        imageURL,
			"is_carousel_item": true,
			"access_token":     accessToken,
		})
		if err != nil {
			return "", fmt.Errorf("creating carousel item %d: %w", i+1, err)
		}
		childIDs = append(childIDs, childID)
	}

	for _, childID := range childIDs {
		if err := s.waitForReady(ctx, childID, accessToken); err != nil {
			return "", err
		}
	}

	parentID, err := s.createContainerWithRetry(ctx, accountID, map[string]interface{}{
		"media_type":   "CAROUSEL",
		"caption":      draft.Caption,
		"children":     childIDs,
		"access_token": accessToken,
	})
	if err != nil {
		return "", fmt.Errorf("creating carousel container: %w", err)
	}

	if err := s.waitForReady(ctx, parentID, accessToken); err != nil {
		return "", err
	}
	return parentID, nil
}

func (s *instagramService) createContainerWithRetry(ctx context.Context, accountID string, payload map[string]interface{}) (string, error) {
	var containerID string
	err := utils.Retry(ctx, 3, containerBackoff, nil, func() error {
		id, err := s.createContainer(ctx, accountID, payload)
		if err != nil {
			return err
		}
		containerID = id
		return nil
	})
	return containerID, err
}

func (s *instagramService) createContainer(ctx context.Context, accountID string, payload map[string]interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/%s/media", s.baseURL, accountID), bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", graphError(resp.StatusCode, respBody)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}
	if result.ID == "" {
		return "", errors.New("no container ID returned from Instagram")
	}

	return result.ID, nil
}

// waitForReady polls the container status at a fixed interval. READY is
// terminal success, ERROR and EXPIRED are terminal failures, anything else
// keeps polling until the attempt budget runs out.
func (s *instagramService) waitForReady(ctx context.Context, containerID, accessToken string) error {
	for attempt := 0; attempt < maxPollAttempts; attempt++ {
		status, err := s.containerStatus(ctx, containerID, accessToken)
		if err != nil {
			return err
		}

		switch status {
		case transfer.ContainerStatusReady, "FINISHED":
			return nil
		case transfer.ContainerStatusError, transfer.ContainerStatusExpired:
			return fmt.Errorf("container %s entered terminal state %s", containerID, status)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
	return fmt.Errorf("container %s not ready after %d attempts", containerID, maxPollAttempts)
}

func (s *instagramService) containerStatus(ctx context.Context, containerID, accessToken string) (string, error) {
	reqURL := fmt.Sprintf("%s/%s?fields=status_code&access_token=%s", s.baseURL, containerID, url.QueryEscape(accessToken))

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", graphError(resp.StatusCode, respBody)
	}

	var status transfer.ContainerStatus
	if err := json.Unmarshal(respBody, &status); err != nil {
		return "", fmt.Errorf("error parsing status response: %w", err)
	}
	return status.StatusCode, nil
}

func (s *instagramService) publish(ctx context.Context, accountID, containerID, accessToken string) (string, string, error) {
	payload := map[string]string{
		"creation_id":  containerID,
		"access_token": accessToken,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", "", fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/%s/media_publish", s.baseURL, accountID), bytes.NewBuffer(body))
	if err != nil {
		return "", "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if isRateLimitResponse(respBody) {
			return "", "", errRateLimited
		}
		return "", "", graphError(resp.StatusCode, respBody)
	}

	var result struct {
		ID        string `json:"id"`
		Permalink string `json:"permalink"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", "", fmt.Errorf("error parsing publish response: %w", err)
	}
	if result.ID == "" {
		return "", "", errors.New("no media ID returned from Instagram")
	}

	return result.ID, result.Permalink, nil
}

// verifyAfterRateLimit checks whether the rate-limited publish actually
// went through by inspecting the account's most recent media. A match
// inside the verification window recovers the external identifiers.
func (s *instagramService) verifyAfterRateLimit(ctx context.Context, accountID, accessToken string) *transfer.PublishOutcome {
	slog.Info("publish rate limited, verifying via recent media", "account_id", accountID)

	item, publishedAt, err := s.findRecentMedia(ctx, accountID, accessToken)
	if err != nil {
		return &transfer.PublishOutcome{Error: fmt.Sprintf("rate limited and verification failed: %v", err)}
	}
	if item == nil {
		return &transfer.PublishOutcome{Error: "rate limited and no recent media found"}
	}

	return &transfer.PublishOutcome{
		Success:            true,
		ExternalPostID:     item.ID,
		Permalink:          item.Permalink,
		PublishedAt:        publishedAt,
		RateLimitRecovered: true,
	}
}

func (s *instagramService) findRecentMedia(ctx context.Context, accountID, accessToken string) (*transfer.MediaItem, time.Time, error) {
	reqURL := fmt.Sprintf("%s/%s/media?fields=id,permalink,timestamp&limit=10&access_token=%s",
		s.baseURL, accountID, url.QueryEscape(accessToken))

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("error reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, time.Time{}, graphError(resp.StatusCode, respBody)
	}

	var list transfer.MediaList
	if err := json.Unmarshal(respBody, &list); err != nil {
		return nil, time.Time{}, fmt.Errorf("error parsing media list: %w", err)
	}

	cutoff := s.now().Add(-verifyWindow)
	for _, item := range list.Data {
		ts, err := parseGraphTime(item.Timestamp)
		if err != nil {
			continue
		}
		if ts.After(cutoff) {
			found := item
			return &found, ts, nil
		}
	}
	return nil, time.Time{}, nil
}

func parseGraphTime(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-0700"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// isRateLimitResponse inspects a Graph error body for the rate-limit codes.
func isRateLimitResponse(body []byte) bool {
	var errResp transfer.InstagramErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return false
	}
	switch errResp.Error.Code {
	case 4, 17, 32:
		return true
	}
	return errResp.Error.ErrorSubcode == 2207051
}

func graphError(status int, body []byte) error {
	var errResp transfer.InstagramErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Errorf("instagram error %d (code %d): %s", status, errResp.Error.Code, errResp.Error.Message)
	}
	return fmt.Errorf("unexpected status code from Instagram: %d", status)
}
