package transfer

import "time"

type InstagramToken struct {
	AccessToken    string    `json:"access_token"`
	LongLivedToken string    `json:"long_lived_token"`
	ExpiresAt      time.Time `json:"expires_at"`
}

type InstagramUserInfo struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
}

type InstagramErrorResponse struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		IsTransient  bool   `json:"is_transient"`
		FbtraceID    string `json:"fbtrace_id"`
	} `json:"error"`
}

// Container status codes as reported by the Graph API.
const (
	ContainerStatusReady      = "READY"
	ContainerStatusInProgress = "IN_PROGRESS"
	ContainerStatusError      = "ERROR"
	ContainerStatusExpired    = "EXPIRED"
)

type ContainerStatus struct {
	ID         string `json:"id"`
	StatusCode string `json:"status_code"`
}

type MediaItem struct {
	ID        string `json:"id"`
	Permalink string `json:"permalink"`
	Timestamp string `json:"timestamp"`
}

type MediaList struct {
	Data []MediaItem `json:"data"`
}

// PublishOutcome is the publish pipeline's result for one post.
type PublishOutcome struct {
	Success            bool      `json:"success"`
	ExternalPostID     string    `json:"externalPostId,omitempty"`
	Permalink          string    `json:"permalink,omitempty"`
	PublishedAt        time.Time `json:"publishedAt,omitempty"`
	Error              string    `json:"error,omitempty"`
	RateLimitRecovered bool      `json:"rateLimitRecovered,omitempty"`
}
