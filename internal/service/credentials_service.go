package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	config "github.com/postvault/postvault/configs"
	"github.com/postvault/postvault/internal/models"
	"github.com/postvault/postvault/internal/repository"
	"github.com/postvault/postvault/internal/transfer"
	"github.com/postvault/postvault/pkg/utils"
	"golang.org/x/oauth2"
)

// refreshLeeway is how close to expiry a long-lived token gets before the
// refresh job renews it.
const refreshLeeway = 7 * 24 * time.Hour

var instagramEndpoint = oauth2.Endpoint{
	AuthURL:  "https://api.instagram.com/oauth/authorize",
	TokenURL: "https://api.instagram.com/oauth/access_token",
}

type CredentialsService interface {
	AuthURL(state string) string
	Callback(ctx context.Context, code string) error
	Refresh(ctx context.Context) error
	Get(ctx context.Context) (*models.Credentials, error)
	Disconnect(ctx context.Context) error
}

type credentialsService struct {
	cfg      config.Config
	cr       repository.CredentialsRepository
	notifier ChangeNotifier
}

func NewCredentialsService(cfg config.Config, cr repository.CredentialsRepository, notifier ChangeNotifier) CredentialsService {
	return &credentialsService{cfg: cfg, cr: cr, notifier: notifier}
}

func (s *credentialsService) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.InstagramClientID,
		ClientSecret: s.cfg.InstagramClientSecret,
		RedirectURL:  s.cfg.InstagramRedirectURI,
		Scopes:       []string{"instagram_business_basic", "instagram_business_content_publish"},
		Endpoint:     instagramEndpoint,
	}
}

func (s *credentialsService) AuthURL(state string) string {
	return s.oauthConfig().AuthCodeURL(state)
}

// Callback exchanges the authorization code for a short-lived token, trades
// it for a long-lived one, and stores the encrypted credentials. The
// credentials ride along in the snapshot so any client can publish.
func (s *credentialsService) Callback(ctx context.Context, code string) error {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return err
	}

	shortLived, err := s.oauthConfig().Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("failed to exchange code: %w", err)
	}

	token, err := s.getLongLivedToken(shortLived.AccessToken)
	if err != nil {
		return err
	}

	userInfo, err := s.getUserInfo(token.LongLivedToken)
	if err != nil {
		return err
	}

	encryptedToken, err := utils.Encrypt([]byte(token.LongLivedToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	creds := &models.Credentials{
		Connected:      true,
		AccountID:      userInfo.UserID,
		AccessToken:    encryptedToken,
		TokenExpiresAt: token.ExpiresAt,
		RefreshedAt:    time.Now(),
	}
	if err := s.cr.Set(ctx, nil, creds); err != nil {
		return err
	}

	s.notifier.NotifyChange(ctx)
	return nil
}

func (s *credentialsService) getLongLivedToken(shortLivedToken string) (*transfer.InstagramToken, error) {
	url := fmt.Sprintf(
		"https://graph.instagram.com/access_token?grant_type=ig_exchange_token&client_secret=%s&access_token=%s",
		s.cfg.InstagramClientSecret,
		shortLivedToken,
	)

	resp, err := http.Get(url)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to get long-lived token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("error response from Instagram: %s (status code: %d)", body, resp.StatusCode)
	}

	var result struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to decode long-lived token response: %w", err)
	}

	return &transfer.InstagramToken{
		AccessToken:    result.AccessToken,
		LongLivedToken: result.AccessToken,
		ExpiresAt:      time.Now().Add(time.Second * time.Duration(result.ExpiresIn)),
	}, nil
}

func (s *credentialsService) getUserInfo(accessToken string) (*transfer.InstagramUserInfo, error) {
	reqURL := fmt.Sprintf("https://graph.instagram.com/me?fields=id,username&access_token=%s", accessToken)

	resp, err := http.Get(reqURL)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	var userInfo transfer.InstagramUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return &userInfo, nil
}

// Refresh renews the long-lived token when it is close to expiry. Called
// periodically by the credentials refresh job.
func (s *credentialsService) Refresh(ctx context.Context) error {
	creds, err := s.cr.Get(ctx)
	if err != nil {
		return err
	}
	if creds == nil || !creds.Connected {
		return nil
	}
	if time.Until(creds.TokenExpiresAt) > refreshLeeway {
		return nil
	}

	decryptedToken, err := utils.Decrypt(creds.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	url := fmt.Sprintf(
		"https://graph.instagram.com/refresh_access_token?grant_type=ig_refresh_token&access_token=%s",
		decryptedToken,
	)

	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}
	if result.AccessToken == "" {
		return errors.New("no access token in refresh response")
	}

	encryptedToken, err := utils.Encrypt([]byte(result.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	creds.AccessToken = encryptedToken
	creds.TokenExpiresAt = time.Now().Add(time.Second * time.Duration(result.ExpiresIn))
	creds.RefreshedAt = time.Now()

	if err := s.cr.Set(ctx, nil, creds); err != nil {
		return err
	}

	s.notifier.NotifyChange(ctx)
	return nil
}

func (s *credentialsService) Get(ctx context.Context) (*models.Credentials, error) {
	return s.cr.Get(ctx)
}

func (s *credentialsService) Disconnect(ctx context.Context) error {
	creds := &models.Credentials{Connected: false, RefreshedAt: time.Now()}
	if err := s.cr.Set(ctx, nil, creds); err != nil {
		return err
	}
	s.notifier.NotifyChange(ctx)
	return nil
}
