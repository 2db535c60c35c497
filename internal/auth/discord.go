package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/mirabellier/backend/internal/config"
	"github.com/mirabellier/backend/internal/model"
)

const discordAPIBase = "https://discord.com/api"

var discordEndpoint = oauth2.Endpoint{
	AuthURL:  discordAPIBase + "/oauth2/authorize",
	TokenURL: discordAPIBase + "/oauth2/token",
}

// Discord drives the OAuth code flow against the Discord API.
type Discord struct {
	oauth   *oauth2.Config
	apiBase string
}

func NewDiscord(cfg config.Discord) *Discord {
	return &Discord{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"identify"},
			Endpoint:     discordEndpoint,
		},
		apiBase: discordAPIBase,
	}
}

// Enabled reports whether Discord credentials were configured.
func (d *Discord) Enabled() bool {
	return d.oauth.ClientID != "" && d.oauth.ClientSecret != ""
}

// AuthURL builds the authorization redirect for the given CSRF state.
func (d *Discord) AuthURL(state string) string {
	return d.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for the user's Discord profile.
func (d *Discord) Exchange(ctx context.Context, code string) (model.DiscordProfile, error) {
	token, err := d.oauth.Exchange(ctx, code)
	if err != nil {
		return model.DiscordProfile{}, fmt.Errorf("discord token exchange: %w", err)
	}
	return d.fetchProfile(ctx, token)
}

func (d *Discord) fetchProfile(ctx context.Context, token *oauth2.Token) (model.DiscordProfile, error) {
	client := d.oauth.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.apiBase+"/users/@me", nil)
	if err != nil {
		return model.DiscordProfile{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return model.DiscordProfile{}, fmt.Errorf("discord profile fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return model.DiscordProfile{}, fmt.Errorf("discord profile fetch: status %d", resp.StatusCode)
	}

	var body struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Avatar   string `json:"avatar"`
		Banner   string `json:"banner"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.DiscordProfile{}, err
	}

	profile := model.DiscordProfile{
		ID:       body.ID,
		Username: body.Username,
	}
	// Discord returns bare asset hashes; store full CDN URLs.
	if body.Avatar != "" {
		profile.Avatar = fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", body.ID, body.Avatar)
	}
	if body.Banner != "" {
		profile.Banner = fmt.Sprintf("https://cdn.discordapp.com/banners/%s/%s.png", body.ID, body.Banner)
	}
	return profile, nil
}
