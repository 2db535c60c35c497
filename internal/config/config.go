package config

import (
	"os"
	"strconv"
)

type Config struct {
	Addr           string
	DBPath         string
	TokenSecret    string
	ImagesDir      string
	VideosDir      string
	FrontendURL    string
	Discord        Discord
	RateLimits     RateLimits
	MaxUploadBytes int64
}

type Discord struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

type RateLimits struct {
	AuthPerMinute    int
	WritePerMinute   int
	UploadPerMinute  int
	CommentPerMinute int
}

func Load() Config {
	addr := envString("MIRA_ADDR", "")
	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		} else {
			addr = ":5000"
		}
	}
	cfg := Config{
		Addr:        addr,
		DBPath:      envString("MIRA_DB", "mirabellier.db"),
		TokenSecret: envString("MIRA_TOKEN_SECRET", ""),
		ImagesDir:   envString("MIRA_IMAGES_DIR", "uploads/images"),
		VideosDir:   envString("MIRA_VIDEOS_DIR", "uploads/videos"),
		FrontendURL: envString("MIRA_FRONTEND_URL", "http://localhost:3000"),
		Discord: Discord{
			ClientID:     envString("DISCORD_CLIENT_ID", ""),
			ClientSecret: envString("DISCORD_CLIENT_SECRET", ""),
			CallbackURL:  envString("DISCORD_CALLBACK_URL", "http://localhost:5000/auth/discord/callback"),
		},
		RateLimits: RateLimits{
			AuthPerMinute:    envInt("MIRA_RL_AUTH_PER_MIN", 10),
			WritePerMinute:   envInt("MIRA_RL_WRITE_PER_MIN", 30),
			UploadPerMinute:  envInt("MIRA_RL_UPLOAD_PER_MIN", 10),
			CommentPerMinute: envInt("MIRA_RL_COMMENT_PER_MIN", 30),
		},
		MaxUploadBytes: envInt64("MIRA_MAX_UPLOAD_BYTES", 50<<20),
	}

	return cfg
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}
