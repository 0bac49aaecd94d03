package controllers

import (
	"net/http"

	"github.com/angelmondragon/gallery-backend/api/responses"
	"github.com/angelmondragon/gallery-backend/pkg/config"
)

type clientConfigResponse struct {
	SupabaseURL     string `json:"supabase_url"`
	SupabaseAnonKey string `json:"supabase_anon_key"`
}

// ClientConfig publishes the public values the frontend needs to create its
// Supabase client. Unset values are returned as empty strings.
func ClientConfig(cfg config.SupabaseConfig) http.HandlerFunc {
	body := clientConfigResponse{
		SupabaseURL:     cfg.URL,
		SupabaseAnonKey: cfg.AnonKey,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=300")
		responses.WriteSuccess(w, body)
	}
}
