package auth

import (
	libspotify "github.com/zmb3/spotify"
	"golang.org/x/oauth2"
)

// Scopes requested during login.
var Scopes = []string{
	libspotify.ScopePlaylistReadPrivate,
	libspotify.ScopeUserReadEmail,
	libspotify.ScopeUserTopRead,
	libspotify.ScopeUserLibraryRead,
	libspotify.ScopeUserLibraryModify,
}

// NewConfig builds the OAuth2 client configuration for Spotify. Client
// credentials are always sent in the Authorization header; the library's
// auto-detection would otherwise retry a failed refresh with the other style.
func NewConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   libspotify.AuthURL,
			TokenURL:  libspotify.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// AuthCodeURL returns the consent page URL for state. The dialog is always
// shown so users can switch accounts after logging out.
func AuthCodeURL(cfg *oauth2.Config, state string) string {
	return cfg.AuthCodeURL(state, oauth2.SetAuthURLParam("show_dialog", "true"))
}
