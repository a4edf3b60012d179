package oauth

import (
	"golang.org/x/oauth2"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/config"
)

// NewConfig builds the refresh-only oauth2 config for the storefront. The
// authorization step happens on the storefront side and arrives through the
// app.store.authorize webhook, so no AuthURL or RedirectURL is needed.
func NewConfig(salla config.Salla) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     salla.ClientID,
		ClientSecret: salla.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  salla.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}
