package auth

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/debemdeboas/the-press/internal/config"
	"github.com/debemdeboas/the-press/internal/routes"
)

// RegisterEd25519AuthRoutes registers the sign-in page and the challenge,
// sign-in and sign-out endpoints on mux.
func RegisterEd25519AuthRoutes(mux *http.ServeMux, provider *Ed25519AuthProvider, fsys fs.FS) error {
	tmpl, err := template.ParseFS(
		fsys,
		config.TemplatesLocalDir+"/"+config.TemplateLayout,
		config.TemplatesLocalDir+"/"+config.TemplateAuth,
	)
	if err != nil {
		return fmt.Errorf("error loading auth template: %w", err)
	}

	mux.HandleFunc("GET "+routes.AuthChallenge, provider.ServeChallenge)
	mux.HandleFunc("POST "+routes.AuthChallenge, provider.RotateChallenge)
	mux.HandleFunc("POST "+routes.AuthVerify, provider.SignIn)
	mux.HandleFunc("POST "+routes.AuthLogout, provider.SignOut)
	mux.HandleFunc("GET "+routes.AuthLogin, provider.loginPage(tmpl))
	return nil
}
