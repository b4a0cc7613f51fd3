package drafts

import (
	"github.com/debemdeboas/the-press/internal/auth"
	"github.com/debemdeboas/the-press/internal/model"
)

type ViewState int

const (
	// ViewLoading is shown while the session is unresolved.
	ViewLoading ViewState = iota
	ViewDenied
	ViewAuthorized
	// ViewUnavailable is shown when the drafts could not be read.
	ViewUnavailable
)

func (s ViewState) String() string {
	switch s {
	case ViewDenied:
		return "denied"
	case ViewAuthorized:
		return "authorized"
	case ViewUnavailable:
		return "unavailable"
	default:
		return "loading"
	}
}

// View is what the drafts templates render. Drafts is empty unless State is
// ViewAuthorized.
type View struct {
	State  ViewState
	Drafts []model.Post
}

func (v View) IsLoading() bool     { return v.State == ViewLoading }
func (v View) IsDenied() bool      { return v.State == ViewDenied }
func (v View) IsAuthorized() bool  { return v.State == ViewAuthorized }
func (v View) IsUnavailable() bool { return v.State == ViewUnavailable }

// Guard decides what the current session may see. drafts and err are the
// result of the lookup and are ignored unless the session is allowed.
func Guard(state auth.SessionState, drafts []model.Post, err error) View {
	switch auth.CanViewDrafts(state) {
	case auth.Allow:
		if err != nil {
			return View{State: ViewUnavailable, Drafts: []model.Post{}}
		}
		if drafts == nil {
			drafts = []model.Post{}
		}
		return View{State: ViewAuthorized, Drafts: drafts}
	case auth.Deny:
		return View{State: ViewDenied, Drafts: []model.Post{}}
	default:
		return View{State: ViewLoading, Drafts: []model.Post{}}
	}
}
