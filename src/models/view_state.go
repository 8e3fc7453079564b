package models

// ViewState is what the invite page shows for a resolved invite token.
type ViewState string

const (
	ViewLoading       ViewState = "loading"
	ViewInvalid       ViewState = "invalid"
	ViewLoginRequired ViewState = "login_required"
	ViewMember        ViewState = "member"
	ViewAwaiting      ViewState = "awaiting"
	ViewCanRequest    ViewState = "can_request"
)

// Terminal reports whether the resolver stops issuing lookups in this state.
func (s ViewState) Terminal() bool {
	return s == ViewInvalid
}
