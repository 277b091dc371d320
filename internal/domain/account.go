package domain

// Account represents a registered user of the desktop application.
type Account struct {
	Username string `json:"username"` // Unique, chosen at signup
	Email    string `json:"email"`    // Unique, chosen at signup
	// Password holds the bcrypt hash of the credential.
	// Never expose this via JSON.
	Password    string         `json:"-"`
	FullName    string         `json:"fullname"`
	Title       string         `json:"title"`
	Avatar      string         `json:"avatar,omitempty"` // Encoded image blob or reference
	Preferences map[string]any `json:"preferences,omitempty"`
	LastLogin   string         `json:"last_login,omitempty"` // "2006-01-02 15:04:05" wall clock
}

// TimestampLayout is the wall-clock format used for last_login and
// media record timestamps. The UI renders these strings verbatim.
const TimestampLayout = "2006-01-02 15:04:05"

// Projection returns a copy of the account that is safe to hand to the UI.
// The credential field is dropped; the preference map is copied so callers
// cannot mutate stored state through the projection.
func (a *Account) Projection() *Account {
	if a == nil {
		return nil
	}
	p := *a
	p.Password = ""
	if a.Preferences != nil {
		p.Preferences = make(map[string]any, len(a.Preferences))
		for k, v := range a.Preferences {
			p.Preferences[k] = v
		}
	}
	return &p
}
