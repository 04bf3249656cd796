package models

// Session is the client's belief about setup and authentication.
type Session struct {
	Loading         bool  `json:"loading" yaml:"loading"`
	IsAuthenticated bool  `json:"is_authenticated" yaml:"is_authenticated"`
	User            *User `json:"user,omitempty" yaml:"user,omitempty"`
	SetupRequired   bool  `json:"setup_required" yaml:"setup_required"`
}
