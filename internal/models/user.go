package models

// Users live in a schema-less collection: registration stores whatever the
// client sends. These are the fields the API itself reads or writes.
const (
	UsersCollection = "users"

	FieldEmail     = "email"
	FieldPassword  = "password"
	FieldFirstName = "firstname"
	FieldLastName  = "lastname"
	FieldImgURL    = "imgurl"

	// Older clients send the credential as "pwd".
	FieldLegacyPassword = "pwd"
)

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Pwd      string `json:"pwd"`
}

// Secret returns the supplied credential, whichever key carried it.
func (c Credentials) Secret() string {
	if c.Password != "" {
		return c.Password
	}
	return c.Pwd
}

// PasswordChange is the change-password request body. The identifier is
// sent as "emailid" by the client app; "email" is accepted too.
type PasswordChange struct {
	EmailID  string `json:"emailid"`
	Email    string `json:"email"`
	Pwd      string `json:"pwd"`
	Password string `json:"password"`
}

func (p PasswordChange) Identifier() string {
	if p.EmailID != "" {
		return p.EmailID
	}
	return p.Email
}

func (p PasswordChange) Secret() string {
	if p.Pwd != "" {
		return p.Pwd
	}
	return p.Password
}
