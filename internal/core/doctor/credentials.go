package doctor

import "context"

// Credential is one secret or identity value read from the environment.
type Credential struct {
	Key      string
	Value    string
	Optional bool
	Purpose  string
}

// CredentialsCheck reports which credentials are present without revealing them.
type CredentialsCheck struct {
	creds []Credential
}

func NewCredentialsCheck(creds ...Credential) *CredentialsCheck {
	return &CredentialsCheck{creds: creds}
}

func (c *CredentialsCheck) Name() string {
	return "Credentials"
}

func (c *CredentialsCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	for _, cred := range c.creds {
		switch {
		case cred.Value != "":
			result.Items = append(result.Items, pass(cred.Key, "set"))
		case cred.Optional:
			result.Items = append(result.Items, warn(cred.Key, "not set ("+cred.Purpose+")"))
		default:
			result.Items = append(result.Items, fail(cred.Key, "not set ("+cred.Purpose+")"))
		}
	}

	return result
}
