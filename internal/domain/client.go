package domain

// ClientStatus flips between active and inactive; history is never deleted.
type ClientStatus string

const (
	ClientActive   ClientStatus = "active"
	ClientInactive ClientStatus = "inactive"
)

// Source kinds understood by the content-source registry.
const (
	SourceWordPress = "wordpress"
	SourceRSS       = "rss"
)

// Source points at the content origin of a client.
type Source struct {
	Kind     string
	Endpoint string
}

// SocialCredentials authenticate a client against the social publisher.
type SocialCredentials struct {
	Account string
	Secret  string
}

// Client is a tenant with its pipeline configuration.
type Client struct {
	ID            int64
	Username      string
	Status        ClientStatus
	Source        Source
	Social        SocialCredentials
	ReportTo      string
	RemixEnabled  bool
	NicheKeywords string
}

// Active reports whether the client takes part in scheduled runs.
func (c Client) Active() bool {
	return c.Status == ClientActive
}
