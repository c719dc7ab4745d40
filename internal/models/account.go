package models

import "time"

// Client is a tenant of the platform. Clients own channel accounts through
// bindings and are optionally assigned to an account representative.
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	RepID     string    `json:"repId,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// ChannelAccount is one account on an upstream marketing platform: an email
// service provider client, a GA property, a Sprout Social account or a USPS
// mail client. ExternalRef carries the upstream platform's own identifier.
type ChannelAccount struct {
	ID          string    `json:"id"`
	Channel     Channel   `json:"channel"`
	Name        string    `json:"name"`
	ExternalRef string    `json:"externalRef,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// AccountBinding links a client to a channel account. The relation is
// many-to-many: an account can be shared and a client usually holds one
// account per channel.
type AccountBinding struct {
	ClientID  string `json:"clientId"`
	AccountID string `json:"accountId"`
}

// Preference is an explicit per-client record of which account to use for a
// channel when the client is bound to more than one. It replaces implicit
// browser-side "preferred account" state; callers inject it into report
// requests.
type Preference struct {
	ClientID  string  `json:"clientId"`
	Channel   Channel `json:"channel"`
	AccountID string  `json:"accountId"`
}
