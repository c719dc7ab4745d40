package models

// Channel identifies a marketing platform category. Each channel has its
// own fact schema and its own upstream ingestion pipeline.
type Channel string

const (
	ChannelEmail      Channel = "email"
	ChannelDirectMail Channel = "direct-mail"
	ChannelPaidSocial Channel = "paid-social"
	ChannelPaidSearch Channel = "paid-search"
)

// AllChannels returns every channel in the canonical merge order. Report
// payloads always assemble channels in this order so responses are stable.
func AllChannels() []Channel {
	return []Channel{ChannelEmail, ChannelDirectMail, ChannelPaidSocial, ChannelPaidSearch}
}

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelDirectMail, ChannelPaidSocial, ChannelPaidSearch:
		return true
	}
	return false
}
