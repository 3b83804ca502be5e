package entity

// VerifyType selects how requests arriving on a channel are authenticated.
type VerifyType int

const (
	VerifyNone      VerifyType = 0 // No request signature is checked.
	VerifySignature VerifyType = 1 // The request must carry a valid head.sign.
)

// Channel is a registered client surface (web, app, partner) identified by a numeric code.
type Channel struct {
	Code       int        // Stable numeric channel code sent in every request head.
	Name       string     // Display name.
	Abbr       string     // Short name, used when Name is empty.
	VerifyType VerifyType // Signature requirement for the channel.
	Status     Status     // Only Enabled channels accept requests.
	Secret     string     // Shared signing secret; empty means the request time is used instead.
}

// DisplayName returns the channel name, falling back to its abbreviation.
func (c *Channel) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}

	return c.Abbr
}

// RequiresSignature reports whether requests on this channel must be signed.
func (c *Channel) RequiresSignature() bool {
	return c.VerifyType == VerifySignature
}
