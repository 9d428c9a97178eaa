package tenant

import "strings"

// DefaultIconURL is shown when neither the tenant nor its application has an icon.
const DefaultIconURL = "https://storage.googleapis.com/ta_saas/saas_todos.png"

// Status is the lifecycle status reported by the tenant-management service.
// Unrecognized values are kept verbatim but classified as StatusUnknown.
type Status struct {
	kind statusKind
	raw  string
}

type statusKind int

const (
	statusUnknown statusKind = iota
	statusActivated
	statusDeactivated
)

var (
	StatusActivated   = Status{kind: statusActivated, raw: "activated"}
	StatusDeactivated = Status{kind: statusDeactivated, raw: "deactivated"}
	StatusUnknown     = Status{kind: statusUnknown}
)

// KnownStatuses lists every status the service is known to emit.
func KnownStatuses() []Status {
	return []Status{StatusActivated, StatusDeactivated}
}

// ParseStatus maps a wire value onto the closed status set.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "activated":
		return StatusActivated
	case "deactivated":
		return StatusDeactivated
	default:
		return Status{kind: statusUnknown, raw: raw}
	}
}

// Raw returns the value as received.
func (s Status) Raw() string { return s.raw }

// Known reports whether the status is one of KnownStatuses.
func (s Status) Known() bool { return s.kind != statusUnknown }

func (s Status) String() string { return s.raw }

// Tone is how a status is presented to operators.
type Tone string

const (
	TonePositive Tone = "positive"
	ToneNegative Tone = "negative"
	TonePending  Tone = "pending"
)

// Tone maps every status kind explicitly; unknown statuses read as pending.
func (s Status) Tone() Tone {
	switch s.kind {
	case statusActivated:
		return TonePositive
	case statusDeactivated:
		return ToneNegative
	case statusUnknown:
		return TonePending
	}
	panic("tenant: status kind without tone")
}

// MarshalText keeps the wire value on the way out.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.raw), nil
}

// UnmarshalText parses the wire value.
func (s *Status) UnmarshalText(b []byte) error {
	*s = ParseStatus(string(b))
	return nil
}

// Resources are the optional endpoints attached to a deployed tenant.
type Resources struct {
	ComputeURL *string `json:"compute_url,omitempty"`
	AppIcon    *string `json:"app_icon,omitempty"`
	TenantIcon *string `json:"tenant_icon,omitempty"`
	ServingURL *string `json:"serving_url,omitempty"`
}

// Tenant is a deployed application instance for an organization. The record
// is owned by the tenant-management service; this side only reads snapshots.
type Tenant struct {
	ID        int64      `json:"tenant_id"`
	Name      string     `json:"name"`
	Status    Status     `json:"status"`
	ProductID string     `json:"product_id"`
	Tier      string     `json:"tier"`
	AppID     int64      `json:"app_id"`
	AppName   string     `json:"app_name"`
	Resources *Resources `json:"resource_information"`
}

// IconURL prefers the tenant icon, then the application icon.
func (t *Tenant) IconURL() string {
	if t.Resources != nil {
		if v := deref(t.Resources.TenantIcon); v != "" {
			return v
		}
		if v := deref(t.Resources.AppIcon); v != "" {
			return v
		}
	}
	return DefaultIconURL
}

// ServingURL returns the public URL, or "#" when the tenant is not serving.
func (t *Tenant) ServingURL() string {
	if t.Resources != nil {
		if v := deref(t.Resources.ServingURL); v != "" {
			return v
		}
	}
	return "#"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
