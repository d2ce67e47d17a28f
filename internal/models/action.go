package models

// ActionKind separates requirement probes from every other command link.
type ActionKind string

const (
	KindCommand     ActionKind = "command"
	KindRequirement ActionKind = "requirement"
)

// Action is a capability reference extracted from a didact:// link.
type Action struct {
	Capability string            `json:"capability"`
	Params     []string          `json:"params"`
	Named      map[string]string `json:"named,omitempty"`
	LinkText   string            `json:"linkText"`
	Href       string            `json:"href"`
	// Index is the link's position among all action links in document order.
	Index int        `json:"index"`
	Kind  ActionKind `json:"kind"`
}

// RequirementID returns the id of the badge a requirement action updates.
func (a Action) RequirementID() string {
	if a.Kind != KindRequirement || len(a.Params) == 0 {
		return ""
	}
	return a.Params[0]
}
