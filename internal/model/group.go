package model

// Group represents one service group
type Group struct {
	GroupCode   string `json:"groupCode"`
	GroupName   string `json:"groupName"`
	ServiceName string `json:"serviceName"`
}

// Snapshot returns the group's observable fields for audit capture
func (g *Group) Snapshot() map[string]any {
	return map[string]any{
		"group_name":   g.GroupName,
		"service_name": g.ServiceName,
	}
}
