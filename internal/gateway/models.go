package gateway

import "github.com/muurk/starvectl/internal/session"

// DiscoverRequest is the body of POST /api/discover
type DiscoverRequest struct {
	Interface string `json:"interface"`
}

// DiscoverResult is the success body of POST /api/discover
type DiscoverResult struct {
	ServerAddress string              `json:"server_ip"`
	Network       session.NetworkInfo `json:"network_info"`
}

// StartRequest is the body of POST /api/attack/start
type StartRequest struct {
	Interface     string `json:"interface"`
	ServerAddress string `json:"dhcp_server"`
}

// StatusResult is the body of GET /api/attack/status
type StatusResult struct {
	Running bool                 `json:"running"`
	Leases  []session.Lease      `json:"stolen_ips"`
	Network *session.NetworkInfo `json:"network_info,omitempty"`
}

// ReleaseRequest is the body of POST /api/attack/release
type ReleaseRequest struct {
	Address       string `json:"ip"`
	Interface     string `json:"interface"`
	ServerAddress string `json:"dhcp_server"`
}

// ReleaseResult is the success body of POST /api/attack/release
type ReleaseResult struct {
	Remaining int `json:"remaining"`
}

// ReleaseAllRequest is the body of POST /api/attack/release-all
type ReleaseAllRequest struct {
	Interface     string `json:"interface"`
	ServerAddress string `json:"dhcp_server"`
}

// ReleaseAllResult is the success body of POST /api/attack/release-all
type ReleaseAllResult struct {
	Released int `json:"released"`
}

type errorBody struct {
	Error string `json:"error"`
}
