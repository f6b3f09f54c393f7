package dtlssrtp

// Role is the DTLS handshake role one side of a session plays.
type Role int

const (
	RoleAuto Role = iota
	RoleClient
	RoleServer
)

// RoleFromSetup derives the local DTLS role from the remote SDP's
// a=setup attribute: active offers expect us to answer passive
// (server), passive offers expect us to answer active (client), and
// actpass leaves the choice to us, so we default to client.
func RoleFromSetup(setup string) Role {
	switch setup {
	case "active":
		return RoleServer
	case "passive":
		return RoleClient
	case "actpass":
		return RoleClient
	default:
		return RoleAuto
	}
}

func (r Role) String() string {
	switch r {
	case RoleClient:
		return "client"
	case RoleServer:
		return "server"
	default:
		return "auto"
	}
}
