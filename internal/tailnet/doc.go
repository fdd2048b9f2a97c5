// Package tailnet embeds a tailscale node so mission-control can reach a
// gateway exposed only on a tailnet, without a system tailscaled.
//
// The node state lives under ~/.local/share/mission-control/tailscale unless
// transport.tailscale.state_dir is set. The auth key comes from config or
// the TS_AUTHKEY environment variable.
package tailnet
