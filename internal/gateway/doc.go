// Package gateway is the HTTP client for the DHCP exhaustion lab service.
//
// The service performs the packet-level work (discovery, lease acquisition,
// release on the wire); this package only speaks its JSON API:
//
//	GET  /api/interfaces
//	POST /api/discover           {interface}
//	POST /api/attack/start       {interface, dhcp_server}
//	POST /api/attack/stop
//	GET  /api/attack/status
//	POST /api/attack/release     {ip, interface, dhcp_server}
//	POST /api/attack/release-all {interface, dhcp_server}
//
// # Usage Example
//
//	client := gateway.NewClient("http://192.168.56.10:5000")
//
//	found, err := client.Discover(ctx, "eth0")
//	if err != nil {
//	    fmt.Println(gateway.UserMessage(err, "DHCP server not found"))
//	    return
//	}
//	err = client.StartAttack(ctx, "eth0", found.ServerAddress)
//
// # Error Handling
//
// Every operation makes a single attempt and returns failures as *Error
// values with one of three kinds:
//   - KindValidation: input rejected before any request was sent
//   - KindGateway: the service answered with a non-2xx status; Message holds
//     its "error" field when it sent one
//   - KindTransport: the request failed or the body could not be decoded
//
// There are no retries. Every call is triggered by the operator, and the
// operator retries by repeating the action.
//
// # Thread Safety
//
// A Client is safe for concurrent use once configured.
package gateway
