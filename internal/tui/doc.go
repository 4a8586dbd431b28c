// Package tui is the full-screen operator console built on Bubble Tea.
//
// # Screens
//
// The application has two screens:
//
//   - Picker: lists the network interfaces reported by the lab service.
//     Enter selects one, r reloads.
//   - Console: attack status, interface and DHCP server fields, the
//     discovered network, the acquired lease table and the last
//     notification.
//
// # Console Keys
//
//	d  discover the DHCP server on the selected interface
//	s  start or stop the attack
//	x  release the lease under the cursor
//	R  release every lease (asks y/n first)
//	e  edit the DHCP server address (not while attacking)
//	i  choose another interface (not while attacking)
//	t  switch between light and dark themes
//	q  quit
//
// # Rendering
//
// All state lives in an attack.Controller. The controller publishes
// snapshots and notices through a Bridge, which forwards them to the
// running program as messages. Controller operations are always run from
// tea.Cmd functions, never from Update, because publishing blocks until the
// event loop accepts the message.
//
// Quitting disposes the controller but leaves a running attack running on
// the service.
package tui
