// Package present holds the rendering side of the lease table: the rendered
// row set with its transition states, immutable snapshots of controller
// state, and the Renderer interface that display targets implement.
//
// The controller applies reconciliation plans and release results to a
// Table and pushes Snapshots to a Renderer. Renderers never mutate state.
package present
