// Package websocket streams analysis lifecycle events to browser
// clients. A Hub fans each published Event out to every connected
// Client; clients are receive-only.
package websocket
