// Package websocket streams the knowledge-base state to WebSocket clients.
//
// A Hub is an http.Handler. Each accepted connection first receives the
// latest state, then every subsequent state as it is published. Delivery is
// latest-value: a slow client skips intermediate states and only ever
// receives the newest one.
package websocket
