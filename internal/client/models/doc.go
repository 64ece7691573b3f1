// Package models defines the client-side projections of server-owned
// entities. None of these are authoritative; they are decoded from REST
// responses and discarded or refreshed as needed.
package models
