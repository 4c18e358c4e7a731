// Package rest turns method invocations into HTTP requests and HTTP
// responses into typed results.
//
// # Overview
//
// Every API method is described once by an immutable Descriptor: verb, path
// template, static headers and query, declared parameters, an ordered binder
// list, one parser, one fallback and an ordered filter list. A call flows
// through a fixed pipeline:
//
//	synthesize -> binders -> filters -> dispatch -> parser | fallback
//
// Strategies live in sub packages: binders, parsers, fallbacks and filters.
// The HTTP dispatcher is provided by the restclient package.
//
// # Declaring a method
//
//	var getServer = rest.NewDescriptor("servers.get").
//	  GET("/servers/{id}").
//	  Accepts("application/json").
//	  Parse(parsers.JSON[Server]()).
//	  Fallback(fallbacks.NullOnNotFound()).
//	  MustBuild()
//
// # Invoking
//
//	server, err := rest.Invoke[*Server](ctx, invoker, getServer, rest.Args{"id": "42"})
//
// InvokeAsync returns a Pending handle instead of blocking. Descriptors can
// also be registered in a Registry and invoked by ID with InvokeID.
//
// # Errors
//
// Missing arguments are reported as MissingArgumentError before anything is
// sent. Failed dispatches surface as HTTPStatusError or TransportError unless
// the descriptor's fallback substitutes a value or asks for a retry. Parsers
// report unreadable bodies as MalformedResponseError.
package rest
