// Package binders provides the binder strategies that write call arguments
// into a request payload.
//
// Whole-object binders (JSON, XML, Raw) serialize the argument declared with
// rest.InBody. Map binders (KeyValue, Template, Form, XMLDocument) render
// the named arguments declared with rest.InPayload.
//
// Map binders take field names in declaration order. A trailing "?" marks a
// field optional: KeyValue("name", "size?") skips the size line when no size
// was given. A missing required field fails with *rest.MissingParameterError.
package binders
