// Package mcpchat wires the tool server registry, tool bridge, result relay, model oracle and
// HTTP surface into a single process.
//
// Typical usage:
//
//	options, err := mcpchat.ParseOptions(os.Args[1:])
//	...
//	service, err := mcpchat.New(ctx, options)
//	...
//	err = service.ListenAndServe(ctx)
package mcpchat
