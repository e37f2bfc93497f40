// Package openapi builds a stepform FormSchema from an OpenAPI 3 operation.
// Documents are read from files, an fs.FS or HTTP and parsed with
// kin-openapi; the operation's JSON request body becomes the form.
package openapi
