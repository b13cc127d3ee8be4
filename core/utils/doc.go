// Package utils provides loose conversions for values that arrive untyped:
// decoded API continuation fields and HTTP query parameters.
package utils
