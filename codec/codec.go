// Package codec provides named wire transforms for meta properties.
//
// Importing the package registers them process-wide:
//
//	import _ "github.com/reoring/meta/codec"
//
//	meta.String(meta.Codecs("base64"))
//
// Names: "yaml", "base64", "base64url", "rfc3339". The "json" codec is built
// into meta.
package codec

import "github.com/reoring/meta"

func init() {
	meta.RegisterCodec("yaml", YAML{})
	meta.RegisterCodec("base64", Base64{})
	meta.RegisterCodec("base64url", Base64{URL: true})
	meta.RegisterCodec("rfc3339", RFC3339{})
}
