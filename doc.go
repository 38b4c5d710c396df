// Package meta declares record schemas and converts between wire values and
// typed in-memory entities.
//
// It provides:
//
// - Entity types built from fields (NewEntity, Extend), with defaults, views,
// wire names, ordered fields and relational hooks
// - Polymorphic hierarchies dispatched on a discriminator field (Kind)
// - Tuples with repeat cardinalities, unions and forward references (Ref)
// - Load, Dump and Validate with accumulated Issues addressed by JSON Pointer
// - Named codecs layered on a property's own conversion
//
// A Context configures one call: visible views, strict key checking and the
// error budget. Passing nil opens an implicit context that skips codecs.
//
// Typical usage:
//
//	user := meta.NewEntity("User").
//		Field("id", meta.Integer(meta.Required(), meta.Ordered())).
//		Field("email", meta.String(meta.Name("e-mail"))).
//		MustBuild()
//
//	c := meta.NewContext(meta.WithStrict(true), meta.WithMaxErrors(10))
//	u, err := user.Load(raw, c)
//	if err != nil {
//		for _, it := range c.Errors() {
//			fmt.Println(it.Path, it.Code)
//		}
//	}
//	out, err := u.Dump(nil)
package meta
