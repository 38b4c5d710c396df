package meta_test

import (
	"github.com/reoring/meta"
)

// addressType: street is required, zip has a wire name.
func addressType() *meta.EntityType {
	return meta.NewEntity("Address").
		Field("street", meta.String(meta.Required())).
		Field("city", meta.String()).
		Field("zip", meta.String(meta.Name("postal-code"))).
		MustBuild()
}

// personType nests an Address and carries defaults and a view-restricted
// field.
func personType() (*meta.EntityType, *meta.EntityType) {
	addr := addressType()
	person := meta.NewEntity("Person").
		Field("name", meta.String(meta.Required())).
		Field("age", meta.Integer(meta.Default(0))).
		Field("tags", meta.Many(meta.String(), meta.Unbounded(), meta.DefaultFunc(func() any { return []any{} }))).
		Field("address", addr.Property()).
		Field("secret", meta.String(meta.View("admin"))).
		MustBuild()
	return person, addr
}

// shapeTypes builds an abstract polymorphic root with two concrete kinds.
func shapeTypes() (shape, circle, square *meta.EntityType) {
	shape = meta.NewEntity("Shape").
		Kind("type", nil).
		Field("label", meta.String()).
		MustBuild()
	circle = meta.Extend(shape, "Circle").
		KindValue("circle").
		Field("r", meta.Float(meta.Required())).
		MustBuild()
	square = meta.Extend(shape, "Square").
		KindValue("square").
		Field("side", meta.Float(meta.Required())).
		MustBuild()
	return shape, circle, square
}
