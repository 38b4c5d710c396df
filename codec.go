package meta

import (
	"fmt"
	"sync"
)

// Codec is a named wire transform layered on top of a property's own
// conversion. Dump runs Encode on the dumped value, load runs Decode on the
// raw value before the property sees it.
//
// Codecs only run when the caller supplies a Context.
type Codec interface {
	Encode(v any, p Property, c *Context) (any, error)
	Decode(v any, p Property, c *Context) (any, error)
}

var (
	codecMu sync.RWMutex
	codecs  = map[string]Codec{}
)

// RegisterCodec installs cd in the process-wide registry under name,
// replacing any previous entry. Register codecs before the first call that
// uses them; package init functions are the usual place.
func RegisterCodec(name string, cd Codec) {
	if cd == nil {
		return
	}
	codecMu.Lock()
	codecs[name] = cd
	codecMu.Unlock()
}

// LookupCodec returns the process-wide codec registered under name.
func LookupCodec(name string) (Codec, error) {
	codecMu.RLock()
	cd, ok := codecs[name]
	codecMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
	return cd, nil
}

// codecRef is one entry of a property's codec chain: a registry name or a
// configured codec value.
type codecRef struct {
	name  string
	codec Codec
}

func (r codecRef) resolve(c *Context) (Codec, error) {
	if r.codec != nil {
		return r.codec, nil
	}
	return c.Codec(r.name)
}

func (r codecRef) String() string {
	if r.codec != nil {
		return fmt.Sprintf("%T", r.codec)
	}
	return r.name
}

func encodeChain(p Property, v any, c *Context) (any, error) {
	for _, ref := range p.Spec().codecs {
		cd, err := ref.resolve(c)
		if err != nil {
			return nil, err
		}
		if v, err = cd.Encode(v, p, c); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func decodeChain(p Property, v any, c *Context) (any, error) {
	refs := p.Spec().codecs
	for i := len(refs) - 1; i >= 0; i-- {
		cd, err := refs[i].resolve(c)
		if err != nil {
			return nil, err
		}
		if v, err = cd.Decode(v, p, c); err != nil {
			return nil, err
		}
	}
	return v, nil
}
