package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// The wire shapes mirror what the remote executor serves from its catalog
// endpoint. Types arrive as plain keywords, defaults as untyped JSON.

type wireCatalog struct {
	Operations []wireOperation `json:"operations"`
}

type wireOperation struct {
	Name        string      `json:"name"`
	Category    string      `json:"category,omitempty"`
	Description string      `json:"description,omitempty"`
	Parameters  []wireParam `json:"parameters,omitempty"`
}

type wireParam struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Default     any      `json:"default,omitempty"`
	Options     []string `json:"options,omitempty"`
}

// FromWire decodes the remote catalog payload into the same Catalog shape the
// manifest loader produces.
func FromWire(data []byte) (Catalog, error) {
	var wire wireCatalog
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode catalog payload: %w", err)
	}
	return fromWire(&wire)
}

// FromWireValue decodes an already-unmarshalled catalog payload, as delivered
// over the event channel.
func FromWireValue(payload any) (Catalog, error) {
	// Round-trip through JSON: the socket layer hands us loosely typed maps.
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode catalog payload: %w", err)
	}
	return FromWire(data)
}

func fromWire(wire *wireCatalog) (Catalog, error) {
	cat := Catalog{}
	for _, wop := range wire.Operations {
		if wop.Name == "" {
			return nil, fmt.Errorf("catalog payload contains an operation without a name")
		}
		op := &Operation{
			Name:        wop.Name,
			Category:    wop.Category,
			Description: wop.Description,
			Params:      make(map[string]ParamDefinition, len(wop.Parameters)),
		}
		for _, wp := range wop.Parameters {
			def, err := wireParamToDefinition(wp)
			if err != nil {
				return nil, fmt.Errorf("operation %q: %w", wop.Name, err)
			}
			op.Params[wp.Name] = def
		}
		cat[op.Name] = op
	}
	return cat, nil
}

func wireParamToDefinition(wp wireParam) (ParamDefinition, error) {
	def := ParamDefinition{
		Name:        wp.Name,
		Description: wp.Description,
		Options:     wp.Options,
	}
	ty, err := typeNameToCty(wp.Type)
	if err != nil {
		return def, fmt.Errorf("parameter %q: %w", wp.Name, err)
	}
	def.Type = ty

	if wp.Default != nil {
		ctyVal, err := nativeToCty(wp.Default)
		if err != nil {
			return def, fmt.Errorf("parameter %q default: %w", wp.Name, err)
		}
		converted, err := convert.Convert(ctyVal, ty)
		if err != nil {
			return def, fmt.Errorf("parameter %q default does not match type %s: %w",
				wp.Name, ty.FriendlyName(), err)
		}
		def.Default = &converted
	}
	return def, nil
}

func typeNameToCty(name string) (cty.Type, error) {
	switch name {
	case "string":
		return cty.String, nil
	case "number":
		return cty.Number, nil
	case "bool":
		return cty.Bool, nil
	case "list":
		return cty.List(cty.DynamicPseudoType), nil
	case "map":
		return cty.Map(cty.DynamicPseudoType), nil
	case "any", "":
		return cty.DynamicPseudoType, nil
	}
	return cty.NilType, fmt.Errorf("unsupported type keyword %q", name)
}
