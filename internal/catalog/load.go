package catalog

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/flowgridgo/internal/ctxlog"
	"github.com/vk/flowgridgo/internal/fsutil"
)

// manifestRoot is the top-level structure of a manifest file, expecting one
// or more 'operation' blocks.
type manifestRoot struct {
	Operations []*hclOperation `hcl:"operation,block"`
}

// hclOperation represents a single 'operation' block for initial decoding.
type hclOperation struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

// operationBodySchema defines the expected body of an 'operation' block.
var operationBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "category"},
		{Name: "description"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "param", LabelNames: []string{"name"}},
	},
}

// paramBodySchema defines the expected body of a 'param' block.
var paramBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "type"},
		{Name: "description"},
		{Name: "default"},
		{Name: "options"},
	},
}

// LoadDir finds and parses all HCL manifest files under the given path into
// a Catalog. Later files win on operation-name collisions, with a warning.
func LoadDir(ctx context.Context, manifestsPath string) (Catalog, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading operation manifests.", "path", manifestsPath)

	filePaths, err := fsutil.FindFilesByExtension(manifestsPath, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to walk manifests directory %s: %w", manifestsPath, err)
	}
	if len(filePaths) == 0 {
		logger.Warn("No .hcl manifest files found in path.", "path", manifestsPath)
		return Catalog{}, nil
	}

	cat := Catalog{}
	parser := hclparse.NewParser()
	for _, filePath := range filePaths {
		hclFile, diags := parser.ParseHCLFile(filePath)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse manifest file %s: %w", filePath, diags)
		}
		ops, err := parseManifest(hclFile)
		if err != nil {
			return nil, fmt.Errorf("in manifest file %s: %w", filePath, err)
		}
		for _, op := range ops {
			if _, exists := cat[op.Name]; exists {
				logger.Warn("Duplicate operation definition, overwriting.", "operation", op.Name, "file", filePath)
			}
			cat[op.Name] = op
		}
	}

	logger.Info("Operation catalog loaded.", "operations", len(cat))
	return cat, nil
}

// parseManifest decodes all operation blocks from one parsed manifest file.
func parseManifest(hclFile *hcl.File) ([]*Operation, error) {
	var root manifestRoot
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
		return nil, diags
	}

	ops := make([]*Operation, 0, len(root.Operations))
	for _, parsed := range root.Operations {
		op, diags := parseOperation(parsed)
		if diags.HasErrors() {
			return nil, diags
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func parseOperation(parsed *hclOperation) (*Operation, hcl.Diagnostics) {
	var allDiags hcl.Diagnostics

	bodyContent, diags := parsed.Body.Content(operationBodySchema)
	allDiags = append(allDiags, diags...)
	if diags.HasErrors() {
		return nil, allDiags
	}

	op := &Operation{
		Name:   parsed.Name,
		Params: make(map[string]ParamDefinition),
	}
	if attr, exists := bodyContent.Attributes["category"]; exists {
		allDiags = append(allDiags, gohcl.DecodeExpression(attr.Expr, nil, &op.Category)...)
	}
	if attr, exists := bodyContent.Attributes["description"]; exists {
		allDiags = append(allDiags, gohcl.DecodeExpression(attr.Expr, nil, &op.Description)...)
	}

	for _, block := range bodyContent.Blocks.OfType("param") {
		name := block.Labels[0]
		if _, exists := op.Params[name]; exists {
			allDiags = append(allDiags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate param definition",
				Detail:   fmt.Sprintf("A param named %q has already been defined for operation %q.", name, op.Name),
				Subject:  &block.DefRange,
			})
			continue
		}
		def, paramDiags := parseParam(name, block)
		allDiags = append(allDiags, paramDiags...)
		if paramDiags.HasErrors() {
			continue
		}
		op.Params[name] = def
	}

	if allDiags.HasErrors() {
		return nil, allDiags
	}
	return op, allDiags
}

func parseParam(name string, block *hcl.Block) (ParamDefinition, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	def := ParamDefinition{Name: name}

	bodyContent, contentDiags := block.Body.Content(paramBodySchema)
	diags = append(diags, contentDiags...)
	if contentDiags.HasErrors() {
		return def, diags
	}

	typeAttr, exists := bodyContent.Attributes["type"]
	if !exists {
		missing := block.Body.MissingItemRange()
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Missing 'type' attribute",
			Detail:   "The 'type' attribute is required for all param blocks.",
			Subject:  &missing,
		})
		return def, diags
	}
	var typeDiags hcl.Diagnostics
	def.Type, typeDiags = typeKeywordToCty(typeAttr.Expr)
	diags = append(diags, typeDiags...)
	if typeDiags.HasErrors() {
		return def, diags
	}

	if attr, exists := bodyContent.Attributes["description"]; exists {
		diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, &def.Description)...)
	}
	if attr, exists := bodyContent.Attributes["options"]; exists {
		diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, &def.Options)...)
	}

	if attr, exists := bodyContent.Attributes["default"]; exists {
		// A nil eval context: defaults must be literal values.
		val, valDiags := attr.Expr.Value(nil)
		diags = append(diags, valDiags...)
		if valDiags.HasErrors() {
			return def, diags
		}
		converted, err := convert.Convert(val, def.Type)
		if err != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid default value type",
				Detail: fmt.Sprintf("The default value for %q is not compatible with its declared type %s.",
					name, def.Type.FriendlyName()),
				Subject: attr.Expr.Range().Ptr(),
			})
			return def, diags
		}
		def.Default = &converted
	}

	return def, diags
}

// typeKeywordToCty converts a type keyword expression (`string`, `number`,
// `bool`, `list`, `map`, `any`) into its cty.Type.
func typeKeywordToCty(expr hcl.Expression) (cty.Type, hcl.Diagnostics) {
	var diags hcl.Diagnostics

	// A type keyword is a bare identifier, which decodes as a traversal.
	traversal, hclDiags := hcl.AbsTraversalForExpr(expr)
	if hclDiags.HasErrors() || len(traversal) != 1 {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid type specification",
			Detail:   "The 'type' attribute must be a simple type keyword like 'string', 'number', or 'bool'.",
			Subject:  expr.Range().Ptr(),
		})
		return cty.NilType, diags
	}

	switch typeName := traversal.RootName(); typeName {
	case "string":
		return cty.String, diags
	case "number":
		return cty.Number, diags
	case "bool":
		return cty.Bool, diags
	case "list":
		return cty.List(cty.DynamicPseudoType), diags
	case "map":
		return cty.Map(cty.DynamicPseudoType), diags
	case "any":
		return cty.DynamicPseudoType, diags
	default:
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unsupported type",
			Detail:   fmt.Sprintf("The keyword %q is not a valid type. Supported: string, number, bool, list, map, any.", typeName),
			Subject:  expr.Range().Ptr(),
		})
		return cty.NilType, diags
	}
}
